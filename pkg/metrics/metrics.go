package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gestalt"

var (
	// ReflectorListsTotal 按结果统计完整 list 的次数。result: success|failure
	ReflectorListsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reflector",
		Name:      "lists_total",
		Help:      "Number of full lists performed by a reflector, by result.",
	}, []string{"kind", "result"})

	ReflectorWatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reflector",
		Name:      "watches_total",
		Help:      "Number of watch sessions opened by a reflector.",
	}, []string{"kind"})

	ReflectorEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reflector",
		Name:      "watch_events_total",
		Help:      "Number of watch events received, by event type.",
	}, []string{"kind", "type"})

	// ReflectorRelistsTotal 统计因为 resourceVersion 过期而触发的 relist。
	ReflectorRelistsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reflector",
		Name:      "relists_total",
		Help:      "Number of relists triggered while watching, by reason.",
	}, []string{"kind", "reason"})

	StoreObjects = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "objects",
		Help:      "Number of objects currently held in a store.",
	}, []string{"kind"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests served.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "HTTP requests currently being served.",
	}, []string{"method"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		ReflectorListsTotal,
		ReflectorWatchesTotal,
		ReflectorEventsTotal,
		ReflectorRelistsTotal,
		StoreObjects,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPInflight,
	}
}

// Register 把所有指标注册到 reg。reg 为 nil 时使用默认的 Registerer。
// 重复注册会被忽略，所以可以安全地多次调用。
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
