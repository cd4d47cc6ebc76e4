package reflector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fx147/gestalt/pkg/cache"
	"github.com/fx147/gestalt/pkg/listwatch"
	"github.com/fx147/gestalt/pkg/metrics"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/klog/v2"
)

// ListerWatcher 是 Reflector 的数据源：一次性 list 加上从某个版本开始的 watch。
// listwatch.ListWatch 是它的标准实现。
type ListerWatcher interface {
	Kind() string
	List(ctx context.Context) ([]cache.ObjectRecord, string, error)
	Watch(ctx context.Context, sinceVersion string) <-chan listwatch.Event
}

// State 是 Reflector 状态机的状态。
type State int32

const (
	Listing State = iota
	Watching
	Relisting
	Stopped
)

func (s State) String() string {
	switch s {
	case Listing:
		return "Listing"
	case Watching:
		return "Watching"
	case Relisting:
		return "Relisting"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Options 配置 Reflector 的退避策略。零值使用默认值（1s 起步，最多 30s）。
type Options struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Reflector 驱动一种资源的 list -> watch -> relist 循环，是其 Store 唯一的写者。
//
// 状态机：
//
//	Listing --成功--> Watching --Gone--> Relisting --成功--> Watching
//	Watching --瞬时错误/流结束--> (退避) Watching，用同一个 resourceVersion 续上
//	任意状态 --ctx 取消--> Stopped
type Reflector struct {
	kind    string
	lw      ListerWatcher
	store   *cache.Store
	backoff *backoff
	// sleep 等待退避时长，ctx 取消时返回 false。
	sleep func(ctx context.Context, d time.Duration) bool

	state atomic.Int32

	// --- 事件分发 ---
	handlers    []ResourceEventHandler
	handlerLock sync.RWMutex
}

// New 创建一个 Reflector 和它拥有的空 Store。
func New(lw ListerWatcher, opts Options) *Reflector {
	initial, limit := opts.InitialBackoff, opts.MaxBackoff
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	if limit <= 0 {
		limit = DefaultMaxBackoff
	}

	r := &Reflector{
		kind:    lw.Kind(),
		lw:      lw,
		store:   cache.NewStore(lw.Kind()),
		backoff: newBackoff(initial, limit),
		sleep:   sleep,
	}
	r.state.Store(int32(Listing))
	return r
}

// Store 返回只读使用的 Store。外部不能调用它的写方法。
func (r *Reflector) Store() *cache.Store {
	return r.store
}

func (r *Reflector) Kind() string {
	return r.kind
}

func (r *Reflector) State() State {
	return State(r.state.Load())
}

// HasSynced 在第一次 list 成功之后返回 true。
func (r *Reflector) HasSynced() bool {
	return r.store.HasSynced()
}

func (r *Reflector) setState(s State) {
	if prev := State(r.state.Swap(int32(s))); prev != s {
		klog.V(2).InfoS("Reflector state changed", "kind", r.kind, "from", prev, "to", s)
	}
}

// Run 启动 Reflector 的主循环，直到 ctx 被取消。
// 退出时 Store 被标记为不再更新，读者继续看到最后一个快照。
func (r *Reflector) Run(ctx context.Context) {
	defer utilruntime.HandleCrash()

	klog.InfoS("Starting reflector", "kind", r.kind)
	defer func() {
		r.setState(Stopped)
		r.store.MarkStopped()
		klog.InfoS("Shutting down reflector", "kind", r.kind, "resourceVersion", r.store.ResourceVersion())
	}()

	state := Listing
	var rv string
	for ctx.Err() == nil {
		r.setState(state)
		switch state {
		case Listing, Relisting:
			listed, ok := r.list(ctx)
			if !ok {
				return
			}
			rv = listed
			state = Watching
		case Watching:
			state, rv = r.watch(ctx, rv)
		case Stopped:
			return
		}
	}
}

// list 一直重试直到成功或 ctx 被取消。只有这里会整体替换 Store。
// 失败期间 Store 保留上一代的内容，读者继续读到旧数据。
func (r *Reflector) list(ctx context.Context) (string, bool) {
	for {
		records, rv, err := r.lw.List(ctx)
		if err == nil {
			r.replace(records, rv)
			r.backoff.Reset()
			metrics.ReflectorListsTotal.WithLabelValues(r.kind, "success").Inc()
			klog.InfoS("Listed objects", "kind", r.kind, "count", len(records), "resourceVersion", rv)
			return rv, true
		}
		if ctx.Err() != nil {
			return "", false
		}

		metrics.ReflectorListsTotal.WithLabelValues(r.kind, "failure").Inc()
		delay := r.backoff.Next()
		klog.ErrorS(err, "Failed to list objects, will retry", "kind", r.kind, "backoff", delay)
		if !r.sleep(ctx, delay) {
			return "", false
		}
	}
}

func (r *Reflector) replace(records []cache.ObjectRecord, rv string) {
	var previous []cache.ObjectRecord
	notify := r.hasHandlers()
	initial := !r.store.HasSynced()
	if notify {
		previous = r.store.Snapshot()
	}

	r.store.ReplaceAll(records, rv)
	r.updateStoreMetric()

	if notify {
		r.distributeReplace(previous, records, initial)
	}
}

// watch 处理一次 watch 会话，返回下一个状态和最新的 resourceVersion。
func (r *Reflector) watch(ctx context.Context, rv string) (State, string) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metrics.ReflectorWatchesTotal.WithLabelValues(r.kind).Inc()
	klog.V(2).InfoS("Starting watch", "kind", r.kind, "resourceVersion", rv)

loop:
	for event := range r.lw.Watch(wctx, rv) {
		metrics.ReflectorEventsTotal.WithLabelValues(r.kind, string(event.Type)).Inc()

		switch event.Type {
		case listwatch.Added, listwatch.Modified:
			old, existed := r.store.Upsert(event.Record)
			if existed {
				r.distribute(notification{eventType: listwatch.Modified, oldObj: old.Object, newObj: event.Record.Object})
			} else {
				r.distribute(notification{eventType: listwatch.Added, newObj: event.Record.Object})
			}
			rv = advance(rv, event.Record.ResourceVersion)

		case listwatch.Deleted:
			old, existed := r.store.Remove(event.Key)
			r.store.SetResourceVersion(event.ResourceVersion)
			if existed {
				r.distribute(notification{eventType: listwatch.Deleted, oldObj: old.Object})
			}
			rv = advance(rv, event.ResourceVersion)

		case listwatch.Bookmark:
			r.store.SetResourceVersion(event.ResourceVersion)
			rv = advance(rv, event.ResourceVersion)

		case listwatch.Error:
			if event.Gone {
				klog.InfoS("Watch resource version is too old, relisting", "kind", r.kind, "resourceVersion", rv, "err", event.Err)
				metrics.ReflectorRelistsTotal.WithLabelValues(r.kind, "expired").Inc()
				return Relisting, rv
			}
			klog.ErrorS(event.Err, "Watch failed", "kind", r.kind, "resourceVersion", rv)
			break loop
		}

		r.backoff.Reset()
		r.updateStoreMetric()
	}
	// 在退避之前就释放 watch 连接。
	cancel()

	if ctx.Err() != nil {
		return Stopped, rv
	}

	delay := r.backoff.Next()
	klog.V(2).InfoS("Watch ended, resuming after backoff", "kind", r.kind, "resourceVersion", rv, "backoff", delay)
	if !r.sleep(ctx, delay) {
		return Stopped, rv
	}
	return Watching, rv
}

func (r *Reflector) updateStoreMetric() {
	metrics.StoreObjects.WithLabelValues(r.kind).Set(float64(r.store.Len()))
}

// advance 返回新的 resourceVersion；事件没有携带版本时保持原值。
func advance(current, next string) string {
	if next == "" {
		return current
	}
	return next
}
