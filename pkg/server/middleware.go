package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fx147/gestalt/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withRequestID 沿用客户端带来的 X-Request-ID，没有时生成一个新的。
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// withMetrics 记录请求数、延迟和在途请求数。path 标签使用路由模板，避免标签基数失控。
func withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		method := strings.ToUpper(r.Method)

		metrics.HTTPInflight.WithLabelValues(method).Inc()
		defer metrics.HTTPInflight.WithLabelValues(method).Dec()

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}

		duration := time.Since(start)
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
		klog.V(4).InfoS("Served request", "requestID", requestIDFrom(r.Context()),
			"method", method, "path", r.URL.Path, "status", status, "duration", duration)
	})
}

// requireClient 在集群客户端不可用时直接返回 500。
func (s *Server) requireClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.clientErr != nil {
			http.Error(w, "cluster client unavailable: "+s.clientErr.Error(), http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}
