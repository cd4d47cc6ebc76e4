package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/fx147/gestalt/pkg/view"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"
)

const (
	// DefaultAddr 是默认的监听地址。
	DefaultAddr = "0.0.0.0:3001"

	shutdownTimeout = 5 * time.Second
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Options 配置展示层。
type Options struct {
	// Composer 提供所有数据路由的内容。ClientErr 不为空时可以为 nil。
	Composer *view.Composer
	// ClientErr 是启动时创建集群客户端的错误。不为空时数据路由返回 500。
	ClientErr error
	// Gatherer 用于 /metrics，为 nil 时使用默认的 Gatherer。
	Gatherer prometheus.Gatherer
}

// Server 把 Store 中的数据渲染成给浏览器轮询的 HTML 片段。
type Server struct {
	composer  *view.Composer
	clientErr error
	gatherer  prometheus.Gatherer
	router    chi.Router
}

func New(opts Options) *Server {
	if opts.Composer == nil && opts.ClientErr == nil {
		opts.ClientErr = errors.New("no cluster client configured")
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		composer:  opts.Composer,
		clientErr: opts.ClientErr,
		gatherer:  opts.Gatherer,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(withRequestID, withMetrics)

	r.Get("/", s.home)
	r.Get("/random", s.random)
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(s.requireClient)
		r.Get("/nodes", s.nodes)
		r.Get("/pods", s.pods)
		r.Get("/podnodes", s.podNodes)
	})
	return r
}

// Handler 返回完整的路由，供 http.Server 或 httptest 使用。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen 在 addr 上监听。端口为 0 时由操作系统分配，实际地址可以从返回的 Listener 读取。
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}

// Serve 在 ln 上提供服务，直到 ctx 被取消后优雅退出。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	klog.InfoS("Serving HTTP", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	klog.InfoS("Shutting down HTTP server", "addr", ln.Addr().String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
