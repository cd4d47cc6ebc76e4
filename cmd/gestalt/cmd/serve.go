package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fx147/gestalt/internal/gestalt/util"
	"github.com/fx147/gestalt/pkg/listwatch"
	"github.com/fx147/gestalt/pkg/metrics"
	"github.com/fx147/gestalt/pkg/reflector"
	"github.com/fx147/gestalt/pkg/server"
	"github.com/fx147/gestalt/pkg/view"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	toolscache "k8s.io/client-go/tools/cache"
	"k8s.io/klog/v2"
)

// serveOptions 是 serve 命令启动时一次性解析出的全部配置。
type serveOptions struct {
	Addr      string
	Namespace string
	Client    util.ClientOptions
	Reflector reflector.Options
}

func serveOptionsFromFlags() serveOptions {
	return serveOptions{
		Addr:      viper.GetString("addr"),
		Namespace: viper.GetString("namespace"),
		Client:    util.ClientOptionsFromFlags(),
		Reflector: reflector.Options{
			InitialBackoff: viper.GetDuration("backoff-initial"),
			MaxBackoff:     viper.GetDuration("backoff-max"),
		},
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a live HTML view of nodes and pods",
		Long: `Starts one reflector per resource kind (nodes, pods) that keeps an in-memory
store in sync with the cluster, and an HTTP server that renders the stores.

Routes: /, /random, /nodes, /pods, /podnodes, /healthz, /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, serveOptionsFromFlags())
		},
	}

	flags := cmd.Flags()
	flags.String("addr", server.DefaultAddr, "Address to listen on; use port 0 for an OS-assigned port")
	flags.Duration("backoff-initial", reflector.DefaultInitialBackoff, "Initial retry delay after a failed list or watch")
	flags.Duration("backoff-max", reflector.DefaultMaxBackoff, "Maximum retry delay after repeated failures")

	viper.BindPFlag("addr", flags.Lookup("addr"))
	viper.BindPFlag("backoff-initial", flags.Lookup("backoff-initial"))
	viper.BindPFlag("backoff-max", flags.Lookup("backoff-max"))

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	ln, err := server.Listen(opts.Addr)
	if err != nil {
		return err
	}

	cs, err := opts.Client.NewClientset()
	if err != nil {
		// 没有集群客户端时仍然提供服务，数据路由返回 500。
		klog.ErrorS(err, "Failed to create cluster client, data routes will report the error")
		return server.New(server.Options{ClientErr: err}).Serve(ctx, ln)
	}

	nodes := reflector.New(listwatch.ForNodes(cs), opts.Reflector)
	pods := reflector.New(listwatch.ForPods(cs, opts.Namespace), opts.Reflector)
	for _, r := range []*reflector.Reflector{nodes, pods} {
		r.AddEventHandler(loggingHandler(r.Kind()))
	}

	srv := server.New(server.Options{Composer: view.NewComposer(pods.Store(), nodes.Store())})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		nodes.Run(gctx)
		return nil
	})
	g.Go(func() error {
		pods.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return srv.Serve(gctx, ln)
	})
	g.Go(func() error {
		waitForSync(gctx, nodes, pods)
		return nil
	})
	return g.Wait()
}

// loggingHandler 在 -v=4 时记录每一个对象变更。
func loggingHandler(kind string) reflector.ResourceEventHandler {
	return toolscache.ResourceEventHandlerDetailedFuncs{
		AddFunc: func(obj interface{}, isInInitialList bool) {
			klog.V(4).InfoS("Object added", "kind", kind, "object", objectRef(obj), "initialList", isInInitialList)
		},
		UpdateFunc: func(oldObj, newObj interface{}) {
			klog.V(4).InfoS("Object updated", "kind", kind, "object", objectRef(newObj))
		},
		DeleteFunc: func(obj interface{}) {
			if tombstone, ok := obj.(toolscache.DeletedFinalStateUnknown); ok {
				klog.V(4).InfoS("Object deleted during relist", "kind", kind, "key", tombstone.Key)
				return
			}
			klog.V(4).InfoS("Object deleted", "kind", kind, "object", objectRef(obj))
		},
	}
}

func objectRef(obj interface{}) klog.ObjectRef {
	if m, ok := obj.(klog.KMetadata); ok {
		return klog.KObj(m)
	}
	return klog.ObjectRef{}
}

// waitForSync 记录所有 Store 第一次同步完成的时间。
func waitForSync(ctx context.Context, reflectors ...*reflector.Reflector) {
	start := time.Now()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		synced := true
		for _, r := range reflectors {
			synced = synced && r.HasSynced()
		}
		if synced {
			klog.InfoS("Caches synced", "duration", time.Since(start))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
