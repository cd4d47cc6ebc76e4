package listwatch

import (
	"context"
	"fmt"

	"github.com/fx147/gestalt/pkg/cache"
	"github.com/fx147/gestalt/pkg/client/clientset"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/klog/v2"
)

const (
	KindNodes = "nodes"
	KindPods  = "pods"

	// defaultWatchTimeout 让服务端定期关闭 watch，客户端随后用最新版本续上。
	defaultWatchTimeout int64 = 5 * 60
)

// ListFunc 一次性列出某种资源，返回一个 List 对象（例如 *corev1.NodeList）。
type ListFunc func(ctx context.Context, opts metav1.ListOptions) (runtime.Object, error)

// WatchFunc 从 opts.ResourceVersion 开始打开一个 watch。
type WatchFunc func(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error)

// ListWatch 把 clientset 的 List / Watch 适配成 Reflector 需要的 Lister 和 Watch Transport。
// 它自己不做任何重试，重试和退避都由 Reflector 负责。
type ListWatch struct {
	kind      string
	listFunc  ListFunc
	watchFunc WatchFunc
}

// New 用任意的 list / watch 函数创建一个 ListWatch。
func New(kind string, listFunc ListFunc, watchFunc WatchFunc) *ListWatch {
	return &ListWatch{kind: kind, listFunc: listFunc, watchFunc: watchFunc}
}

// ForNodes 创建 Node 的 ListWatch。
func ForNodes(cs clientset.Interface) *ListWatch {
	nodes := cs.Nodes()
	return New(KindNodes,
		func(ctx context.Context, opts metav1.ListOptions) (runtime.Object, error) {
			return nodes.List(ctx, opts)
		},
		nodes.Watch,
	)
}

// ForPods 创建 Pod 的 ListWatch。namespace 为空时跨所有命名空间。
func ForPods(cs clientset.Interface, namespace string) *ListWatch {
	pods := cs.Pods(namespace)
	return New(KindPods,
		func(ctx context.Context, opts metav1.ListOptions) (runtime.Object, error) {
			return pods.List(ctx, opts)
		},
		pods.Watch,
	)
}

func (lw *ListWatch) Kind() string {
	return lw.kind
}

// List 列出全部对象和起始 resourceVersion。任何一个对象解析失败，整个 list 都失败。
func (lw *ListWatch) List(ctx context.Context) ([]cache.ObjectRecord, string, error) {
	list, err := lw.listFunc(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, "", &ListFailedError{Kind: lw.kind, Err: err}
	}

	listMeta, err := meta.ListAccessor(list)
	if err != nil {
		return nil, "", &ListFailedError{Kind: lw.kind, Err: err}
	}
	items, err := meta.ExtractList(list)
	if err != nil {
		return nil, "", &ListFailedError{Kind: lw.kind, Err: err}
	}

	records := make([]cache.ObjectRecord, 0, len(items))
	for _, item := range items {
		record, err := cache.NewRecord(lw.kind, item)
		if err != nil {
			return nil, "", &ListFailedError{Kind: lw.kind, Err: err}
		}
		records = append(records, record)
	}
	return records, listMeta.GetResourceVersion(), nil
}

// Watch 从 sinceVersion 开始监听变更。
// 返回的 channel 在以下情况下关闭：服务端正常结束流、发送了一个 Error 事件之后、ctx 被取消。
// 取消 ctx 会释放底层的 HTTP 连接。
func (lw *ListWatch) Watch(ctx context.Context, sinceVersion string) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)

		timeout := defaultWatchTimeout
		w, err := lw.watchFunc(ctx, metav1.ListOptions{
			ResourceVersion:     sinceVersion,
			AllowWatchBookmarks: true,
			TimeoutSeconds:      &timeout,
		})
		if err != nil {
			send(ctx, out, Event{Type: Error, Err: err, Gone: IsGone(err)})
			return
		}
		defer w.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-w.ResultChan():
				if !ok {
					klog.V(4).InfoS("Watch stream closed by server", "kind", lw.kind)
					return
				}
				event, ok := lw.convert(raw)
				if !ok {
					continue
				}
				if !send(ctx, out, event) || event.Type == Error {
					return
				}
			}
		}
	}()

	return out
}

func send(ctx context.Context, out chan<- Event, event Event) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// convert 把 apimachinery 的 watch.Event 转换成我们自己的 Event。
//
// 无法提取 key 的对象会被记录并跳过，不会当作 Error 事件，
// 否则 Reflector 会从同一个 resourceVersion 续上并无限重放这个事件。
// 如果还能读到对象的 resourceVersion，就转换成 Bookmark 让游标越过它。
// ok 为 false 表示这个事件被整个丢弃。
func (lw *ListWatch) convert(raw watch.Event) (event Event, ok bool) {
	switch raw.Type {
	case watch.Added, watch.Modified, watch.Deleted:
		record, err := cache.NewRecord(lw.kind, raw.Object)
		if err != nil {
			return lw.skip(raw, err)
		}
		switch raw.Type {
		case watch.Added:
			return Event{Type: Added, Record: record}, true
		case watch.Modified:
			return Event{Type: Modified, Record: record}, true
		default:
			return Event{Type: Deleted, Key: record.Key, ResourceVersion: record.ResourceVersion}, true
		}

	case watch.Bookmark:
		accessor, err := meta.Accessor(raw.Object)
		if err != nil {
			return lw.skip(raw, err)
		}
		return Event{Type: Bookmark, ResourceVersion: accessor.GetResourceVersion()}, true

	case watch.Error:
		err := apierrors.FromObject(raw.Object)
		return Event{Type: Error, Err: err, Gone: IsGone(err)}, true

	default:
		return Event{Type: Error, Err: fmt.Errorf("unexpected watch event type %q", raw.Type)}, true
	}
}

func (lw *ListWatch) skip(raw watch.Event, err error) (Event, bool) {
	klog.ErrorS(err, "Skipping malformed watch event", "kind", lw.kind, "type", raw.Type)
	accessor, accessErr := meta.Accessor(raw.Object)
	if accessErr != nil || accessor.GetResourceVersion() == "" {
		return Event{}, false
	}
	return Event{Type: Bookmark, ResourceVersion: accessor.GetResourceVersion()}, true
}
