package reflector

import (
	"github.com/fx147/gestalt/pkg/cache"
	"github.com/fx147/gestalt/pkg/listwatch"
	toolscache "k8s.io/client-go/tools/cache"
)

// ResourceEventHandler 是一组由使用方提供的回调函数。
// 我们直接复用 client-go 的定义。
type ResourceEventHandler = toolscache.ResourceEventHandler

// AddEventHandler 注册一个事件处理器。
// 回调在 Reflector 的 goroutine 里同步执行，处理器不能阻塞。
func (r *Reflector) AddEventHandler(handler ResourceEventHandler) {
	r.handlerLock.Lock()
	defer r.handlerLock.Unlock()
	r.handlers = append(r.handlers, handler)
}

func (r *Reflector) hasHandlers() bool {
	r.handlerLock.RLock()
	defer r.handlerLock.RUnlock()
	return len(r.handlers) > 0
}

// notification 描述一次需要分发给处理器的变更。
type notification struct {
	eventType       listwatch.EventType
	oldObj, newObj  interface{}
	isInInitialList bool
}

// distribute 将一个变更分发给所有已注册的处理器。
func (r *Reflector) distribute(n notification) {
	r.handlerLock.RLock()
	defer r.handlerLock.RUnlock()

	for _, handler := range r.handlers {
		switch n.eventType {
		case listwatch.Added:
			handler.OnAdd(n.newObj, n.isInInitialList)
		case listwatch.Modified:
			handler.OnUpdate(n.oldObj, n.newObj)
		case listwatch.Deleted:
			handler.OnDelete(n.oldObj)
		}
	}
}

// distributeReplace 对比新旧两代的内容，把一次整体替换翻译成增删改通知。
// 新出现的 key 是 Added，resourceVersion 变化的是 Modified，消失的 key 用
// DeletedFinalStateUnknown 作为墓碑通知删除。
func (r *Reflector) distributeReplace(previous, records []cache.ObjectRecord, initial bool) {
	old := make(map[cache.ObjectKey]cache.ObjectRecord, len(previous))
	for _, record := range previous {
		old[record.Key] = record
	}

	seen := make(map[cache.ObjectKey]struct{}, len(records))
	for _, record := range records {
		seen[record.Key] = struct{}{}
		prev, exists := old[record.Key]
		if !exists {
			r.distribute(notification{eventType: listwatch.Added, newObj: record.Object, isInInitialList: initial})
		} else if prev.ResourceVersion != record.ResourceVersion {
			r.distribute(notification{eventType: listwatch.Modified, oldObj: prev.Object, newObj: record.Object})
		}
	}

	for key, prev := range old {
		if _, exists := seen[key]; exists {
			continue
		}
		tombstone := toolscache.DeletedFinalStateUnknown{Key: key.String(), Obj: prev.Object}
		r.distribute(notification{eventType: listwatch.Deleted, oldObj: tombstone})
	}
}
