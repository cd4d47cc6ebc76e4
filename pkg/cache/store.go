package cache

import (
	"sync"
	"sync/atomic"

	iradix "github.com/hashicorp/go-immutable-radix"
)

// Store 是某一种资源的内存副本。
//
// 所有状态都放在一个不可变的 storeState 里，通过 atomic.Pointer 发布：
// 读者只做一次原子 Load，拿到的树永远不会再被修改，所以读者之间、读者和写者之间都不会互相阻塞。
// 写者基于当前树构造新树（radix 树结构共享，单次写 O(log n)），再原子替换。
// 写操作只应由拥有这个 Store 的 Reflector 调用。
type Store struct {
	kind string

	// mu 只在写者之间串行化，读路径从不获取它。
	mu      sync.Mutex
	current atomic.Pointer[storeState]
}

type storeState struct {
	tree            *iradix.Tree
	resourceVersion string
	// generation 每次 ReplaceAll 加一，一次 relist 就是一个新的 generation。
	generation int64
	synced     bool
	stopped    bool
}

// NewStore 创建一个空的 Store。
func NewStore(kind string) *Store {
	s := &Store{kind: kind}
	s.current.Store(&storeState{tree: iradix.New()})
	return s
}

// Kind 返回 Store 保存的资源类型。
func (s *Store) Kind() string {
	return s.kind
}

func (s *Store) load() *storeState {
	return s.current.Load()
}

// update 在写锁内基于当前状态生成新状态并发布。
// fn 返回 false 表示不需要发布。
func (s *Store) update(fn func(next *storeState) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.load()
	if cur.stopped {
		return
	}
	next := *cur
	if fn(&next) {
		s.current.Store(&next)
	}
}

// Upsert 插入或覆盖一条记录，返回被覆盖的旧记录。
func (s *Store) Upsert(record ObjectRecord) (old ObjectRecord, existed bool) {
	s.update(func(next *storeState) bool {
		tree, prev, updated := next.tree.Insert([]byte(record.Key.String()), record)
		next.tree = tree
		if updated {
			old, existed = prev.(ObjectRecord), true
		}
		if record.ResourceVersion != "" {
			next.resourceVersion = record.ResourceVersion
		}
		return true
	})
	return old, existed
}

// Remove 删除一条记录。删除不存在的 key 是 no-op。
func (s *Store) Remove(key ObjectKey) (old ObjectRecord, existed bool) {
	s.update(func(next *storeState) bool {
		tree, prev, deleted := next.tree.Delete([]byte(key.String()))
		if !deleted {
			return false
		}
		next.tree = tree
		old, existed = prev.(ObjectRecord), true
		return true
	})
	return old, existed
}

// SetResourceVersion 只推进 resourceVersion，不修改对象内容（用于 bookmark 和 delete 事件）。
func (s *Store) SetResourceVersion(rv string) {
	if rv == "" {
		return
	}
	s.update(func(next *storeState) bool {
		next.resourceVersion = rv
		return true
	})
}

// ReplaceAll 用 records 整体替换 Store 的内容，并开启一个新的 generation。
// 新树在事务里完整构建后才一次性发布，读者只会看到替换前或替换后的状态。
func (s *Store) ReplaceAll(records []ObjectRecord, rv string) {
	txn := iradix.New().Txn()
	for _, record := range records {
		txn.Insert([]byte(record.Key.String()), record)
	}
	tree := txn.Commit()

	s.update(func(next *storeState) bool {
		next.tree = tree
		next.resourceVersion = rv
		next.generation++
		next.synced = true
		return true
	})
}

// MarkStopped 标记 Store 不再更新。之后的写操作都会被忽略，读者继续看到最后一个快照。
func (s *Store) MarkStopped() {
	s.update(func(next *storeState) bool {
		next.stopped = true
		return true
	})
}

// Snapshot 返回某一时刻的全部记录。顺序按 key 排序，但调用者不应依赖顺序。
func (s *Store) Snapshot() []ObjectRecord {
	records, _ := s.VersionedSnapshot()
	return records
}

// VersionedSnapshot 返回同一时刻的全部记录和 resourceVersion。
func (s *Store) VersionedSnapshot() ([]ObjectRecord, string) {
	st := s.load()
	records := make([]ObjectRecord, 0, st.tree.Len())
	st.tree.Root().Walk(func(_ []byte, v interface{}) bool {
		records = append(records, v.(ObjectRecord))
		return false
	})
	return records, st.resourceVersion
}

func (s *Store) Len() int {
	return s.load().tree.Len()
}

// ResourceVersion 返回最后一次应用的 resourceVersion。
func (s *Store) ResourceVersion() string {
	return s.load().resourceVersion
}

func (s *Store) Generation() int64 {
	return s.load().generation
}

// HasSynced 在第一次完整 list 之后返回 true。
func (s *Store) HasSynced() bool {
	return s.load().synced
}

func (s *Store) Stopped() bool {
	return s.load().stopped
}
