package listwatch

import (
	"github.com/fx147/gestalt/pkg/cache"
)

// EventType 定义了 watch 事件的类型
type EventType string

const (
	Added    EventType = "ADDED"
	Modified EventType = "MODIFIED"
	Deleted  EventType = "DELETED"
	Bookmark EventType = "BOOKMARK"
	Error    EventType = "ERROR"
)

// Event 是 watch 流中的一个事件。按 Type 区分有效字段：
//   - Added / Modified: Record
//   - Deleted: Key，ResourceVersion 为删除时的版本（可能为空）
//   - Bookmark: ResourceVersion
//   - Error: Err 和 Gone
type Event struct {
	Type EventType

	Record          cache.ObjectRecord
	Key             cache.ObjectKey
	ResourceVersion string

	Err error
	// Gone 为 true 表示请求的起始版本已经被服务端压缩掉，只能重新 list。
	Gone bool
}
