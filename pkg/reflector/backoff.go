package reflector

import (
	"context"
	"math"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 30 * time.Second
)

// backoff 是一个可重置的指数退避：从 initial 开始每次翻倍，直到 limit。
// 只在 Reflector 自己的 goroutine 里使用，不需要加锁。
type backoff struct {
	initial wait.Backoff
	current wait.Backoff
}

func newBackoff(initial, limit time.Duration) *backoff {
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	if limit < initial {
		limit = initial
	}
	b := wait.Backoff{
		Duration: initial,
		Factor:   2.0,
		Steps:    math.MaxInt32,
		Cap:      limit,
	}
	return &backoff{initial: b, current: b}
}

// Next 返回下一次需要等待的时长。
func (b *backoff) Next() time.Duration {
	return b.current.Step()
}

// Reset 在成功收到事件或完成 list 之后回到初始间隔。
func (b *backoff) Reset() {
	b.current = b.initial
}

// sleep 等待 d，ctx 被取消时提前返回 false。
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
