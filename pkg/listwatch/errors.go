package listwatch

import (
	"errors"
	"fmt"
	"net/http"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// ErrListFailed 用于 errors.Is 判断一次 list 是否失败。
var ErrListFailed = errors.New("list failed")

// ListFailedError 表示一次完整的 list 失败了。list 是全有或全无的，失败时不会返回部分结果。
type ListFailedError struct {
	Kind string
	Err  error
}

func (e *ListFailedError) Error() string {
	return fmt.Sprintf("list %s failed: %v", e.Kind, e.Err)
}

func (e *ListFailedError) Unwrap() error {
	return e.Err
}

func (e *ListFailedError) Is(target error) bool {
	return target == ErrListFailed
}

// IsGone 判断错误是否意味着起始 resourceVersion 已经过期。
func IsGone(err error) bool {
	if err == nil {
		return false
	}
	if apierrors.IsResourceExpired(err) || apierrors.IsGone(err) {
		return true
	}
	var status apierrors.APIStatus
	if errors.As(err, &status) {
		return status.Status().Code == http.StatusGone
	}
	return false
}
