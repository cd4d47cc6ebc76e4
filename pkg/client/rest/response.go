package rest

import (
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// newStatusError 把一个失败的响应转换成 apierrors.StatusError。
// API Server 的错误响应体通常是一个 metav1.Status，解析不了时退化成通用错误。
func newStatusError(code int, verb, resource string, body []byte) error {
	if obj, err := runtime.Decode(codecs.UniversalDeserializer(), body); err == nil {
		if status, ok := obj.(*metav1.Status); ok {
			if status.Code == 0 {
				status.Code = int32(code)
			}
			if status.Status == "" {
				status.Status = metav1.StatusFailure
			}
			return apierrors.FromObject(status)
		}
	}

	gr := schema.GroupResource{Resource: resource}
	return apierrors.NewGenericServerResponse(code, verb, gr, "", strings.TrimSpace(string(body)), 0, false)
}
