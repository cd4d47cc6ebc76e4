package cache

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime"
)

// ObjectKey 在同一种资源内唯一标识一个对象。
// 集群级资源（例如 Node）的 Namespace 为空。
type ObjectKey struct {
	Kind      string
	Namespace string
	Name      string
}

// String 返回 "namespace/name"，集群级资源只返回 "name"。
func (k ObjectKey) String() string {
	if k.Namespace == "" {
		return k.Name
	}
	return k.Namespace + "/" + k.Name
}

// ObjectRecord 是 Store 中保存的一条记录：对象的最新版本。
// Object 一旦放入 Store 就视为不可变，读者拿到的是共享引用，不能修改。
type ObjectRecord struct {
	Key             ObjectKey
	ResourceVersion string
	Object          runtime.Object
}

// KeyFor 从对象的元数据中提取 ObjectKey。
func KeyFor(kind string, obj runtime.Object) (ObjectKey, error) {
	accessor, err := meta.Accessor(obj)
	if err != nil {
		return ObjectKey{}, fmt.Errorf("failed to access %s metadata: %w", kind, err)
	}
	if accessor.GetName() == "" {
		return ObjectKey{}, fmt.Errorf("%s object has no name", kind)
	}
	return ObjectKey{
		Kind:      kind,
		Namespace: accessor.GetNamespace(),
		Name:      accessor.GetName(),
	}, nil
}

// NewRecord 把一个 API 对象包装成 ObjectRecord。
func NewRecord(kind string, obj runtime.Object) (ObjectRecord, error) {
	key, err := KeyFor(kind, obj)
	if err != nil {
		return ObjectRecord{}, err
	}
	accessor, _ := meta.Accessor(obj)
	return ObjectRecord{
		Key:             key,
		ResourceVersion: accessor.GetResourceVersion(),
		Object:          obj,
	}, nil
}
