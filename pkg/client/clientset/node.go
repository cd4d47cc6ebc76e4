package clientset

import (
	"context"

	"github.com/fx147/gestalt/pkg/client/rest"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
)

type NodeGetter interface {
	Nodes() NodeInterface
}

type NodeInterface interface {
	// List 一次性列出所有节点，返回的 NodeList 带有可用于 watch 的 resourceVersion。
	List(ctx context.Context, opts metav1.ListOptions) (*corev1.NodeList, error)

	// Watch 从 opts.ResourceVersion 开始监听节点变更。
	Watch(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error)
}

type nodeClient struct {
	restClient rest.Interface
}

func newNodes(c rest.Interface) *nodeClient {
	return &nodeClient{restClient: c}
}

func (c *nodeClient) List(ctx context.Context, opts metav1.ListOptions) (*corev1.NodeList, error) {
	result := &corev1.NodeList{}
	err := c.restClient.Get().
		Resource("nodes").
		ListOptions(opts).
		Do(ctx).
		Into(result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *nodeClient) Watch(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error) {
	return c.restClient.Get().
		Resource("nodes").
		ListOptions(opts).
		Watch(ctx)
}
