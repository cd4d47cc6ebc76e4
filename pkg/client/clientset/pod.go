package clientset

import (
	"context"

	"github.com/fx147/gestalt/pkg/client/rest"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
)

type PodGetter interface {
	Pods(namespace string) PodInterface
}

type PodInterface interface {
	List(ctx context.Context, opts metav1.ListOptions) (*corev1.PodList, error)
	Watch(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error)
}

type podClient struct {
	restClient rest.Interface
	namespace  string
}

func newPods(c rest.Interface, namespace string) *podClient {
	return &podClient{restClient: c, namespace: namespace}
}

func (c *podClient) List(ctx context.Context, opts metav1.ListOptions) (*corev1.PodList, error) {
	result := &corev1.PodList{}
	err := c.restClient.Get().
		Namespace(c.namespace).
		Resource("pods").
		ListOptions(opts).
		Do(ctx).
		Into(result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *podClient) Watch(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error) {
	return c.restClient.Get().
		Namespace(c.namespace).
		Resource("pods").
		ListOptions(opts).
		Watch(ctx)
}
