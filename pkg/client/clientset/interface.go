package clientset

import (
	"fmt"

	"github.com/fx147/gestalt/pkg/client/rest"
	restclient "k8s.io/client-go/rest"
)

type Interface interface {
	NodeGetter
	PodGetter
}

var _ Interface = &Clientset{}

type Clientset struct {
	restClient *rest.RESTClient
}

// NewForConfig 根据 client-go 的 rest.Config 创建 Clientset。
// 认证、TLS 和代理都由 client-go 构造的 http.Client 负责，我们只复用它的传输层。
func NewForConfig(cfg *restclient.Config) (*Clientset, error) {
	httpClient, err := restclient.HTTPClientFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build http client: %w", err)
	}

	hostURL, _, err := restclient.DefaultServerUrlFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve api server url: %w", err)
	}

	restClient, err := rest.NewRESTClient(hostURL.String(), httpClient)
	if err != nil {
		return nil, err
	}
	return New(restClient), nil
}

// New 用一个已经构造好的 REST 客户端创建 Clientset，主要用于测试。
func New(c *rest.RESTClient) *Clientset {
	return &Clientset{restClient: c}
}

// Nodes 返回 NodeInterface，用于读取 Node 资源
func (c *Clientset) Nodes() NodeInterface {
	return newNodes(c.restClient)
}

// Pods 返回 PodInterface。namespace 为空时跨所有命名空间。
func (c *Clientset) Pods(namespace string) PodInterface {
	return newPods(c.restClient, namespace)
}
