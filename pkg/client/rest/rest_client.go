package rest

import (
	"fmt"
	"net/http"
	"net/url"
)

const (
	defaultAPIVersion = "v1"
	defaultAPIPath    = "api"
)

// Interface 是 typed client 依赖的最小请求构造接口。
// 我们只读集群状态，所以这里只暴露读相关的动词。
type Interface interface {
	Verb(verb string) *Request
	Get() *Request
}

var _ Interface = &RESTClient{}

// RESTClient 是与 Kubernetes API Server 交互的底层客户端。
type RESTClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	apiVersion string
	apiPath    string
}

// NewRESTClient 创建一个新的 REST 客户端实例。
// baseURL 形如 "https://10.0.0.1:6443"，也可以带路径前缀（例如经过代理时）。
// httpClient 负责认证和 TLS，为 nil 时使用 http.DefaultClient。
func NewRESTClient(baseURL string, httpClient *http.Client) (*RESTClient, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must include scheme and host", baseURL)
	}

	return &RESTClient{
		baseURL:    u,
		httpClient: httpClient,
		apiVersion: defaultAPIVersion,
		apiPath:    defaultAPIPath,
	}, nil
}

func (c *RESTClient) Verb(verb string) *Request {
	return NewRequest(c).Verb(verb)
}

// Get begins a GET request. Short for c.Verb("GET").
func (c *RESTClient) Get() *Request {
	return c.Verb(http.MethodGet)
}
