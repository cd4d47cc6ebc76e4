package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/klog/v2"
)

// Request 允许以链式方式构建请求。
type Request struct {
	c         *RESTClient
	verb      string
	namespace string
	resource  string
	params    url.Values
	err       error
}

func NewRequest(c *RESTClient) *Request {
	return &Request{
		c: c,
	}
}

// Verb 指定 HTTP 方法 (e.g., "GET")。
func (r *Request) Verb(verb string) *Request {
	r.verb = verb
	return r
}

// Namespace 指定命名空间。为空表示集群级资源或者跨所有命名空间。
func (r *Request) Namespace(namespace string) *Request {
	if r.err != nil {
		return r
	}
	r.namespace = namespace
	return r
}

// Resource 指定要操作的资源 (e.g., "nodes", "pods")。
func (r *Request) Resource(resource string) *Request {
	if r.err != nil {
		return r
	}
	if len(r.resource) != 0 {
		r.err = fmt.Errorf("resource already set to %q, cannot change to %q", r.resource, resource)
		return r
	}
	r.resource = resource
	return r
}

// Param 向请求添加一个 URL Query 参数。
func (r *Request) Param(key, value string) *Request {
	if r.err != nil {
		return r
	}
	if r.params == nil {
		r.params = make(url.Values)
	}
	r.params.Add(key, value)
	return r
}

// ListOptions 把 list/watch 用到的 metav1.ListOptions 字段编码成查询参数。
func (r *Request) ListOptions(opts metav1.ListOptions) *Request {
	if opts.ResourceVersion != "" {
		r.Param("resourceVersion", opts.ResourceVersion)
	}
	if opts.LabelSelector != "" {
		r.Param("labelSelector", opts.LabelSelector)
	}
	if opts.FieldSelector != "" {
		r.Param("fieldSelector", opts.FieldSelector)
	}
	if opts.AllowWatchBookmarks {
		r.Param("allowWatchBookmarks", "true")
	}
	if opts.TimeoutSeconds != nil {
		r.Param("timeoutSeconds", strconv.FormatInt(*opts.TimeoutSeconds, 10))
	}
	if opts.Limit > 0 {
		r.Param("limit", strconv.FormatInt(opts.Limit, 10))
	}
	if opts.Continue != "" {
		r.Param("continue", opts.Continue)
	}
	return r
}

// URL 返回请求最终的完整地址。
func (r *Request) URL() *url.URL {
	p := path.Join(r.c.baseURL.Path, r.c.apiPath, r.c.apiVersion)
	if r.namespace != "" {
		p = path.Join(p, "namespaces", r.namespace)
	}
	p = path.Join(p, r.resource)

	u := *r.c.baseURL
	u.Path = p
	u.RawQuery = ""
	if len(r.params) > 0 {
		u.RawQuery = r.params.Encode()
	}
	return &u
}

func (r *Request) newHTTPRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, r.verb, r.URL().String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Do 执行请求并返回一个 Result 对象。
func (r *Request) Do(ctx context.Context) *Result {
	if r.err != nil {
		return &Result{err: r.err}
	}

	req, err := r.newHTTPRequest(ctx)
	if err != nil {
		return &Result{err: err}
	}

	klog.V(4).InfoS("Executing request", "method", req.Method, "url", req.URL)
	resp, err := r.c.httpClient.Do(req)
	if err != nil {
		return &Result{err: fmt.Errorf("request failed: %w", err)}
	}

	return &Result{
		body:       resp.Body,
		statusCode: resp.StatusCode,
		verb:       r.verb,
		resource:   r.resource,
	}
}

// Watch 以 watch=true 发起请求，并把响应体作为事件流返回。
// 事件中的对象按 apiVersion/kind 解码成对应的 core/v1 类型。
// 调用者通过 ctx 取消或者 Stop() 释放底层连接。
func (r *Request) Watch(ctx context.Context) (watch.Interface, error) {
	r.Param("watch", "true")
	if r.err != nil {
		return nil, r.err
	}

	req, err := r.newHTTPRequest(ctx)
	if err != nil {
		return nil, err
	}

	klog.V(4).InfoS("Opening watch", "url", req.URL)
	resp, err := r.c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("watch request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, newStatusError(resp.StatusCode, r.verb, r.resource, body)
	}

	decoder := newWatchDecoder(resp.Body)
	reporter := apierrors.NewClientErrorReporter(http.StatusInternalServerError, r.verb, "ClientWatchDecoding")
	return watch.NewStreamWatcher(decoder, reporter), nil
}

// Result 封装了请求的结果。
type Result struct {
	body       io.ReadCloser
	statusCode int
	verb       string
	resource   string
	err        error
}

// Raw 读取并返回原始的响应体 []byte。
// 非 2xx 的响应会被转换为 apierrors.StatusError。
func (r *Result) Raw() ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	defer r.body.Close()

	data, err := io.ReadAll(r.body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if r.statusCode < http.StatusOK || r.statusCode >= http.StatusMultipleChoices {
		return nil, newStatusError(r.statusCode, r.verb, r.resource, data)
	}
	return data, nil
}

// Into 解码响应体到传入的 obj 对象中。响应缺少 apiVersion/kind 时按 obj 的类型解码。
func (r *Result) Into(obj runtime.Object) error {
	data, err := r.Raw()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := runtime.DecodeInto(codecs.UniversalDeserializer(), data, obj); err != nil {
		return fmt.Errorf("failed to decode response into %T: %w", obj, err)
	}
	return nil
}
