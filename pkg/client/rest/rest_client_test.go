package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
)

// newTestClient 创建一个指向模拟 API Server 的客户端。
func newTestClient(t *testing.T, handler http.HandlerFunc) *RESTClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewRESTClient(server.URL, server.Client())
	require.NoError(t, err)
	return client
}

func newNode(name, rv string) corev1.Node {
	return corev1.Node{
		TypeMeta:   metav1.TypeMeta{Kind: "Node", APIVersion: "v1"},
		ObjectMeta: metav1.ObjectMeta{Name: name, ResourceVersion: rv},
	}
}

func writeStatus(w http.ResponseWriter, code int, reason metav1.StatusReason, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(metav1.Status{
		TypeMeta: metav1.TypeMeta{Kind: "Status", APIVersion: "v1"},
		Status:   metav1.StatusFailure,
		Code:     int32(code),
		Reason:   reason,
		Message:  message,
	})
}

func TestNewRESTClient(t *testing.T) {
	_, err := NewRESTClient("localhost:6443", nil)
	assert.Error(t, err, "缺少 scheme 的地址应该被拒绝")

	c, err := NewRESTClient("https://10.0.0.1:6443/k8s/clusters/c-1", nil)
	require.NoError(t, err)
	u := c.Get().Namespace("default").Resource("pods").Param("watch", "true").URL()
	assert.Equal(t, "/k8s/clusters/c-1/api/v1/namespaces/default/pods", u.Path)
	assert.Equal(t, "watch=true", u.RawQuery)
}

func TestRESTClient_List(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// 验证请求方法和路径
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/nodes", r.URL.Path)
		assert.Equal(t, "app=web", r.URL.Query().Get("labelSelector"))

		list := corev1.NodeList{
			TypeMeta: metav1.TypeMeta{Kind: "NodeList", APIVersion: "v1"},
			ListMeta: metav1.ListMeta{ResourceVersion: "100"},
			Items:    []corev1.Node{newNode("n1", "90"), newNode("n2", "95")},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	})

	var list corev1.NodeList
	err := client.Get().
		Resource("nodes").
		ListOptions(metav1.ListOptions{LabelSelector: "app=web"}).
		Do(context.Background()).
		Into(&list)
	require.NoError(t, err)

	assert.Equal(t, "100", list.ResourceVersion)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "n1", list.Items[0].Name)
	assert.Equal(t, "95", list.Items[1].ResourceVersion)
}

func TestRESTClient_StatusErrors(t *testing.T) {
	// --- 测试 API Server 返回 Status 对象 ---
	t.Run("Status", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeStatus(w, http.StatusGone, metav1.StatusReasonExpired, "too old resource version: 1 (50)")
		})

		err := client.Get().Resource("pods").Do(context.Background()).Into(&corev1.PodList{})
		require.Error(t, err)
		assert.True(t, apierrors.IsResourceExpired(err), "expected Expired, got %v", err)
	})

	// --- 测试非 Status 的错误响应 ---
	t.Run("PlainBody", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
		})

		err := client.Get().Resource("pods").Do(context.Background()).Into(&corev1.PodList{})
		require.Error(t, err)

		var status apierrors.APIStatus
		require.True(t, errors.As(err, &status))
		assert.EqualValues(t, http.StatusInternalServerError, status.Status().Code)
	})

	// --- 测试构造阶段的错误会被透传 ---
	t.Run("BuilderError", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("request should not have been sent")
		})

		err := client.Get().Resource("nodes").Resource("pods").Do(context.Background()).Into(&corev1.NodeList{})
		assert.ErrorContains(t, err, `resource already set to "nodes"`)
	})
}

// collect 读取 watch 的所有事件，直到 channel 被关闭。
func collect(t *testing.T, w watch.Interface) []watch.Event {
	t.Helper()
	var events []watch.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-w.ResultChan():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for watch to close, got %d events", len(events))
		}
	}
}

func TestRESTClient_Watch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v1/nodes", r.URL.Path)
		assert.Equal(t, "true", q.Get("watch"))
		assert.Equal(t, "100", q.Get("resourceVersion"))
		assert.Equal(t, "true", q.Get("allowWatchBookmarks"))

		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		n1 := newNode("n1", "101")
		n1Updated := newNode("n1", "102")
		bookmark := corev1.Node{
			TypeMeta:   metav1.TypeMeta{Kind: "Node", APIVersion: "v1"},
			ObjectMeta: metav1.ObjectMeta{ResourceVersion: "103"},
		}
		n1Deleted := newNode("n1", "104")
		for _, frame := range []map[string]interface{}{
			{"type": "ADDED", "object": n1},
			{"type": "MODIFIED", "object": n1Updated},
			{"type": "BOOKMARK", "object": bookmark},
			{"type": "DELETED", "object": n1Deleted},
		} {
			assert.NoError(t, enc.Encode(frame))
			w.(http.Flusher).Flush()
		}
	})

	w, err := client.Get().
		Resource("nodes").
		ListOptions(metav1.ListOptions{ResourceVersion: "100", AllowWatchBookmarks: true}).
		Watch(context.Background())
	require.NoError(t, err)
	defer w.Stop()

	events := collect(t, w)
	require.Len(t, events, 4)

	wantTypes := []watch.EventType{watch.Added, watch.Modified, watch.Bookmark, watch.Deleted}
	wantRVs := []string{"101", "102", "103", "104"}
	for i, ev := range events {
		assert.Equal(t, wantTypes[i], ev.Type)
		node, ok := ev.Object.(*corev1.Node)
		require.True(t, ok, "event %d carries %T", i, ev.Object)
		assert.Equal(t, wantRVs[i], node.ResourceVersion)
	}
}

func TestRESTClient_WatchErrors(t *testing.T) {
	// --- 测试流中的 ERROR 帧 ---
	t.Run("ErrorFrame", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			status := metav1.Status{
				TypeMeta: metav1.TypeMeta{Kind: "Status", APIVersion: "v1"},
				Status:   metav1.StatusFailure,
				Code:     http.StatusGone,
				Reason:   metav1.StatusReasonExpired,
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"type": "ERROR", "object": status})
		})

		w, err := client.Get().Resource("nodes").Watch(context.Background())
		require.NoError(t, err)
		defer w.Stop()

		events := collect(t, w)
		require.Len(t, events, 1)
		assert.Equal(t, watch.Error, events[0].Type)
		status, ok := events[0].Object.(*metav1.Status)
		require.True(t, ok)
		assert.EqualValues(t, http.StatusGone, status.Code)
	})

	// --- 测试 watch 请求本身被拒绝 ---
	t.Run("RejectedRequest", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeStatus(w, http.StatusGone, metav1.StatusReasonGone, "history compacted")
		})

		_, err := client.Get().Resource("nodes").Watch(context.Background())
		require.Error(t, err)
		assert.True(t, apierrors.IsGone(err), "expected Gone, got %v", err)
	})

	// --- 测试无法解析的帧 ---
	t.Run("GarbageFrame", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"type":"SURPRISE","object":{}}`))
		})

		w, err := client.Get().Resource("nodes").Watch(context.Background())
		require.NoError(t, err)
		defer w.Stop()

		events := collect(t, w)
		require.Len(t, events, 1)
		assert.Equal(t, watch.Error, events[0].Type)
	})
}
