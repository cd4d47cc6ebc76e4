package server

import (
	"bytes"
	"fmt"
	"math/rand"
	"net/http"

	"k8s.io/klog/v2"
)

const htmlContentType = "text/html; charset=utf-8"

// render 先把模板渲染到缓冲区，渲染失败时还能返回 500。
func render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		klog.ErrorS(err, "Failed to render template", "template", name, "requestID", requestIDFrom(r.Context()))
		http.Error(w, "failed to render "+name, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", htmlContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	render(w, r, "home.html", nil)
}

// random 返回一个随机数，用来在页面上观察轮询是否在工作。
func (s *Server) random(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", htmlContentType)
	fmt.Fprintf(w, "<p>%d</p>", rand.Uint32())
}

func (s *Server) nodes(w http.ResponseWriter, r *http.Request) {
	render(w, r, "nodes.html", s.composer.Nodes())
}

func (s *Server) pods(w http.ResponseWriter, r *http.Request) {
	render(w, r, "pods.html", s.composer.Pods())
}

func (s *Server) podNodes(w http.ResponseWriter, r *http.Request) {
	render(w, r, "podnodes.html", s.composer.PodNodes())
}

// healthz 在所有 Store 都完成第一次 list 之后返回 200。
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	switch {
	case s.clientErr != nil:
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "cluster client unavailable: %v\n", s.clientErr)
	case !s.composer.Synced():
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "caches not synced")
	default:
		fmt.Fprintln(w, "ok")
	}
}
