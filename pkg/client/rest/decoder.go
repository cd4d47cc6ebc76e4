package rest

import (
	"io"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/serializer/streaming"
	"k8s.io/apimachinery/pkg/watch"
	restclientwatch "k8s.io/client-go/rest/watch"
)

// newWatchDecoder 把 watch 响应体包装成 watch.Decoder：
// JSON framer 逐帧切分 metav1.WatchEvent，帧内的对象再按 apiVersion/kind 解码。
// 组装方式和 client-go 的 Request.Watch 一致。
func newWatchDecoder(body io.ReadCloser) watch.Decoder {
	info, _ := runtime.SerializerInfoForMediaType(codecs.SupportedMediaTypes(), runtime.ContentTypeJSON)
	frameReader := info.StreamSerializer.Framer.NewFrameReader(body)
	eventDecoder := streaming.NewDecoder(frameReader, info.StreamSerializer.Serializer)
	return restclientwatch.NewDecoder(eventDecoder, codecs.UniversalDeserializer())
}
