package main

import (
	"flag"

	"github.com/fx147/gestalt/cmd/gestalt/cmd"
	"k8s.io/klog/v2"
)

func main() {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)

	// 把 klog 的 -v、--logtostderr 等标志交给 cobra 解析
	cmd.GetRootCmd().PersistentFlags().AddGoFlagSet(fs)
	defer klog.Flush()

	cmd.Execute()
}
