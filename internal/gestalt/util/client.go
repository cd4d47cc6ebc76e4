package util

import (
	"fmt"

	"github.com/fx147/gestalt/pkg/client/clientset"
	"github.com/spf13/viper"
	restclient "k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// ClientOptions 描述如何找到集群：kubeconfig 路径和其中的 context。
// 两者都为空时使用 kubectl 的默认规则（$KUBECONFIG、~/.kube/config 或集群内配置）。
type ClientOptions struct {
	Kubeconfig string
	Context    string
}

// ClientOptionsFromFlags 从 viper 中读取全局标志。
func ClientOptionsFromFlags() ClientOptions {
	return ClientOptions{
		Kubeconfig: viper.GetString("kubeconfig"),
		Context:    viper.GetString("context"),
	}
}

// RESTConfig 解析 kubeconfig，得到 client-go 的 rest.Config。
func (o ClientOptions) RESTConfig() (*restclient.Config, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if o.Kubeconfig != "" {
		rules.ExplicitPath = o.Kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: o.Context}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	return cfg, nil
}

// NewClientset 根据 o 创建一个 Clientset。
func (o ClientOptions) NewClientset() (*clientset.Clientset, error) {
	cfg, err := o.RESTConfig()
	if err != nil {
		return nil, err
	}
	return clientset.NewForConfig(cfg)
}

// NewClientsetFromFlags 从 viper 中读取全局标志，并创建一个新的 Clientset。
func NewClientsetFromFlags() (*clientset.Clientset, error) {
	return ClientOptionsFromFlags().NewClientset()
}
