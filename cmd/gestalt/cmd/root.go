package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

var (
	// cfgFile 用于存储配置文件的路径
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "gestalt",
		Short: "A live view of a Kubernetes cluster's nodes and pods",
		Long: `gestalt keeps an in-memory copy of the cluster's nodes and pods up to date
through list and watch, and serves it as small HTML fragments that a browser polls.

Use "gestalt serve" to start the web view and "gestalt get" for a one-shot listing.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
)

// Execute 执行根命令。出错时以非零状态码退出。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		klog.Flush()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gestalt.yaml)")

	// 集群连接相关的标志
	flags.String("kubeconfig", "", "Path to the kubeconfig file (defaults to $KUBECONFIG or ~/.kube/config)")
	flags.String("context", "", "The kubeconfig context to use")
	flags.StringP("namespace", "n", "", "Only show pods in this namespace (default: all namespaces)")

	viper.BindPFlag("kubeconfig", flags.Lookup("kubeconfig"))
	viper.BindPFlag("context", flags.Lookup("context"))
	viper.BindPFlag("namespace", flags.Lookup("namespace"))

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGetCmd())
}

// initConfig 读取配置文件和环境变量（如果设置了的话）。
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigName(".gestalt")
		viper.SetConfigType("yaml")
	}

	// 环境变量前缀，例如 GESTALT_ADDR、GESTALT_KUBECONFIG
	viper.SetEnvPrefix("GESTALT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			klog.Warningf("Error reading config file: %v", err)
		}
		return
	}
	klog.V(2).InfoS("Using config file", "path", viper.ConfigFileUsed())
}

// GetRootCmd 导出 rootCmd 以便 main.go 可以添加 klog 标志
func GetRootCmd() *cobra.Command {
	return rootCmd
}
