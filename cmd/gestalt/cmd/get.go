package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/fx147/gestalt/internal/gestalt/util"
	"github.com/fx147/gestalt/pkg/cache"
	"github.com/fx147/gestalt/pkg/client/clientset"
	"github.com/fx147/gestalt/pkg/listwatch"
	"github.com/fx147/gestalt/pkg/view"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const listTimeout = 30 * time.Second

// newGetCmd 创建 get 命令
func newGetCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get [resource]",
		Short: "Display nodes, pods, or pods joined with their nodes",
		Long:  `Lists the requested resources once and prints them, without starting a watch.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return util.ValidateOutputFormat(output)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", util.OutputTable, "Output format: table, json or yaml")

	cmd.AddCommand(newGetNodesCmd(&output))
	cmd.AddCommand(newGetPodsCmd(&output))
	cmd.AddCommand(newGetPodNodesCmd(&output))
	return cmd
}

func newGetNodesCmd(output *string) *cobra.Command {
	return &cobra.Command{
		Use:     "nodes",
		Short:   "Display a list of nodes",
		Aliases: []string{"node", "no"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := util.NewClientsetFromFlags()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), listTimeout)
			defer cancel()

			records, _, err := listwatch.ForNodes(cs).List(ctx)
			if err != nil {
				return err
			}
			nodes := view.Nodes(records)
			return util.Print(os.Stdout, *output, nodes, func(w io.Writer) { util.PrintNodesTable(w, nodes) })
		},
	}
}

func newGetPodsCmd(output *string) *cobra.Command {
	return &cobra.Command{
		Use:     "pods",
		Short:   "Display a list of pods",
		Aliases: []string{"pod", "po"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := util.NewClientsetFromFlags()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), listTimeout)
			defer cancel()

			records, _, err := listwatch.ForPods(cs, viper.GetString("namespace")).List(ctx)
			if err != nil {
				return err
			}
			pods := view.Pods(records)
			return util.Print(os.Stdout, *output, pods, func(w io.Writer) { util.PrintPodsTable(w, pods) })
		},
	}
}

func newGetPodNodesCmd(output *string) *cobra.Command {
	return &cobra.Command{
		Use:     "podnodes",
		Short:   "Display pods together with the node they run on",
		Aliases: []string{"podnode", "pn"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := util.NewClientsetFromFlags()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), listTimeout)
			defer cancel()

			pods, nodes, err := listPodsAndNodes(ctx, cs, viper.GetString("namespace"))
			if err != nil {
				return err
			}
			items := view.Join(pods, nodes)
			return util.Print(os.Stdout, *output, items, func(w io.Writer) { util.PrintPodNodesTable(w, items) })
		},
	}
}

// listPodsAndNodes 并发地列出 Pod 和 Node。
func listPodsAndNodes(ctx context.Context, cs clientset.Interface, namespace string) (pods, nodes []cache.ObjectRecord, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pods, _, err = listwatch.ForPods(cs, namespace).List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		nodes, _, err = listwatch.ForNodes(cs).List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return pods, nodes, nil
}
