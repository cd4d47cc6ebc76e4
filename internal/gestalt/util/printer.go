package util

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fx147/gestalt/pkg/view"
	"sigs.k8s.io/yaml"
)

// 支持的输出格式
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// ValidateOutputFormat 检查 -o 参数是否合法。
func ValidateOutputFormat(format string) error {
	switch format {
	case OutputTable, OutputJSON, OutputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected one of: table, json, yaml)", format)
	}
}

// Print 按 format 输出 v。table 格式调用 printTable，其余格式直接序列化 v。
func Print(out io.Writer, format string, v interface{}, printTable func(io.Writer)) error {
	switch format {
	case OutputTable, "":
		printTable(out)
		return nil
	case OutputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case OutputYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		_, err = out.Write(data)
		return err
	default:
		return ValidateOutputFormat(format)
	}
}

func newTabWriter(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
}

// PrintNodesTable 将节点列表以表格形式打印到指定的 writer。
func PrintNodesTable(out io.Writer, nodes []view.NodeSummary) {
	w := newTabWriter(out)
	defer w.Flush()

	fmt.Fprintln(w, "NAME\tALLOCATABLE MEMORY")
	for _, node := range nodes {
		fmt.Fprintf(w, "%s\t%s\n", node.Name, orNone(node.AllocatableMemory))
	}
}

// PrintPodsTable 将 Pod 列表以表格形式打印到指定的 writer。
func PrintPodsTable(out io.Writer, pods []view.PodSummary) {
	w := newTabWriter(out)
	defer w.Flush()

	fmt.Fprintln(w, "NAMESPACE\tNAME\tSTATUS")
	for _, pod := range pods {
		fmt.Fprintf(w, "%s\t%s\t%s\n", pod.Namespace, pod.Name, orNone(pod.Phase))
	}
}

func PrintPodNodesTable(out io.Writer, items []view.PodNodeSummary) {
	w := newTabWriter(out)
	defer w.Flush()

	fmt.Fprintln(w, "NAMESPACE\tNAME\tSTATUS\tNODE\tALLOCATABLE MEMORY\tNODE STATE")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			item.PodNamespace,
			item.PodName,
			orNone(item.PodStatus),
			orNone(item.NodeName),
			orNone(item.AllocatableMemory),
			item.NodeState,
		)
	}
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}
