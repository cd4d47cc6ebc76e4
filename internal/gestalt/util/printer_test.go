package util

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/fx147/gestalt/pkg/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var podNodes = []view.PodNodeSummary{
	{PodName: "web", PodNamespace: "default", PodStatus: "Running", NodeName: "n1", AllocatableMemory: "8Gi", NodeState: view.NodeFound},
	{PodName: "pending", PodNamespace: "default", PodStatus: "Pending", NodeState: view.NodeUnscheduled},
}

func TestPrintTables(t *testing.T) {
	t.Run("Nodes", func(t *testing.T) {
		var buf bytes.Buffer
		PrintNodesTable(&buf, []view.NodeSummary{{Name: "n1", AllocatableMemory: "8Gi"}, {Name: "n2"}})

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, []string{"NAME", "ALLOCATABLE", "MEMORY"}, strings.Fields(lines[0]))
		assert.Equal(t, []string{"n1", "8Gi"}, strings.Fields(lines[1]))
		assert.Equal(t, []string{"n2", "<none>"}, strings.Fields(lines[2]))
	})

	t.Run("Pods", func(t *testing.T) {
		var buf bytes.Buffer
		PrintPodsTable(&buf, []view.PodSummary{{Name: "web", Namespace: "default", Phase: "Running"}})

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, []string{"default", "web", "Running"}, strings.Fields(lines[1]))
	})

	t.Run("PodNodes", func(t *testing.T) {
		var buf bytes.Buffer
		PrintPodNodesTable(&buf, podNodes)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, []string{"default", "web", "Running", "n1", "8Gi", "found"}, strings.Fields(lines[1]))
		assert.Equal(t, []string{"default", "pending", "Pending", "<none>", "<none>", "unscheduled"}, strings.Fields(lines[2]))
	})
}

func TestPrint(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, OutputJSON, podNodes[:1], nil))
		assert.JSONEq(t, `[{"podName":"web","podNamespace":"default","podStatus":"Running",
			"nodeName":"n1","allocatableMemory":"8Gi","nodeState":"found"}]`, buf.String())
	})

	t.Run("YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, OutputYAML, podNodes[:1], nil))
		assert.YAMLEq(t, `
- podName: web
  podNamespace: default
  podStatus: Running
  nodeName: n1
  allocatableMemory: 8Gi
  nodeState: found
`, buf.String())
	})

	t.Run("Table", func(t *testing.T) {
		var buf bytes.Buffer
		called := false
		require.NoError(t, Print(&buf, OutputTable, podNodes, func(w io.Writer) { called = true }))
		assert.True(t, called)
	})

	t.Run("Unknown", func(t *testing.T) {
		var buf bytes.Buffer
		err := Print(&buf, "xml", podNodes, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown output format "xml"`)
		assert.Empty(t, buf.String())
	})
}
