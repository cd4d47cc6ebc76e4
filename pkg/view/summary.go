package view

import (
	"sort"

	"github.com/fx147/gestalt/pkg/cache"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/klog/v2"
)

// NodeState 描述 Pod 所在节点在节点缓存中的状态。
type NodeState string

const (
	// NodeFound 节点存在于节点缓存中。
	NodeFound NodeState = "found"
	// NodeUnscheduled Pod 还没有被调度到任何节点。
	NodeUnscheduled NodeState = "unscheduled"
	// NodeUnknown Pod 声明的节点在节点缓存中不存在（调度进行中或节点缓存滞后）。
	NodeUnknown NodeState = "unknown"
)

// Unknown 是节点缺失时 AllocatableMemory 的占位值。
const Unknown = "unknown"

type NodeSummary struct {
	Name              string `json:"name"`
	AllocatableMemory string `json:"allocatableMemory"`
}

type PodSummary struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Phase     string `json:"phase"`
}

// PodNodeSummary 是一个 Pod 和它所在节点的联合视图。
type PodNodeSummary struct {
	PodName           string    `json:"podName"`
	PodNamespace      string    `json:"podNamespace"`
	PodStatus         string    `json:"podStatus"`
	NodeName          string    `json:"nodeName"`
	AllocatableMemory string    `json:"allocatableMemory"`
	NodeState         NodeState `json:"nodeState"`
}

func allocatableMemory(node *corev1.Node) string {
	q, ok := node.Status.Allocatable[corev1.ResourceMemory]
	if !ok {
		return ""
	}
	return q.String()
}

// NodeSummaryFor 从 Node 对象中提取名称和可分配内存。
func NodeSummaryFor(node *corev1.Node) NodeSummary {
	return NodeSummary{Name: node.Name, AllocatableMemory: allocatableMemory(node)}
}

func PodSummaryFor(pod *corev1.Pod) PodSummary {
	return PodSummary{Name: pod.Name, Namespace: pod.Namespace, Phase: string(pod.Status.Phase)}
}

// Nodes 将节点记录转换为摘要，按名称排序。非 Node 的记录被跳过。
func Nodes(records []cache.ObjectRecord) []NodeSummary {
	out := make([]NodeSummary, 0, len(records))
	for _, record := range records {
		node, ok := record.Object.(*corev1.Node)
		if !ok {
			klog.V(4).InfoS("Skipping non-node record", "key", record.Key)
			continue
		}
		out = append(out, NodeSummaryFor(node))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Pods 将 Pod 记录转换为摘要，按 namespace/name 排序。
func Pods(records []cache.ObjectRecord) []PodSummary {
	out := make([]PodSummary, 0, len(records))
	for _, record := range records {
		pod, ok := record.Object.(*corev1.Pod)
		if !ok {
			klog.V(4).InfoS("Skipping non-pod record", "key", record.Key)
			continue
		}
		out = append(out, PodSummaryFor(pod))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Join 把每个 Pod 和它声明的节点关联起来。
//
// 节点查找失败不会让整个结果失败：未调度的 Pod 得到 NodeUnscheduled，
// 声明的节点不在节点集合里的 Pod 保留节点名并得到 NodeUnknown。
// 返回的条目数总是等于 Pod 的数量。
func Join(pods, nodes []cache.ObjectRecord) []PodNodeSummary {
	byName := make(map[string]*corev1.Node, len(nodes))
	for _, record := range nodes {
		if node, ok := record.Object.(*corev1.Node); ok {
			byName[node.Name] = node
		}
	}

	out := make([]PodNodeSummary, 0, len(pods))
	for _, record := range pods {
		pod, ok := record.Object.(*corev1.Pod)
		if !ok {
			klog.V(4).InfoS("Skipping non-pod record", "key", record.Key)
			continue
		}

		summary := PodNodeSummary{
			PodName:      pod.Name,
			PodNamespace: pod.Namespace,
			PodStatus:    string(pod.Status.Phase),
			NodeName:     pod.Spec.NodeName,
		}
		switch node, found := byName[pod.Spec.NodeName]; {
		case pod.Spec.NodeName == "":
			summary.NodeState = NodeUnscheduled
		case !found:
			klog.V(4).InfoS("Node not found for pod", "pod", klog.KObj(pod), "node", pod.Spec.NodeName)
			summary.NodeState = NodeUnknown
			summary.AllocatableMemory = Unknown
		default:
			summary.NodeState = NodeFound
			summary.AllocatableMemory = allocatableMemory(node)
		}
		out = append(out, summary)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].PodNamespace != out[j].PodNamespace {
			return out[i].PodNamespace < out[j].PodNamespace
		}
		return out[i].PodName < out[j].PodName
	})
	return out
}

// Composer 在两个 Store 之上回答跨资源的查询。它只读 Store，从不写入。
type Composer struct {
	pods  *cache.Store
	nodes *cache.Store
}

func NewComposer(pods, nodes *cache.Store) *Composer {
	return &Composer{pods: pods, nodes: nodes}
}

func (c *Composer) Nodes() []NodeSummary {
	return Nodes(c.nodes.Snapshot())
}

func (c *Composer) Pods() []PodSummary {
	return Pods(c.pods.Snapshot())
}

// PodNodes 对两个 Store 各取一次快照再做关联。
// 两个快照之间没有一致性保证，节点缓存可能落后于 Pod 缓存。
func (c *Composer) PodNodes() []PodNodeSummary {
	return Join(c.pods.Snapshot(), c.nodes.Snapshot())
}

// Synced 在两个 Store 都完成第一次 list 之后返回 true。
func (c *Composer) Synced() bool {
	return c.pods.HasSynced() && c.nodes.HasSynced()
}
