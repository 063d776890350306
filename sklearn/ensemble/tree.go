package ensemble

// Node is a single node of a regression tree. Leaves have Left == Right == -1.
type Node struct {
	Feature   int
	Threshold float64 // rows with value <= Threshold go left
	Bin       int     // bin index matching Threshold, used during training
	Left      int
	Right     int
	Value     float64
	Gain      float64
	Hess      float64
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.Left == -1 && n.Right == -1
}

// Tree is one boosting round. Its output is the leaf value scaled by
// ShrinkageRate.
type Tree struct {
	Nodes         []Node
	ShrinkageRate float64
}

// Predict returns the shrunk leaf value reached by a raw feature row.
func (t *Tree) Predict(row []float64) float64 {
	id := 0
	for id >= 0 && id < len(t.Nodes) {
		node := &t.Nodes[id]
		if node.IsLeaf() {
			return node.Value * t.ShrinkageRate
		}
		if row[node.Feature] <= node.Threshold {
			id = node.Left
		} else {
			id = node.Right
		}
	}
	return 0
}

// predictBinned walks the tree on binned training data.
func (t *Tree) predictBinned(binned [][]uint16, i int) float64 {
	id := 0
	for id >= 0 && id < len(t.Nodes) {
		node := &t.Nodes[id]
		if node.IsLeaf() {
			return node.Value * t.ShrinkageRate
		}
		if int(binned[node.Feature][i]) <= node.Bin {
			id = node.Left
		} else {
			id = node.Right
		}
	}
	return 0
}

// NumLeaves counts the leaves of the tree.
func (t *Tree) NumLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

// Depth returns the depth of the deepest leaf; a single leaf has depth 0.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(id, d int) int
	walk = func(id, d int) int {
		n := &t.Nodes[id]
		if n.IsLeaf() {
			return d
		}
		return max(walk(n.Left, d+1), walk(n.Right, d+1))
	}
	return walk(0, 0)
}
