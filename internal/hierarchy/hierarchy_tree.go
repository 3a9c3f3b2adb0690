package hierarchy

import (
	"go-orgstructure/internal/orgposition"
	"go-orgstructure/internal/orgunit"

	"github.com/google/uuid"
)

// BuildTree menyusun pohon dari data datar dalam O(n).
// units harus sudah terurut sesuai sort; urutan itu dipakai untuk root dan children.
// Unit yang parent-nya tidak ikut ter-filter dipromosikan menjadi root.
func BuildTree(units []orgunit.Unit, positions []orgposition.Position, activeCounts map[uuid.UUID]int64) []*TreeNode {
	nodes := make(map[uuid.UUID]*TreeNode, len(units))
	for _, u := range units {
		nodes[u.ID] = &TreeNode{
			Unit:      ToUnitView(u),
			Positions: []PositionSlot{},
			Children:  []*TreeNode{},
		}
	}

	for _, p := range positions {
		node, ok := nodes[p.UnitID]
		if !ok {
			continue
		}
		node.Positions = append(node.Positions, ToPositionSlot(p, activeCounts[p.ID]))
	}

	parentOf := make(map[uuid.UUID]uuid.UUID, len(units))
	roots := make([]*TreeNode, 0)
	for _, u := range units {
		node := nodes[u.ID]
		if u.ParentID != nil && *u.ParentID != u.ID {
			if parent, ok := nodes[*u.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				parentOf[u.ID] = *u.ParentID
				continue
			}
		}
		roots = append(roots, node)
	}

	reachable := make(map[string]bool, len(units))
	for _, root := range roots {
		markReachable(root, reachable)
	}
	if len(reachable) == len(units) {
		return roots
	}

	// Siklus di data: tidak ada jalan dari root mana pun. Putus di node pertama
	// (menurut urutan sort) supaya subtree tetap tampil.
	for _, u := range units {
		node := nodes[u.ID]
		if reachable[node.Unit.ID] {
			continue
		}
		if parentID, ok := parentOf[u.ID]; ok {
			parent := nodes[parentID]
			parent.Children = removeChild(parent.Children, node)
		}
		roots = append(roots, node)
		markReachable(node, reachable)
	}

	return roots
}

func markReachable(root *TreeNode, reachable map[string]bool) {
	stack := []*TreeNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[n.Unit.ID] {
			continue
		}
		reachable[n.Unit.ID] = true
		stack = append(stack, n.Children...)
	}
}

func removeChild(children []*TreeNode, target *TreeNode) []*TreeNode {
	out := children[:0]
	for _, c := range children {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}

// CountNodes menghitung seluruh node di forest.
func CountNodes(roots []*TreeNode) int {
	total := 0
	for _, r := range roots {
		total += 1 + CountNodes(r.Children)
	}
	return total
}
