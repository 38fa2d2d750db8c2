package shared

import "iter"

// NodeIterator walks a materialized list of appearances once. It cannot be
// rewound; call SharedSet.All again for a fresh view.
type NodeIterator struct {
	nodes []Node
	pos   int
	cur   Node
}

func newNodeIterator(nodes []Node) *NodeIterator {
	return &NodeIterator{nodes: nodes}
}

// Next advances to the next appearance and reports whether there was one.
func (it *NodeIterator) Next() bool {
	if it.pos >= len(it.nodes) {
		it.cur = nil
		return false
	}
	it.cur = it.nodes[it.pos]
	it.pos++
	return true
}

// Node returns the appearance Next moved to.
func (it *NodeIterator) Node() Node { return it.cur }

// Len returns the total number of appearances, consumed or not.
func (it *NodeIterator) Len() int { return len(it.nodes) }

// Remaining returns how many appearances Next has yet to yield.
func (it *NodeIterator) Remaining() int { return len(it.nodes) - it.pos }

// Seq drains the iterator as a range-over-func sequence.
func (it *NodeIterator) Seq() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for it.Next() {
			if !yield(it.cur) {
				return
			}
		}
	}
}
