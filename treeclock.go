// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package arbor

import "github.com/vmihailenco/msgpack/v5"

// TreeClockDiff has the same shape as TreeClock and represents the delta
// applied to produce a new message: its root names the producing domain,
// its label is the new label assigned there, and each child edge (if
// present) carries the upstream label that contributed.
type TreeClockDiff = TreeClock

// AddrLabels maps a replica address to every label observed for it. A
// domain may legitimately appear more than once in a tree when the graph
// has reconvergent paths, so this is a slice, not a single value.
type AddrLabels map[ReplicaAddr][]Label

// TreeClock is a rooted tree recording, for every domain on the upstream
// causal path of a message, the label of the upstream message that
// contributed to it. Children are keyed by their own root address; the
// tree shape mirrors a depth-truncated prefix of the reverse domain graph.
//
// A TreeClock is owned exclusively by the domain thread that holds it;
// nothing here is safe for concurrent mutation.
type TreeClock struct {
	root  ReplicaAddr
	label Label
	edges map[ReplicaAddr]*TreeClock
}

// New returns a leaf TreeClock (or diff) with no children.
func New(root ReplicaAddr, label Label) *TreeClock {
	return &TreeClock{root: root, label: label, edges: make(map[ReplicaAddr]*TreeClock)}
}

// NewWith returns a TreeClock with the given children already attached.
func NewWith(root ReplicaAddr, label Label, children ...*TreeClock) *TreeClock {
	t := New(root, label)
	for _, c := range children {
		t.AddChild(c)
	}
	return t
}

// AddChild attaches child under its own root address.
func (t *TreeClock) AddChild(child *TreeClock) {
	t.edges[child.root] = child
}

// Root returns the replica address this node is rooted at.
func (t *TreeClock) Root() ReplicaAddr { return t.root }

// Label returns the label recorded at this node.
func (t *TreeClock) Label() Label { return t.label }

// Edges returns the child clocks, keyed by their own root address. The
// returned map is the TreeClock's own storage; callers must not mutate it.
func (t *TreeClock) Edges() map[ReplicaAddr]*TreeClock { return t.edges }

// SetShard rewrites only the shard component of root, used when a sharded
// domain is instantiated as one specific shard.
func (t *TreeClock) SetShard(s ShardIndex) { t.root.Shard = s }

// SetLabel overwrites the label at this node directly.
func (t *TreeClock) SetLabel(l Label) { t.label = l }

// Init initializes an empty clock rooted at root by traversing incoming
// edges of rootNI in graph up to depth hops. At depth == 1 the clock has
// no children. All labels start at 0.
func (t *TreeClock) Init(g *DomainGraph, root ReplicaAddr, rootNI DomainIndex, depth int) {
	addr, ok := g.Addr(rootNI)
	invariant(ok && addr == root, "treeclock: Init root mismatch: graph[%v] != %v", rootNI, root)
	invariant(depth >= 1, "treeclock: Init depth must be >= 1, got %d", depth)

	t.root = root
	t.label = 0
	t.edges = make(map[ReplicaAddr]*TreeClock)

	if depth == 1 {
		return
	}
	for _, childNI := range g.Predecessors(rootNI) {
		childAddr, ok := g.Addr(childNI)
		if !ok {
			continue
		}
		child := &TreeClock{}
		child.Init(g, childAddr, childNI, depth-1)
		t.edges[childAddr] = child
	}
}

// ApplyUpdate applies a diff produced further downstream. self.root must
// equal update.root and self.label must not exceed update.label; a diff
// that arrives with an equal label is a no-op (labels further in the
// future subsume earlier ones, so the short-circuit keeps apply
// idempotent). Returns the previous and new label for every address whose
// label changed, not including self's own root.
func (t *TreeClock) ApplyUpdate(update *TreeClockDiff) (changedOld, changedNew AddrLabels) {
	changedOld = make(AddrLabels)
	changedNew = make(AddrLabels)
	t.applyUpdateInternal(update, changedOld, changedNew)
	delete(changedOld, t.root)
	delete(changedNew, t.root)
	return changedOld, changedNew
}

func (t *TreeClock) applyUpdateInternal(update *TreeClockDiff, changedOld, changedNew AddrLabels) {
	invariant(t.root == update.root, "treeclock: apply_update root mismatch: %v != %v", t.root, update.root)
	invariant(t.label <= update.label, "treeclock: apply_update label went backwards at %v: %d > %d", t.root, t.label, update.label)

	if t.label >= update.label {
		// Equal-label short circuit: this and every earlier apply of the
		// same label are no-ops, which is what makes ApplyUpdate idempotent.
		return
	}

	changedOld[t.root] = append(changedOld[t.root], t.label)
	changedNew[t.root] = append(changedNew[t.root], update.label)
	t.label = update.label

	for addr, childDiff := range update.edges {
		if child, ok := t.edges[addr]; ok {
			child.applyUpdateInternal(childDiff, changedOld, changedNew)
		}
		// A diff entry with no matching child here is ignored: the
		// consumer's view is shallower than the producer's.
	}
}

// Union destructively merges other's children into self. Roots and labels
// of self and other must already be equal. Shared children recurse; unique
// children of other are moved in without copying.
func (t *TreeClock) Union(other *TreeClock) {
	invariant(t.root == other.root, "treeclock: union root mismatch: %v != %v", t.root, other.root)
	invariant(t.label == other.label, "treeclock: union label mismatch at %v: %d != %d", t.root, t.label, other.label)

	for addr, otherChild := range other.edges {
		if child, ok := t.edges[addr]; ok {
			child.Union(otherChild)
		} else {
			t.edges[addr] = otherChild
		}
	}
}

// MaxUnion combines provenance reported by multiple replicas on recovery.
// Roots must match; self.label becomes max(self.label, other.label), and
// every child is recursed into if present, otherwise deep-cloned from
// other.
func (t *TreeClock) MaxUnion(other *TreeClock) {
	invariant(t.root == other.root, "treeclock: max_union root mismatch: %v != %v", t.root, other.root)

	if other.label > t.label {
		t.label = other.label
	}
	for addr, otherChild := range other.edges {
		if child, ok := t.edges[addr]; ok {
			child.MaxUnion(otherChild)
		} else {
			t.edges[addr] = otherChild.Clone()
		}
	}
}

// Trim bounds the per-message payload: at depth == 1, drop all edges;
// otherwise recurse at depth-1. A domain operating with trim depth d
// guarantees every message carries at most depth-d provenance.
func (t *TreeClock) Trim(depth int) {
	invariant(depth >= 1, "treeclock: Trim depth must be >= 1, got %d", depth)

	if depth == 1 {
		t.edges = make(map[ReplicaAddr]*TreeClock)
		return
	}
	for _, child := range t.edges {
		child.Trim(depth - 1)
	}
}

// Subgraph returns the child (or grandchild) TreeClock rooted at newRoot,
// if one exists in the immediate or second tier. Used during failover:
// when a domain is replaced, its consumer extracts the subgraph rooted at
// the replacement to seed the new edge.
func (t *TreeClock) Subgraph(newRoot ReplicaAddr) *TreeClock {
	if child, ok := t.edges[newRoot]; ok {
		return child
	}
	for _, child := range t.edges {
		if grandchild, ok := child.edges[newRoot]; ok {
			return grandchild
		}
	}
	return nil
}

// NewIncoming rewrites self's edge to a failed-over producer: old is
// removed and replaced by new. If old's own subtree has a child equal to
// new (the replacement was old's own upstream, a grand-ancestor
// promotion), that grandchild is hoisted to become a direct child of self
// and the intermediate old subtree is dropped; NewIncoming returns true.
// Otherwise the simpler case applies: old's subtree is kept, its root
// rewritten to new, and reinserted; NewIncoming returns false.
func (t *TreeClock) NewIncoming(old, repl ReplicaAddr) bool {
	sub, ok := t.edges[old]
	invariant(ok, "treeclock: new_incoming: no existing edge for %v", old)
	delete(t.edges, old)

	if grandchild, ok := sub.edges[repl]; ok {
		t.edges[repl] = grandchild
		return true
	}

	sub.root = repl
	t.edges[repl] = sub
	return false
}

// IntoAddrLabels flattens the tree into a map from replica address to every
// label seen for it. A domain may appear more than once when the graph is
// reconvergent; order within each list is a traversal artifact.
func (t *TreeClock) IntoAddrLabels() AddrLabels {
	out := make(AddrLabels)
	var walk func(*TreeClock)
	walk = func(n *TreeClock) {
		out[n.root] = append(out[n.root], n.label)
		for _, child := range n.edges {
			walk(child)
		}
	}
	walk(t)
	return out
}

// Zero recursively resets every label in the tree to 0, leaving shape and
// addresses untouched. Used to seed a diff skeleton before a domain has
// sent anything.
func (t *TreeClock) Zero() {
	t.label = 0
	for _, child := range t.edges {
		child.Zero()
	}
}

// Parent returns the sole child of a diff that is known to have at most
// one, modeling the common case of a stateless single-parent domain's
// diff. Panics if there is more than one child.
func (t *TreeClock) Parent() (*TreeClock, bool) {
	invariant(len(t.edges) <= 1, "treeclock: Parent called on a node with %d children", len(t.edges))
	for _, child := range t.edges {
		return child, true
	}
	return nil, false
}

// wireTreeClock is the exported shape TreeClock marshals itself through:
// its own fields are unexported so callers can't mutate the tree without
// going through the methods above, so the wire form needs its own
// encode/decode pair rather than struct tags.
type wireTreeClock struct {
	Root     ReplicaAddr                `msgpack:"root"`
	Label    Label                      `msgpack:"label"`
	Children map[ReplicaAddr]*TreeClock `msgpack:"children"`
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (t *TreeClock) EncodeMsgpack(enc *msgpack.Encoder) error {
	if t == nil {
		return enc.EncodeNil()
	}
	return enc.Encode(&wireTreeClock{Root: t.root, Label: t.label, Children: t.edges})
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (t *TreeClock) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w wireTreeClock
	if err := dec.Decode(&w); err != nil {
		return err
	}
	t.root = w.Root
	t.label = w.Label
	t.edges = w.Children
	if t.edges == nil {
		t.edges = make(map[ReplicaAddr]*TreeClock)
	}
	return nil
}

// Clone deep-copies the tree.
func (t *TreeClock) Clone() *TreeClock {
	clone := &TreeClock{
		root:  t.root,
		label: t.label,
		edges: make(map[ReplicaAddr]*TreeClock, len(t.edges)),
	}
	for addr, child := range t.edges {
		clone.edges[addr] = child.Clone()
	}
	return clone
}
