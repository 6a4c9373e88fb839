package datum

import (
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Node groups named datums. Datum names are unique within a node and are
// resolved from elsewhere as "node.datum".
type Node struct {
	graph  *Graph
	name   string
	datums *orderedmap.OrderedMap[string, *Datum]
	dead   bool
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ". \t\n")
}

// Name returns the node's name.
func (n *Node) Name() string {
	return n.name
}

// Graph returns the owning graph.
func (n *Node) Graph() *Graph {
	return n.graph
}

// NewDatum declares a datum on the node. A nil source makes an empty
// Literal. The datum holds no value until its first Update.
func (n *Node) NewDatum(name string, src Source, opts ...DatumOption) (*Datum, error) {
	if n.dead {
		return nil, ErrDestroyed
	}
	if !validName(name) {
		return nil, fmt.Errorf("datum %q: %w", name, ErrInvalidName)
	}
	if _, taken := n.datums.Get(name); taken {
		return nil, fmt.Errorf("datum %q in node %q: %w", name, n.name, ErrDuplicateName)
	}

	reg := n.graph.registry
	d := newDatum(n, reg.nextDatumID(), name, src, opts)
	if err := reg.Register(d); err != nil {
		return nil, fmt.Errorf("registering %s: %w", d.QualifiedName(), err)
	}
	n.datums.Set(name, d)
	return d, nil
}

// Datum returns the datum called name.
func (n *Node) Datum(name string) (*Datum, bool) {
	return n.datums.Get(name)
}

// Datums returns the node's datums in declaration order.
func (n *Node) Datums() []*Datum {
	out := make([]*Datum, 0, n.datums.Len())
	for pair := n.datums.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Destroy destroys every datum of the node, newest first, and removes the
// node from its graph.
func (n *Node) Destroy() {
	if n.dead {
		return
	}
	datums := n.Datums()
	for i := len(datums) - 1; i >= 0; i-- {
		datums[i].Destroy()
	}
	n.dead = true
	n.graph.nodes.Delete(n.name)
}

func (n *Node) remove(d *Datum) {
	if cur, ok := n.datums.Get(d.name); ok && cur == d {
		n.datums.Delete(d.name)
	}
}
