package datum

import (
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Graph owns nodes and their datums, the name registry, and the
// extensions observing propagation. A Graph is not safe for concurrent
// use; all propagation runs synchronously on the caller's goroutine.
type Graph struct {
	registry   *Registry
	nodes      *orderedmap.OrderedMap[string, *Node]
	extensions []Extension

	log        logrus.FieldLogger
	renderHook RenderHook
	cmpOpts    []cmp.Option
	equalFn    func(a, b Value) bool
	formatter  func(Value) string
}

// GraphOption is a modifier for graphs
type GraphOption func(*Graph)

// WithLogger sets the logger used for debug output.
func WithLogger(log logrus.FieldLogger) GraphOption {
	return func(g *Graph) {
		g.log = log
	}
}

// WithRegistry shares an existing name registry.
func WithRegistry(r *Registry) GraphOption {
	return func(g *Graph) {
		g.registry = r
	}
}

// WithRenderHook installs the render-task collaborator.
func WithRenderHook(h RenderHook) GraphOption {
	return func(g *Graph) {
		g.renderHook = h
	}
}

// WithCmpOptions adds go-cmp options used when comparing a freshly
// computed value with the cached one.
func WithCmpOptions(opts ...cmp.Option) GraphOption {
	return func(g *Graph) {
		g.cmpOpts = append(g.cmpOpts, opts...)
	}
}

// WithEqual replaces value comparison entirely.
func WithEqual(eq func(a, b Value) bool) GraphOption {
	return func(g *Graph) {
		g.equalFn = eq
	}
}

// WithFormatter sets how values are shown for datums driven by links and
// for Literal sources.
func WithFormatter(f func(Value) string) GraphOption {
	return func(g *Graph) {
		g.formatter = f
	}
}

// WithExtension returns an option that registers an extension to a graph
func WithExtension(ext Extension) GraphOption {
	return func(g *Graph) {
		if err := g.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// NewGraph creates an empty graph.
func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{
		registry: NewRegistry(),
		nodes:    orderedmap.New[string, *Node](),
		log:      logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Registry returns the graph's name registry.
func (g *Graph) Registry() *Registry {
	return g.registry
}

// Logger returns the graph's logger.
func (g *Graph) Logger() logrus.FieldLogger {
	return g.log
}

// NewNode adds a node called name.
func (g *Graph) NewNode(name string) (*Node, error) {
	if !validName(name) {
		return nil, fmt.Errorf("node %q: %w", name, ErrInvalidName)
	}
	if _, taken := g.nodes.Get(name); taken {
		return nil, fmt.Errorf("node %q: %w", name, ErrDuplicateName)
	}
	n := &Node{
		graph:  g,
		name:   name,
		datums: orderedmap.New[string, *Datum](),
	}
	g.nodes.Set(name, n)
	return n, nil
}

// Node returns the node called name.
func (g *Graph) Node(name string) (*Node, bool) {
	return g.nodes.Get(name)
}

// Nodes returns all nodes in creation order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, g.nodes.Len())
	for pair := g.nodes.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Datum resolves a qualified "node.datum" name.
func (g *Graph) Datum(qualifiedName string) (*Datum, bool) {
	return g.registry.Lookup(qualifiedName)
}

// Datums returns every datum, node by node in declaration order.
func (g *Graph) Datums() []*Datum {
	var out []*Datum
	for _, n := range g.Nodes() {
		out = append(out, n.Datums()...)
	}
	return out
}

// Connect proposes a link from src to dst, attaches it if dst accepts it
// and recomputes dst. A refused proposal is destroyed and reported as a
// *LinkError.
func (g *Graph) Connect(src, dst *Datum) (*Link, error) {
	if src.dead || dst.dead {
		return nil, ErrDestroyed
	}

	l := src.LinkFrom()
	if !dst.AcceptsLink(l) {
		err := newLinkError(l, dst)
		l.Destroy()
		g.log.WithFields(logrus.Fields{
			"source": src.QualifiedName(),
			"target": dst.QualifiedName(),
		}).WithError(err.Cause).Debug("link rejected")
		g.notifyLinkRejected(l, dst, err)
		return nil, err
	}

	dst.AddLink(l)
	dst.Update()
	return l, nil
}

// Edge is a live subscription from an upstream datum to a dependent one.
type Edge struct {
	From *Datum
	To   *Datum
}

// Edges exports the current subscription graph.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, d := range g.Datums() {
		for _, down := range d.Downstreams() {
			edges = append(edges, Edge{From: d, To: down})
		}
	}
	return edges
}

// UseExtension registers an extension to the graph
func (g *Graph) UseExtension(ext Extension) error {
	g.extensions = append(g.extensions, ext)
	sort.SliceStable(g.extensions, func(i, j int) bool {
		return g.extensions[i].Order() < g.extensions[j].Order()
	})

	return ext.Init(g)
}

// Dispose destroys every node, newest first, then disposes extensions.
func (g *Graph) Dispose() error {
	nodes := g.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		nodes[i].Destroy()
	}

	for _, ext := range g.extensions {
		if err := ext.Dispose(g); err != nil {
			return fmt.Errorf("disposing extension %s: %w", ext.Name(), err)
		}
	}

	return nil
}

func (g *Graph) equal(a, b Value) (eq bool) {
	if g.equalFn != nil {
		return g.equalFn(a, b)
	}
	// cmp panics on values it cannot compare; treat those as different.
	defer func() {
		if r := recover(); r != nil {
			eq = false
		}
	}()
	return cmp.Equal(a, b, g.cmpOpts...)
}

func (g *Graph) format(v Value) string {
	if g.formatter != nil {
		return g.formatter(v)
	}
	return defaultFormat(v)
}

func defaultFormat(v Value) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
