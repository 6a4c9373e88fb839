package datum

import (
	"slices"

	"github.com/RoaringBitmap/roaring"
	"github.com/sirupsen/logrus"
)

// ID identifies a datum within its graph.
type ID uint32

const (
	slotUpdate     = "update"
	slotDisconnect = "disconnect"
	slotChanged    = "changed"
	slotDestroy    = "destroy"
)

// Datum is a named reactive cell. It caches the value produced by its
// source or, while links feed it, by its input handler, and tells
// subscribers when anything observable about it changes.
type Datum struct {
	id    ID
	name  string
	kind  string
	node  *Node
	graph *Graph

	source Source
	input  InputHandler

	value    Value
	valid    bool
	editable bool
	repr     string

	// upstream holds the IDs of every datum reached through the current
	// dependency chain, self included. Rebuilt by each Update.
	upstream *roaring.Bitmap

	recursing    bool
	postInitDone bool
	dead         bool

	outgoing []*Link

	changed        signal[*Datum]
	destroyed      signal[*Datum]
	disconnectFrom signal[*Datum]
}

// DatumOption configures a datum at creation.
type DatumOption func(*datumConfig)

type datumConfig struct {
	input InputFactory
	kind  string
}

// WithInput lets the datum take links, governed by the handler f builds.
func WithInput(f InputFactory) DatumOption {
	return func(c *datumConfig) {
		c.input = f
	}
}

// WithType tags the datum with a type name used by input handlers to
// reject incompatible links. Untagged datums are compatible with anything.
func WithType(kind string) DatumOption {
	return func(c *datumConfig) {
		c.kind = kind
	}
}

func newDatum(n *Node, id ID, name string, src Source, opts []DatumOption) *Datum {
	var cfg datumConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if src == nil {
		src = NewLiteral(nil)
	}

	d := &Datum{
		id:       id,
		name:     name,
		kind:     cfg.kind,
		node:     n,
		graph:    n.graph,
		source:   src,
		upstream: roaring.BitmapOf(uint32(id)),
	}
	if cfg.input != nil {
		d.input = cfg.input(d)
	}
	return d
}

func (d *Datum) ID() ID { return d.id }
func (d *Datum) Name() string { return d.name }
func (d *Datum) Type() string { return d.kind }
func (d *Datum) Node() *Node { return d.node }
func (d *Datum) Source() Source { return d.source }
func (d *Datum) Value() Value { return d.value }
func (d *Datum) Valid() bool { return d.valid }
func (d *Datum) Editable() bool { return d.editable }
func (d *Datum) String() string { return d.repr }
func (d *Datum) IsDestroyed() bool { return d.dead }
func (d *Datum) InputHandler() InputHandler { return d.input }

// QualifiedName returns "node.datum", the name other datums resolve it by.
func (d *Datum) QualifiedName() string {
	return d.node.name + "." + d.name
}

// HasInputValue reports whether the datum's value currently comes from links.
func (d *Datum) HasInputValue() bool {
	return d.input != nil && d.input.HasInput()
}

// CanEdit reports whether the datum accepts manual edits right now.
func (d *Datum) CanEdit() bool {
	return !d.HasInputValue()
}

// HasConnectedLink reports whether this datum feeds any attached link.
func (d *Datum) HasConnectedLink() bool {
	for _, l := range d.outgoing {
		if l.HasTarget() {
			return true
		}
	}
	return false
}

// InputDatums lists the datums currently linked into this one.
func (d *Datum) InputDatums() []*Datum {
	if d.input == nil {
		return nil
	}
	return d.input.InputDatums()
}

// Upstream resolves the upstream set computed by the last Update, in ID order.
func (d *Datum) Upstream() []*Datum {
	out := make([]*Datum, 0, d.upstream.GetCardinality())
	it := d.upstream.Iterator()
	for it.HasNext() {
		if u, ok := d.graph.registry.ByID(ID(it.Next())); ok {
			out = append(out, u)
		}
	}
	return out
}

// Upstreams lists the datums this one is currently subscribed to.
func (d *Datum) Upstreams() []*Datum {
	return datumsOf(d.disconnectFrom.receivers(slotDisconnect))
}

// Downstreams lists the datums currently subscribed to this one.
func (d *Datum) Downstreams() []*Datum {
	return datumsOf(d.changed.receivers(slotUpdate))
}

func datumsOf(receivers []any) []*Datum {
	out := make([]*Datum, 0, len(receivers))
	for _, r := range receivers {
		if u, ok := r.(*Datum); ok {
			out = append(out, u)
		}
	}
	return out
}

// OnChanged subscribes fn to the datum's changed notification.
func (d *Datum) OnChanged(fn func(*Datum)) (cancel func()) {
	return d.changed.subscribe(fn)
}

// OnDestroyed subscribes fn to the datum's destruction.
func (d *Datum) OnDestroyed(fn func(*Datum)) (cancel func()) {
	return d.destroyed.subscribe(fn)
}

// AcceptsLink reports whether l may be attached to this datum. Datums
// without an input handler refuse everything; a link whose source already
// depends on this datum would close a cycle.
func (d *Datum) AcceptsLink(l *Link) bool {
	if d.input == nil || d.dead {
		return false
	}
	if l.Source().upstream.Contains(uint32(d.id)) {
		return false
	}
	return d.input.Accepts(l)
}

// LinkFrom proposes a new link with this datum as its source.
func (d *Datum) LinkFrom() *Link {
	l := newLink(d)
	d.outgoing = append(d.outgoing, l)
	return l
}

// AddLink attaches an accepted link to this datum. Callers check
// AcceptsLink first; Graph.Connect does both. Datums without an input
// handler, and destroyed datums, ignore the call.
func (d *Datum) AddLink(l *Link) {
	if d.input == nil || d.dead {
		return
	}
	src := l.Source()
	d.graph.wrap(&Operation{Kind: OpAddLink, Graph: d.graph, Datum: d, Link: l}, func() {
		d.input.AddInput(l)
		l.target = d

		d.destroyed.connect(slotKey{l, slotDestroy}, func(*Datum) { l.Destroy() })
		l.destroyed.connect(slotKey{d, slotUpdate}, func(*Link) { d.Update() })

		// A source that feeds a link is no longer rendered on its own, so
		// both ends announce the change now and again when the link dies.
		d.emitChanged()
		src.emitChanged()
		l.destroyed.connect(slotKey{d, slotChanged}, func(*Link) { d.emitChanged() })
		l.destroyed.connect(slotKey{src, slotChanged}, func(*Link) { src.emitChanged() })
	})
	d.graph.notifyLinkAdded(l)
}

// DeleteLink destroys every attached link from upstream into this datum.
func (d *Datum) DeleteLink(upstream *Datum) {
	for _, l := range slices.Clone(upstream.outgoing) {
		if l.target == d {
			l.Destroy()
		}
	}
}

// SetExpr replaces the text of the datum's source and recomputes.
func (d *Datum) SetExpr(text string) error {
	if d.dead {
		return ErrDestroyed
	}
	if !d.CanEdit() {
		return ErrNotEditable
	}
	ed, ok := d.source.(Editor)
	if !ok {
		return ErrSourceNotEditable
	}
	if err := ed.SetExpr(text); err != nil {
		return err
	}
	d.Update()
	return nil
}

// Update recomputes the datum and emits changed once if its value,
// validity, editability or display string moved. Calls made while an
// Update of the same datum is running are dropped.
func (d *Datum) Update() {
	if d.dead {
		return
	}
	if d.recursing {
		d.graph.log.WithField("datum", d.QualifiedName()).Debug("recursive update suppressed")
		d.graph.notifyRecursion(d)
		return
	}
	d.recursing = true
	defer func() { d.recursing = false }()

	d.graph.wrap(&Operation{Kind: OpUpdate, Graph: d.graph, Datum: d}, d.recompute)
}

func (d *Datum) recompute() {
	if !d.postInitDone {
		d.postInit()
	}

	// Drop every upstream subscription; evaluation below re-establishes
	// the ones still in use.
	d.disconnectFrom.emit(d)
	d.upstream.Clear()
	d.upstream.Add(uint32(d.id))

	var next Value
	if d.HasInputValue() {
		next = d.input.Value()
	} else {
		next = d.source.Evaluate(d)
	}

	changed := false
	switch {
	case next == nil && d.valid:
		d.value = nil
		d.valid = false
		changed = true
	case next != nil && (!d.valid || !d.graph.equal(next, d.value)):
		d.value = next
		d.valid = true
		changed = true
	}

	if editable := d.CanEdit(); editable != d.editable {
		d.editable = editable
		changed = true
	}

	if repr := d.display(); repr != d.repr {
		d.repr = repr
		changed = true
	}

	if changed {
		d.emitChanged()
	}
}

func (d *Datum) display() string {
	if d.HasInputValue() {
		if !d.valid {
			return ""
		}
		return d.graph.format(d.value)
	}
	return d.source.Display(d)
}

// postInit runs on the first Update: datums that refer to this one by
// name get a chance to resolve it, and the render hook may claim it.
func (d *Datum) postInit() {
	d.postInitDone = true
	d.graph.registry.NotifyNameDefined(d.QualifiedName())

	if hook := d.graph.renderHook; hook != nil && hook.WouldAccept(d) {
		hook.AttachTo(d)
	}
}

// ConnectUpstream subscribes this datum to up's changes and folds up's
// upstream set into its own. It returns false if up already depends on
// this datum, in which case the caller must not use up's value.
func (d *Datum) ConnectUpstream(up *Datum) bool {
	if up.dead || d.dead {
		return false
	}

	d.upstream.Or(up.upstream)
	up.changed.connect(slotKey{d, slotUpdate}, func(*Datum) { d.Update() })
	up.destroyed.connect(slotKey{d, slotUpdate}, func(*Datum) { d.Update() })
	d.disconnectFrom.connect(slotKey{up, slotDisconnect}, up.onDisconnectRequest)

	if up.upstream.Contains(uint32(d.id)) {
		d.graph.log.WithFields(logrus.Fields{
			"datum":    d.QualifiedName(),
			"upstream": up.QualifiedName(),
		}).Debug("upstream would close a cycle")
		return false
	}
	return true
}

// onDisconnectRequest removes the subscriptions ConnectUpstream made for
// downstream. Missing subscriptions are ignored.
func (d *Datum) onDisconnectRequest(downstream *Datum) {
	downstream.disconnectFrom.disconnect(slotKey{d, slotDisconnect})
	d.changed.disconnect(slotKey{downstream, slotUpdate})
	d.destroyed.disconnect(slotKey{downstream, slotUpdate})
}

func (d *Datum) emitChanged() {
	if d.dead {
		return
	}
	d.changed.emit(d)
	d.graph.notifyChanged(d)
}

func (d *Datum) removeOutgoing(l *Link) {
	if i := slices.Index(d.outgoing, l); i >= 0 {
		d.outgoing = slices.Delete(d.outgoing, i, i+1)
	}
}

// Destroy tears the datum down. Links touching it are destroyed and every
// datum depending on it recomputes.
func (d *Datum) Destroy() {
	if d.dead {
		return
	}

	g := d.graph
	g.wrap(&Operation{Kind: OpDestroy, Graph: g, Datum: d}, func() {
		d.dead = true
		g.registry.Unregister(d)
		g.registry.Forget(d)
		d.node.remove(d)

		for _, l := range slices.Clone(d.outgoing) {
			l.Destroy()
		}

		d.disconnectFrom.emit(d)
		d.destroyed.emit(d)

		d.changed.clear()
		d.destroyed.clear()
		d.disconnectFrom.clear()
		g.registry.dropID(d)

		g.registry.NotifyNameDefined(d.QualifiedName())
	})
	g.notifyDestroyed(d)
}
