package datum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// textSource is an editable source whose value is its text.
type textSource struct {
	text  string
	evals int
}

func (s *textSource) Evaluate(d *Datum) Value {
	s.evals++
	if s.text == "" {
		return nil
	}
	return s.text
}

func (s *textSource) Display(d *Datum) string { return s.text }

func (s *textSource) SetExpr(text string) error {
	s.text = text
	return nil
}

// funcSource runs fn on every evaluation.
type funcSource struct {
	fn    func(d *Datum) Value
	evals int
}

func (s *funcSource) Evaluate(d *Datum) Value {
	s.evals++
	return s.fn(d)
}

func (s *funcSource) Display(d *Datum) string { return "" }

func newTestNode(t *testing.T, opts ...GraphOption) (*Graph, *Node) {
	t.Helper()
	g := NewGraph(opts...)
	n, err := g.NewNode("n")
	require.NoError(t, err)
	return g, n
}

func newTestDatum(t *testing.T, n *Node, name string, src Source, opts ...DatumOption) *Datum {
	t.Helper()
	d, err := n.NewDatum(name, src, opts...)
	require.NoError(t, err)
	return d
}

func countChanges(d *Datum) *int {
	count := 0
	d.OnChanged(func(*Datum) { count++ })
	return &count
}

func TestUpdateEmitsOncePerChange(t *testing.T) {
	_, n := newTestNode(t)
	src := NewLiteral(1)
	d := newTestDatum(t, n, "x", src)
	changes := countChanges(d)

	d.Update()
	assert.Equal(t, 1, *changes)
	assert.True(t, d.Valid())
	assert.True(t, d.Editable())
	assert.Equal(t, 1, d.Value())
	assert.Equal(t, "1", d.String())

	d.Update()
	assert.Equal(t, 1, *changes, "unchanged update must not emit")

	src.Set(2)
	d.Update()
	assert.Equal(t, 2, *changes)
	assert.Equal(t, 2, d.Value())
	assert.Equal(t, "2", d.String())
}

func TestUpdateInvalidatesOnEmptyValue(t *testing.T) {
	_, n := newTestNode(t)
	src := NewLiteral("a")
	d := newTestDatum(t, n, "x", src)
	changes := countChanges(d)

	d.Update()
	src.Set(nil)
	d.Update()

	assert.Equal(t, 2, *changes, "value and repr changing together emit once")
	assert.False(t, d.Valid())
	assert.Nil(t, d.Value())
	assert.Equal(t, "", d.String())

	d.Update()
	assert.Equal(t, 2, *changes)
}

type point struct {
	X, Y int
}

func TestUpdateKeepsEqualValue(t *testing.T) {
	_, n := newTestNode(t)
	first := &point{1, 2}
	src := NewLiteral(first)
	d := newTestDatum(t, n, "p", src)
	changes := countChanges(d)

	d.Update()
	src.Set(&point{1, 2})
	d.Update()

	assert.Same(t, first, d.Value())
	assert.Equal(t, 1, *changes)

	src.Set(&point{3, 4})
	d.Update()
	assert.Equal(t, &point{3, 4}, d.Value())
	assert.Equal(t, 2, *changes)
}

type opaque struct {
	n int
}

func TestUpdateTreatsIncomparableValuesAsChanged(t *testing.T) {
	_, n := newTestNode(t)
	src := NewLiteral(opaque{1})
	d := newTestDatum(t, n, "o", src)
	changes := countChanges(d)

	d.Update()
	d.Update()

	assert.Equal(t, 2, *changes)
}

func TestUpdateWithCustomEqual(t *testing.T) {
	_, n := newTestNode(t, WithEqual(func(a, b Value) bool { return true }))
	src := NewLiteral(1)
	d := newTestDatum(t, n, "x", src)

	d.Update()
	src.Set(2)
	d.Update()

	assert.Equal(t, 1, d.Value())
}

func TestUpdateDropsDirectRecursion(t *testing.T) {
	_, n := newTestNode(t)
	src := &funcSource{}
	d := newTestDatum(t, n, "x", src)
	src.fn = func(d *Datum) Value {
		d.Update()
		return 1
	}

	d.Update()

	assert.Equal(t, 1, src.evals)
	assert.Equal(t, 1, d.Value())
	assert.False(t, d.recursing)
}

func TestUpdateDropsIndirectRecursion(t *testing.T) {
	_, n := newTestNode(t)
	srcA, srcB := &funcSource{}, &funcSource{}
	a := newTestDatum(t, n, "a", srcA)
	b := newTestDatum(t, n, "b", srcB)
	srcA.fn = func(*Datum) Value {
		b.Update()
		return "a"
	}
	srcB.fn = func(*Datum) Value {
		a.Update()
		return "b"
	}

	a.Update()

	assert.Equal(t, 1, srcA.evals)
	assert.Equal(t, 1, srcB.evals)
	assert.True(t, a.Valid())
	assert.True(t, b.Valid())
}

func TestConnectUpstreamIsIdempotent(t *testing.T) {
	_, n := newTestNode(t)
	a := newTestDatum(t, n, "a", NewLiteral(1))
	b := newTestDatum(t, n, "b", NewLiteral(2))
	a.Update()
	b.Update()

	require.True(t, b.ConnectUpstream(a))
	require.True(t, b.ConnectUpstream(a))

	assert.Equal(t, 1, a.changed.len())
	assert.Equal(t, 1, a.destroyed.len())
	assert.Equal(t, 1, b.disconnectFrom.len())
	assert.Equal(t, []*Datum{a}, b.Upstreams())
	assert.Equal(t, []*Datum{b}, a.Downstreams())
	assert.ElementsMatch(t, []*Datum{a, b}, b.Upstream())
}

func TestUpdateDisconnectsUnusedUpstreams(t *testing.T) {
	_, n := newTestNode(t)
	a := newTestDatum(t, n, "a", NewLiteral(1))
	b := newTestDatum(t, n, "b", NewLiteral(2))
	a.Update()
	b.Update()
	b.ConnectUpstream(a)

	b.Update()

	assert.Equal(t, 0, a.changed.len())
	assert.Equal(t, 0, a.destroyed.len())
	assert.Equal(t, 0, b.disconnectFrom.len())
	assert.Equal(t, []*Datum{b}, b.Upstream())
}

func TestDisconnectRequestToleratesMissingSubscriptions(t *testing.T) {
	_, n := newTestNode(t)
	a := newTestDatum(t, n, "a", nil)
	b := newTestDatum(t, n, "b", nil)

	assert.NotPanics(t, func() {
		a.onDisconnectRequest(b)
		a.onDisconnectRequest(b)
	})
}

func TestConnectUpstreamDetectsCycle(t *testing.T) {
	_, n := newTestNode(t)
	a := newTestDatum(t, n, "a", nil)
	b := newTestDatum(t, n, "b", nil)

	assert.False(t, a.ConnectUpstream(a))

	require.True(t, b.ConnectUpstream(a))
	assert.False(t, a.ConnectUpstream(b), "b already reaches a")
}

func TestConnectUpstreamRefusesDestroyed(t *testing.T) {
	_, n := newTestNode(t)
	a := newTestDatum(t, n, "a", nil)
	b := newTestDatum(t, n, "b", nil)
	a.Destroy()

	assert.False(t, b.ConnectUpstream(a))
	assert.Equal(t, 0, b.disconnectFrom.len())
}

func TestUpstreamChangePropagates(t *testing.T) {
	_, n := newTestNode(t)
	a := newTestDatum(t, n, "a", NewLiteral(1))
	src := &funcSource{fn: nil}
	b := newTestDatum(t, n, "b", src)
	src.fn = func(d *Datum) Value {
		if !d.ConnectUpstream(a) || !a.Valid() {
			return nil
		}
		return a.Value().(int) * 10
	}
	a.Update()
	b.Update()
	require.Equal(t, 10, b.Value())
	changes := countChanges(b)

	a.source.(*Literal).Set(2)
	a.Update()

	assert.Equal(t, 20, b.Value())
	assert.Equal(t, 1, *changes)
}

func TestSetExpr(t *testing.T) {
	_, n := newTestNode(t)
	src := &textSource{text: "a"}
	d := newTestDatum(t, n, "x", src)
	d.Update()

	require.NoError(t, d.SetExpr("b"))
	assert.Equal(t, "b", d.Value())
	assert.Equal(t, "b", d.String())

	lit := newTestDatum(t, n, "lit", NewLiteral(1))
	assert.ErrorIs(t, lit.SetExpr("2"), ErrSourceNotEditable)

	d.Destroy()
	assert.ErrorIs(t, d.SetExpr("c"), ErrDestroyed)
}

type recordingHook struct {
	attached []*Datum
}

func (h *recordingHook) WouldAccept(d *Datum) bool { return d.Type() == "shape" }
func (h *recordingHook) AttachTo(d *Datum) { h.attached = append(h.attached, d) }

func TestPostInitRunsOnce(t *testing.T) {
	hook := &recordingHook{}
	g, n := newTestNode(t, WithRenderHook(hook))
	shape := newTestDatum(t, n, "shape", nil, WithType("shape"))
	scalar := newTestDatum(t, n, "scalar", nil)

	watcher := &funcSource{fn: func(*Datum) Value { return nil }}
	w := newTestDatum(t, n, "w", watcher)
	g.Registry().Watch(shape.QualifiedName(), w)

	shape.Update()
	shape.Update()
	scalar.Update()

	assert.Equal(t, []*Datum{shape}, hook.attached)
	assert.True(t, shape.postInitDone)
	assert.Equal(t, 1, watcher.evals, "watchers are notified on the first update only")
}

func TestPostInitWithoutRenderHook(t *testing.T) {
	_, n := newTestNode(t)
	d := newTestDatum(t, n, "shape", nil, WithType("shape"))

	assert.NotPanics(t, d.Update)
	assert.True(t, d.postInitDone)
}

func TestDestroyRecomputesDependents(t *testing.T) {
	g, n := newTestNode(t)
	a := newTestDatum(t, n, "a", NewLiteral(1))
	src := &funcSource{}
	b := newTestDatum(t, n, "b", src)
	src.fn = func(d *Datum) Value {
		if !d.ConnectUpstream(a) {
			return nil
		}
		return a.Value()
	}
	a.Update()
	b.Update()
	require.Equal(t, 1, b.Value())

	destroyed := 0
	a.OnDestroyed(func(*Datum) { destroyed++ })
	a.Destroy()
	a.Destroy()

	assert.Equal(t, 1, destroyed)
	assert.True(t, a.IsDestroyed())
	assert.False(t, b.Valid())
	assert.Empty(t, b.Upstreams())
	_, found := g.Datum("n.a")
	assert.False(t, found)
	_, found = n.Datum("a")
	assert.False(t, found)
}
