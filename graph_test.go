package datum

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExtension struct {
	BaseExtension
	order      int
	trace      *[]string
	changed    []string
	recursions int
	added      int
	destroyed  int
	rejected   []error
	gone       []string
	disposed   bool
	disposeErr error
}

func newRecordingExtension(name string, order int, trace *[]string) *recordingExtension {
	return &recordingExtension{
		BaseExtension: NewBaseExtension(name),
		order:         order,
		trace:         trace,
	}
}

func (e *recordingExtension) Order() int { return e.order }

func (e *recordingExtension) Wrap(next func(), op *Operation) {
	*e.trace = append(*e.trace, e.Name()+":"+string(op.Kind))
	next()
}

func (e *recordingExtension) OnChanged(d *Datum) { e.changed = append(e.changed, d.QualifiedName()) }
func (e *recordingExtension) OnRecursion(d *Datum) { e.recursions++ }
func (e *recordingExtension) OnLinkAdded(l *Link) { e.added++ }
func (e *recordingExtension) OnLinkDestroyed(l *Link) { e.destroyed++ }

func (e *recordingExtension) OnLinkRejected(l *Link, target *Datum, err error) {
	e.rejected = append(e.rejected, err)
}

func (e *recordingExtension) OnDestroyed(d *Datum) { e.gone = append(e.gone, d.QualifiedName()) }

func (e *recordingExtension) Dispose(g *Graph) error {
	e.disposed = true
	return e.disposeErr
}

func TestNewNodeValidation(t *testing.T) {
	g := NewGraph()

	_, err := g.NewNode("n")
	require.NoError(t, err)

	_, err = g.NewNode("n")
	assert.ErrorIs(t, err, ErrDuplicateName)

	for _, name := range []string{"", "a.b", "a b"} {
		_, err = g.NewNode(name)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
}

func TestNewDatumValidation(t *testing.T) {
	_, n := newTestNode(t)
	newTestDatum(t, n, "a", nil)

	_, err := n.NewDatum("a", nil)
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = n.NewDatum("x.y", nil)
	assert.ErrorIs(t, err, ErrInvalidName)

	n.Destroy()
	_, err = n.NewDatum("b", nil)
	assert.ErrorIs(t, err, ErrDestroyed)
}

func TestNewDatumDefaults(t *testing.T) {
	_, n := newTestNode(t)
	d := newTestDatum(t, n, "a", nil)

	assert.Equal(t, "n.a", d.QualifiedName())
	assert.False(t, d.Valid())
	assert.Nil(t, d.InputHandler())
	assert.IsType(t, &Literal{}, d.Source())
	assert.Equal(t, []*Datum{d}, d.Upstream())
}

func TestGraphListing(t *testing.T) {
	g, n := newTestNode(t)
	a := newTestDatum(t, n, "a", nil)
	m, err := g.NewNode("m")
	require.NoError(t, err)
	b := newTestDatum(t, m, "b", nil)

	assert.Equal(t, []*Node{n, m}, g.Nodes())
	assert.Equal(t, []*Datum{a, b}, g.Datums())

	found, ok := g.Datum("m.b")
	require.True(t, ok)
	assert.Same(t, b, found)

	node, ok := g.Node("m")
	require.True(t, ok)
	assert.Same(t, g, node.Graph())
	assert.Equal(t, "m", node.Name())
}

func TestUpstreamIsOrderedByID(t *testing.T) {
	_, n := newTestNode(t)
	a := newTestDatum(t, n, "a", NewLiteral(1))
	b := newTestDatum(t, n, "b", NewLiteral(2))
	src := &funcSource{}
	c := newTestDatum(t, n, "c", src)
	src.fn = func(d *Datum) Value {
		d.ConnectUpstream(b)
		d.ConnectUpstream(a)
		return 0
	}
	a.Update()
	b.Update()
	c.Update()

	assert.Equal(t, []*Datum{a, b, c}, c.Upstream())
	assert.Equal(t, []*Datum{b, a}, c.Upstreams())
}

func TestExtensionWrapOrder(t *testing.T) {
	var trace []string
	late := newRecordingExtension("late", 200, &trace)
	early := newRecordingExtension("early", 10, &trace)
	_, n := newTestNode(t, WithExtension(late), WithExtension(early))
	d := newTestDatum(t, n, "a", NewLiteral(1))

	d.Update()

	assert.Equal(t, []string{"early:update", "late:update"}, trace)
	assert.Equal(t, []string{"n.a"}, early.changed)
	assert.Equal(t, []string{"n.a"}, late.changed)
}

func TestExtensionLinkHooks(t *testing.T) {
	var trace []string
	ext := newRecordingExtension("rec", 100, &trace)
	g, n := newTestNode(t, WithExtension(ext))
	a := newTestDatum(t, n, "a", NewLiteral(1))
	b := newTestDatum(t, n, "b", nil, WithInput(SingleInput()))
	plain := newTestDatum(t, n, "plain", nil)

	l, err := g.Connect(a, b)
	require.NoError(t, err)
	_, err = g.Connect(a, plain)
	require.Error(t, err)
	l.Destroy()

	assert.Equal(t, 1, ext.added)
	assert.Equal(t, 1, ext.destroyed, "rejected proposals have no target")
	require.Len(t, ext.rejected, 1)
	assert.ErrorIs(t, ext.rejected[0], ErrNoInput)
	assert.Contains(t, trace, "rec:add-link")
	assert.Contains(t, trace, "rec:destroy-link")
}

func TestExtensionRecursionHook(t *testing.T) {
	var trace []string
	ext := newRecordingExtension("rec", 100, &trace)
	_, n := newTestNode(t, WithExtension(ext))
	src := &funcSource{}
	d := newTestDatum(t, n, "a", src)
	src.fn = func(d *Datum) Value {
		d.Update()
		return 1
	}

	d.Update()

	assert.Equal(t, 1, ext.recursions)
}

func TestDispose(t *testing.T) {
	var trace []string
	ext := newRecordingExtension("rec", 100, &trace)
	g, n := newTestNode(t, WithExtension(ext))
	newTestDatum(t, n, "a", nil)
	newTestDatum(t, n, "b", nil)
	m, err := g.NewNode("m")
	require.NoError(t, err)
	newTestDatum(t, m, "c", nil)

	require.NoError(t, g.Dispose())

	assert.Empty(t, g.Nodes())
	assert.Empty(t, g.Datums())
	assert.Empty(t, g.Registry().Names())
	assert.Equal(t, []string{"m.c", "n.b", "n.a"}, ext.gone)
	assert.True(t, ext.disposed)
}

func TestDisposeReportsExtensionError(t *testing.T) {
	var trace []string
	ext := newRecordingExtension("broken", 100, &trace)
	ext.disposeErr = errors.New("boom")
	g := NewGraph(WithExtension(ext))

	err := g.Dispose()
	assert.ErrorIs(t, err, ext.disposeErr)
	assert.Contains(t, err.Error(), "broken")
}

func TestRecursionIsLogged(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	_, n := newTestNode(t, WithLogger(log))
	src := &funcSource{}
	d := newTestDatum(t, n, "a", src)
	src.fn = func(d *Datum) Value {
		d.Update()
		return 1
	}

	d.Update()

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "recursive update suppressed", entry.Message)
	assert.Equal(t, "n.a", entry.Data["datum"])
}
