package datum

// Extension provides hooks into propagation
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a graph
	Init(g *Graph) error

	// Wrap intercepts operations (update, link, destroy)
	Wrap(next func(), op *Operation)

	// OnChanged is called after a datum emits changed
	OnChanged(d *Datum)

	// OnRecursion is called when a nested Update of d is dropped
	OnRecursion(d *Datum)

	// Link hooks
	OnLinkAdded(l *Link)
	OnLinkDestroyed(l *Link)
	OnLinkRejected(l *Link, target *Datum, err error)

	// OnDestroyed is called after a datum is torn down
	OnDestroyed(d *Datum)

	// Dispose is called when the graph is disposed
	Dispose(g *Graph) error
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(g *Graph) error {
	return nil
}

func (e *BaseExtension) Wrap(next func(), op *Operation) {
	next()
}

func (e *BaseExtension) OnChanged(d *Datum) {
}

func (e *BaseExtension) OnRecursion(d *Datum) {
}

func (e *BaseExtension) OnLinkAdded(l *Link) {
}

func (e *BaseExtension) OnLinkDestroyed(l *Link) {
}

func (e *BaseExtension) OnLinkRejected(l *Link, target *Datum, err error) {
}

func (e *BaseExtension) OnDestroyed(d *Datum) {
}

func (e *BaseExtension) Dispose(g *Graph) error {
	return nil
}

// Operation describes what operation is happening
type Operation struct {
	Kind  OperationKind
	Graph *Graph
	// Datum is the datum being updated or destroyed, or the link target.
	Datum *Datum
	Link  *Link
}

// OperationKind represents the type of operation
type OperationKind string

const (
	// OpUpdate indicates a datum recomputation
	OpUpdate OperationKind = "update"
	// OpAddLink indicates a link being attached
	OpAddLink OperationKind = "add-link"
	// OpDestroyLink indicates a link being destroyed
	OpDestroyLink OperationKind = "destroy-link"
	// OpDestroy indicates a datum being destroyed
	OpDestroy OperationKind = "destroy"
)

// wrap runs fn inside every extension's Wrap, first registered outermost.
func (g *Graph) wrap(op *Operation, fn func()) {
	next := fn
	for i := len(g.extensions) - 1; i >= 0; i-- {
		ext := g.extensions[i]
		currentNext := next
		next = func() {
			ext.Wrap(currentNext, op)
		}
	}
	next()
}

func (g *Graph) notifyChanged(d *Datum) {
	for _, ext := range g.extensions {
		ext.OnChanged(d)
	}
}

func (g *Graph) notifyRecursion(d *Datum) {
	for _, ext := range g.extensions {
		ext.OnRecursion(d)
	}
}

func (g *Graph) notifyLinkAdded(l *Link) {
	for _, ext := range g.extensions {
		ext.OnLinkAdded(l)
	}
}

func (g *Graph) notifyLinkDestroyed(l *Link) {
	for _, ext := range g.extensions {
		ext.OnLinkDestroyed(l)
	}
}

func (g *Graph) notifyLinkRejected(l *Link, target *Datum, err error) {
	for _, ext := range g.extensions {
		ext.OnLinkRejected(l, target, err)
	}
}

func (g *Graph) notifyDestroyed(d *Datum) {
	for _, ext := range g.extensions {
		ext.OnDestroyed(d)
	}
}
