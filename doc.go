// Package datum provides the reactive data cells behind a node-graph editor.
//
// # Overview
//
// Datum organizes a graph around three concepts:
//
//  1. Datums: named cells that cache a value computed by a Source
//  2. Links: directed edges that feed one datum from another
//  3. Input handlers: per-datum policies deciding which links are accepted
//     and how their values are combined
//
// # Basic Usage
//
// Declare nodes and datums, then run Update once per datum:
//
//	g := datum.NewGraph()
//	circle, _ := g.NewNode("circle")
//
//	r, _ := circle.NewDatum("r", datum.NewLiteral(2.0))
//	scale, _ := circle.NewDatum("scale", nil, datum.WithInput(datum.SingleInput()))
//
//	r.Update()
//	scale.Update()
//
// Connect datums with links:
//
//	link, err := g.Connect(r, scale)
//	if errors.Is(err, datum.ErrCycle) { ... }
//
// From then on every change to r recomputes scale. While the link exists
// scale is not editable; destroying the link makes it editable again:
//
//	link.Destroy()
//
// # Propagation
//
// Update recomputes a datum from its input handler (when links feed it) or
// from its Source. It emits changed at most once, and only when the value,
// validity, editability or display string moved. Every datum subscribed to
// it then runs its own Update, synchronously and depth first.
//
// Each Update first drops all of the datum's upstream subscriptions and
// rebuilds them while evaluating, through ConnectUpstream. The set of
// datums reachable upstream is rebuilt at the same time and is what
// AcceptsLink consults to refuse cycles.
//
// An Update reached again while it is already running on the same datum
// is dropped.
//
// # Names
//
// Datums are resolved by "node.datum" through the graph's Registry. A
// Source that looks names up should Watch them, so datums declared later
// trigger a recompute of the datums waiting on them.
//
// # Extensions
//
// Extensions observe propagation through Wrap and the On* hooks:
//
//	type countingExtension struct {
//	    datum.BaseExtension
//	    changes int
//	}
//
//	func (e *countingExtension) OnChanged(d *datum.Datum) { e.changes++ }
//
//	g := datum.NewGraph(datum.WithExtension(&countingExtension{
//	    BaseExtension: datum.NewBaseExtension("counting"),
//	}))
//
// # Thread Safety
//
// A Graph and everything it owns must be used from one goroutine at a time.
package datum
