package datum

// RenderHook decides whether a datum hosts a render task. It is consulted
// once, on the datum's first Update. Graphs built without one (tests, the
// CLI) never attach render tasks.
type RenderHook interface {
	WouldAccept(d *Datum) bool
	AttachTo(d *Datum)
}
