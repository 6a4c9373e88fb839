package datum

import "github.com/google/uuid"

// Link is a directed edge from an upstream datum to the datum it feeds.
// A link starts out owned by its source; once attached with AddLink it
// also dies with its target.
type Link struct {
	id        uuid.UUID
	source    *Datum
	target    *Datum
	dead      bool
	destroyed signal[*Link]
}

func newLink(source *Datum) *Link {
	return &Link{id: uuid.New(), source: source}
}

// ID returns the link's identifier.
func (l *Link) ID() uuid.UUID {
	return l.id
}

// Source returns the upstream datum.
func (l *Link) Source() *Datum {
	return l.source
}

// Target returns the downstream datum, or nil while the link is only proposed.
func (l *Link) Target() *Datum {
	return l.target
}

// HasTarget reports whether the link has been attached.
func (l *Link) HasTarget() bool {
	return l.target != nil
}

// IsDestroyed reports whether Destroy has run.
func (l *Link) IsDestroyed() bool {
	return l.dead
}

// Destroy detaches the link from both endpoints and notifies everything
// wired to it. The target recomputes, then both endpoints re-emit changed.
func (l *Link) Destroy() {
	if l.dead {
		return
	}
	l.dead = true

	g := l.source.graph
	g.wrap(&Operation{Kind: OpDestroyLink, Graph: g, Datum: l.target, Link: l}, func() {
		l.source.removeOutgoing(l)
		if l.target != nil {
			l.target.destroyed.disconnect(slotKey{l, slotDestroy})
			if l.target.input != nil {
				l.target.input.DeleteInput(l.source)
			}
		}
		l.destroyed.emit(l)
		l.destroyed.clear()
	})

	if l.target != nil {
		g.notifyLinkDestroyed(l)
	}
}
