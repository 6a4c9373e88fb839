package extensions

import (
	events "github.com/docker/go-events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	datum "github.com/pumped-fn/datum-go"
)

// ChangeEvent is written to the sink when a datum emits changed.
type ChangeEvent struct {
	Datum    string
	Repr     string
	Value    datum.Value
	Valid    bool
	Editable bool
}

// LinkEvent is written to the sink when a link is attached or destroyed.
type LinkEvent struct {
	ID       uuid.UUID
	Source   string
	Target   string
	Attached bool
}

// DestroyEvent is written to the sink when a datum is destroyed.
type DestroyEvent struct {
	Datum string
}

// EventsExtension forwards propagation events to a go-events sink, for
// views that render datums. Writes happen on the propagating goroutine;
// wrap slow sinks in an events.Queue.
type EventsExtension struct {
	datum.BaseExtension
	sink events.Sink
	log  logrus.FieldLogger
}

// NewEventsExtension creates an extension writing to sink. Write failures
// are logged to log.
func NewEventsExtension(sink events.Sink, log logrus.FieldLogger) *EventsExtension {
	return &EventsExtension{
		BaseExtension: datum.NewBaseExtension("events"),
		sink:          sink,
		log:           log,
	}
}

func (e *EventsExtension) write(event events.Event) {
	if err := e.sink.Write(event); err != nil {
		e.log.WithError(err).Warn("dropping datum event")
	}
}

func (e *EventsExtension) OnChanged(d *datum.Datum) {
	e.write(ChangeEvent{
		Datum:    d.QualifiedName(),
		Repr:     d.String(),
		Value:    d.Value(),
		Valid:    d.Valid(),
		Editable: d.Editable(),
	})
}

func (e *EventsExtension) OnLinkAdded(l *datum.Link) {
	e.write(linkEvent(l, true))
}

func (e *EventsExtension) OnLinkDestroyed(l *datum.Link) {
	e.write(linkEvent(l, false))
}

func (e *EventsExtension) OnDestroyed(d *datum.Datum) {
	e.write(DestroyEvent{Datum: d.QualifiedName()})
}

// Dispose closes the sink.
func (e *EventsExtension) Dispose(g *datum.Graph) error {
	return e.sink.Close()
}

func linkEvent(l *datum.Link, attached bool) LinkEvent {
	return LinkEvent{
		ID:       l.ID(),
		Source:   l.Source().QualifiedName(),
		Target:   l.Target().QualifiedName(),
		Attached: attached,
	}
}
