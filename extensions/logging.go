package extensions

import (
	"time"

	"github.com/sirupsen/logrus"

	datum "github.com/pumped-fn/datum-go"
)

// LoggingExtension logs all operations
type LoggingExtension struct {
	datum.BaseExtension
	log logrus.FieldLogger
}

// NewLoggingExtension creates a new logging extension
func NewLoggingExtension(log logrus.FieldLogger) *LoggingExtension {
	return &LoggingExtension{
		BaseExtension: datum.NewBaseExtension("logging"),
		log:           log,
	}
}

func (e *LoggingExtension) Wrap(next func(), op *datum.Operation) {
	start := time.Now()
	next()

	fields := logrus.Fields{
		"op":       string(op.Kind),
		"duration": time.Since(start),
	}
	if op.Datum != nil {
		fields["datum"] = op.Datum.QualifiedName()
	}
	if op.Link != nil {
		fields["link"] = op.Link.ID().String()
	}
	e.log.WithFields(fields).Debug("operation completed")
}

func (e *LoggingExtension) OnChanged(d *datum.Datum) {
	e.log.WithFields(logrus.Fields{
		"datum":    d.QualifiedName(),
		"repr":     d.String(),
		"valid":    d.Valid(),
		"editable": d.Editable(),
	}).Info("datum changed")
}

func (e *LoggingExtension) OnLinkRejected(l *datum.Link, target *datum.Datum, err error) {
	e.log.WithFields(logrus.Fields{
		"source": l.Source().QualifiedName(),
		"target": target.QualifiedName(),
	}).WithError(err).Warn("link rejected")
}

func (e *LoggingExtension) OnRecursion(d *datum.Datum) {
	e.log.WithField("datum", d.QualifiedName()).Debug("recursive update dropped")
}
