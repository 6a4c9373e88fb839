package extensions

import (
	"fmt"
	"strings"

	"github.com/m1gwings/treedrawer/tree"
	"github.com/sirupsen/logrus"

	datum "github.com/pumped-fn/datum-go"
)

// GraphDebugExtension logs a datum's upstream tree when a link into it is
// rejected or a recursive update is dropped.
//
// Usage:
//
//	log := logrus.New()
//	log.SetFormatter(&logrus.TextFormatter{DisableQuote: true})
//	g := datum.NewGraph(datum.WithExtension(extensions.NewGraphDebugExtension(log)))
//
// Both cases are logged at ERROR level, with the drawing in the "tree" field.
type GraphDebugExtension struct {
	datum.BaseExtension
	log logrus.FieldLogger
}

// NewGraphDebugExtension creates a new graph debug extension.
func NewGraphDebugExtension(log logrus.FieldLogger) *GraphDebugExtension {
	return &GraphDebugExtension{
		BaseExtension: datum.NewBaseExtension("graph-debug"),
		log:           log,
	}
}

// OnLinkRejected logs the tree of the source, which is where the cycle lives
func (e *GraphDebugExtension) OnLinkRejected(l *datum.Link, target *datum.Datum, err error) {
	e.log.WithFields(logrus.Fields{
		"source": l.Source().QualifiedName(),
		"target": target.QualifiedName(),
		"tree":   "\n" + UpstreamTree(l.Source()),
	}).WithError(err).Error("Link Rejected")
}

// OnRecursion logs the tree of the datum that tried to re-enter Update
func (e *GraphDebugExtension) OnRecursion(d *datum.Datum) {
	e.log.WithFields(logrus.Fields{
		"datum": d.QualifiedName(),
		"tree":  "\n" + UpstreamTree(d),
	}).Error("Recursive Update")
}

// UpstreamTree draws d and, below it, the datums it is subscribed to,
// recursively. A datum already on the current path is drawn once more,
// marked as a cycle, and not expanded.
func UpstreamTree(d *datum.Datum) string {
	root := tree.NewTree(tree.NodeString(label(d)))
	onPath := map[*datum.Datum]bool{d: true}
	addUpstreams(root, d, onPath)
	return root.String()
}

func addUpstreams(t *tree.Tree, d *datum.Datum, onPath map[*datum.Datum]bool) {
	for _, up := range d.Upstreams() {
		if onPath[up] {
			t.AddChild(tree.NodeString(label(up) + " (cycle)"))
			continue
		}
		child := t.AddChild(tree.NodeString(label(up)))
		onPath[up] = true
		addUpstreams(child, up, onPath)
		delete(onPath, up)
	}
}

func label(d *datum.Datum) string {
	var sb strings.Builder
	sb.WriteString(d.QualifiedName())
	if d.Valid() {
		fmt.Fprintf(&sb, " = %s", d.String())
	} else {
		sb.WriteString(" ✗")
	}
	return sb.String()
}
