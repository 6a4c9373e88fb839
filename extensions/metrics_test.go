package extensions

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	datum "github.com/pumped-fn/datum-go"
)

func TestMetricsExtension(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetricsExtension(reg)
	require.NoError(t, err)

	g, a, b, l := newLinkedGraph(t, datum.WithExtension(m))
	n, _ := g.Node("n")
	plain, err := n.NewDatum("plain", nil)
	require.NoError(t, err)

	_, err = g.Connect(a, plain)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.links.WithLabelValues("added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.links.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.live))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("add-link")))

	l.Destroy()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.links.WithLabelValues("destroyed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.live))
	assert.False(t, b.HasInputValue())
	assert.Positive(t, testutil.ToFloat64(m.changes))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.recursions))

	count, err := testutil.GatherAndCount(reg, "datum_links_live", "datum_changes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetricsExtensionRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetricsExtension(reg)
	require.NoError(t, err)

	_, err = NewMetricsExtension(reg)
	assert.Error(t, err)
}
