package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns metric family name -> label value "kind" (or "") -> value.
func gathered(t *testing.T, reg *prometheus.Registry) map[string]map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]map[string]float64)
	for _, f := range families {
		byLabel := make(map[string]float64)
		for _, m := range f.GetMetric() {
			kind := ""
			for _, l := range m.GetLabel() {
				if l.GetName() == "kind" {
					kind = l.GetValue()
				}
			}
			switch {
			case m.GetCounter() != nil:
				byLabel[kind] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				byLabel[kind] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				byLabel[kind] = float64(m.GetHistogram().GetSampleCount())
			}
		}
		out[f.GetName()] = byLabel
	}
	return out
}

func TestPrometheus_Counter(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.IncCounter("commands_total", map[string]string{"kind": "create"}, 1)
	p.IncCounter("commands_total", map[string]string{"kind": "create"}, 2)
	p.IncCounter("commands_total", map[string]string{"kind": "drop"}, 1)

	got := gathered(t, reg)["tabledb_commands_total"]
	assert.Equal(t, 3.0, got["create"])
	assert.Equal(t, 1.0, got["drop"])
}

func TestPrometheus_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewPrometheus(reg)
	b := NewPrometheus(reg)

	a.SetGauge("tables", nil, 2)
	b.SetGauge("tables", nil, 5)
	a.ObserveHistogram("latency_seconds", map[string]string{"kind": "x"}, 0.1)
	b.ObserveHistogram("latency_seconds", map[string]string{"kind": "x"}, 0.2)

	got := gathered(t, reg)
	assert.Equal(t, 5.0, got["tabledb_tables"][""])
	assert.Equal(t, 2.0, got["tabledb_latency_seconds"]["x"])
}

func TestNop(t *testing.T) {
	var c Collector = Nop{}
	c.IncCounter("x", nil, 1)
	c.SetGauge("x", nil, 1)
	c.ObserveHistogram("x", nil, 1)
}
