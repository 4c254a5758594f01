package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveIngest("valid")
	m.ObserveIngest("valid")
	m.ObserveIngest("invalid")
	m.ObserveStore("write", nil)
	m.ObserveStore("write", errors.New("disk full"))
	m.ObserveRender(20 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ingestions.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestions.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOps.WithLabelValues("write", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOps.WithLabelValues("write", "error")))

	done := m.TrackInFlight()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveIngest("valid")
	m.ObserveStore("read", nil)
	m.ObserveRender(time.Second)
	m.TrackInFlight()()
}
