package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRollingAverage(t *testing.T) {
	m := NewMetrics()
	m.Update(0.010)
	m.Update(0.020)
	assert.InDelta(t, 15.0, m.FrameTime(), 1e-9)

	for i := 0; i < AVG_COUNT; i++ {
		m.Update(0.004)
	}
	assert.InDelta(t, 4.0, m.FrameTime(), 1e-6)
}

func TestMetricsFPSAfterOneSecond(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 101; i++ {
		m.Update(0.01)
	}
	assert.InDelta(t, 100, m.FPS(), 1)
}
