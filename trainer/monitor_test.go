package trainer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonitorTransitions(t *testing.T) {
	tests := []struct {
		name   string
		losses []float64
		want   []State
	}{
		{
			name:   "improving",
			losses: []float64{3, 2, 1},
			want:   []State{Improving, Improving, Improving},
		},
		{
			name:   "plateau then improvement resets both counters",
			losses: []float64{1, 1, 1.1, 0.9, 1, 1.2},
			want:   []State{Improving, Monitoring, Plateauing, Improving, Monitoring, Plateauing},
		},
		{
			name:   "plateau repeats every reduce patience",
			losses: []float64{1, 2, 2, 2, 2},
			want:   []State{Improving, Monitoring, Plateauing, Monitoring, Exhausted},
		},
		{
			name:   "equal loss is not an improvement",
			losses: []float64{1, 1},
			want:   []State{Improving, Monitoring},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(2, 4)
			for i, loss := range tt.losses {
				assert.Equal(t, tt.want[i], m.Observe(i+1, loss), "epoch %d", i+1)
			}
		})
	}
}

func TestMonitorExhaustedWinsOverPlateau(t *testing.T) {
	m := NewMonitor(2, 2)
	assert.Equal(t, Improving, m.Observe(1, 1))
	assert.Equal(t, Monitoring, m.Observe(2, 1))
	assert.Equal(t, Exhausted, m.Observe(3, 1))
	// terminal
	assert.Equal(t, Exhausted, m.Observe(4, 0.1))
	m.Stop()
	assert.Equal(t, Stopped, m.State())

	epoch, loss := m.Best()
	assert.Equal(t, 1, epoch)
	assert.Equal(t, 1.0, loss)
}

func TestMonitorDefaults(t *testing.T) {
	m := NewMonitor(5, 10)
	epoch, loss := m.Best()
	assert.Equal(t, 0, epoch)
	assert.True(t, math.IsInf(loss, 1))

	m.Resume(0, 0.5)
	assert.Equal(t, Monitoring, m.Observe(1, 0.6))
	assert.Equal(t, Improving, m.Observe(2, 0.4))

	states := 0
	for i := 0; i < 10; i++ {
		if m.Observe(3+i, 1) == Plateauing {
			states++
		}
	}
	assert.Equal(t, 1, states)
	assert.Equal(t, Exhausted, m.State())
	assert.Equal(t, "exhausted", m.State().String())
}
