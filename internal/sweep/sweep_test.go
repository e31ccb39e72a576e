package sweep

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/RMahshie/effsweep/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLoad implements Load for testing
type MockLoad struct {
	mock.Mock
}

func (m *MockLoad) SetCurrent(amps float64) error {
	args := m.Called(amps)
	return args.Error(0)
}

func (m *MockLoad) Enable() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockLoad) Disable() error {
	args := m.Called()
	return args.Error(0)
}

// MockMeter implements Meter for testing
type MockMeter struct {
	mock.Mock
}

func (m *MockMeter) Read() (models.Readings, error) {
	args := m.Called()
	return args.Get(0).(models.Readings), args.Error(1)
}

type sliceSink struct {
	points []models.SweepPoint
	err    error
}

func (s *sliceSink) Append(_ context.Context, p models.SweepPoint) error {
	if s.err != nil {
		return s.err
	}
	s.points = append(s.points, p)
	return nil
}

var benchShunts = models.Shunts{Iin: 0.01, Iout: 0.001}

var scripted = models.Readings{Vin: 12.0, VsenseIin: 0.05, Vout: 5.0, VsenseIout: 0.002}

func noSleep(context.Context, time.Duration) error { return nil }

func TestSetpoints_Count(t *testing.T) {
	tests := []struct {
		name           string
		min, max, step float64
		want           int
	}{
		{"single point", 1, 1, 0.5, 1},
		{"integer steps", 0, 10, 1, 11},
		{"decimal steps land on max", 0.1, 0.7, 0.1, 7},
		{"max not on grid", 0, 1, 0.3, 4},
		{"min above max", 5, 1, 1, 0},
		{"fine grid", 0, 3, 0.05, 61},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp, err := Setpoints(tt.min, tt.max, tt.step)
			require.NoError(t, err)
			assert.Len(t, sp, tt.want)
			if tt.min <= tt.max {
				want := int(math.Floor((tt.max-tt.min)/tt.step+Tolerance)) + 1
				assert.Equal(t, want, len(sp))
				assert.Equal(t, tt.min, sp[0])
				assert.LessOrEqual(t, sp[len(sp)-1], tt.max+Tolerance)
			}
		})
	}
}

func TestSetpoints_InvalidStep(t *testing.T) {
	for _, step := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := Setpoints(0, 1, step)
		assert.ErrorIs(t, err, ErrInvalidStep)
	}
}

func TestSetpoints_InvalidRange(t *testing.T) {
	tests := []struct {
		name     string
		min, max float64
	}{
		{"nan min", math.NaN(), 1},
		{"nan max", 0, math.NaN()},
		{"infinite max", 0, math.Inf(1)},
		{"infinite min", math.Inf(-1), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp, err := Setpoints(tt.min, tt.max, 0.1)
			assert.ErrorIs(t, err, ErrInvalidRange)
			assert.Nil(t, sp)
		})
	}
}

func TestSetpoints_TooMany(t *testing.T) {
	for _, max := range []float64{1e12, 1e30} {
		_, err := Setpoints(0, max, 1e-3)
		assert.ErrorIs(t, err, ErrTooManySetpoints)
	}

	sp, err := Setpoints(0, MaxSetpoints-1, 1)
	require.NoError(t, err)
	assert.Len(t, sp, MaxSetpoints)
}

func TestCompute_ScriptedBench(t *testing.T) {
	p := Compute(scripted, benchShunts)

	assert.InDelta(t, 12.0, p.Vin, 1e-12)
	assert.InDelta(t, 5.0, p.Iin, 1e-12)
	assert.InDelta(t, 5.0, p.Vout, 1e-12)
	assert.InDelta(t, 2.0, p.Iout, 1e-12)
	assert.InDelta(t, 100.0/6.0, p.Efficiency, 1e-9)
	assert.InDelta(t, 50.0, p.PowerLoss, 1e-9)
}

func TestCompute_NonPositiveInputPower(t *testing.T) {
	for _, r := range []models.Readings{
		{Vin: 0, VsenseIin: 0.05, Vout: 5, VsenseIout: 0.002},
		{Vin: 12, VsenseIin: 0, Vout: 5, VsenseIout: 0.002},
		{Vin: 12, VsenseIin: -0.01, Vout: 5, VsenseIout: 0.002},
	} {
		p := Compute(r, benchShunts)
		assert.Equal(t, 0.0, p.Efficiency)
		pin := r.Vin * (r.VsenseIin / benchShunts.Iin)
		pout := r.Vout * (r.VsenseIout / benchShunts.Iout)
		assert.Equal(t, pin-pout, p.PowerLoss)
	}
}

func TestCurrentFromShunt_Pure(t *testing.T) {
	a := CurrentFromShunt(0.05, 0.01)
	b := CurrentFromShunt(0.05, 0.01)
	assert.Equal(t, a, b)
	assert.InDelta(t, 5.0, a, 1e-12)
}

func TestDriverRun_SequenceAndPoints(t *testing.T) {
	load := &MockLoad{}
	meter := &MockMeter{}
	var calls []string
	record := func(name string) func(mock.Arguments) {
		return func(mock.Arguments) { calls = append(calls, name) }
	}
	load.On("SetCurrent", 1.0).Return(nil).Run(record("set 1"))
	load.On("SetCurrent", 2.0).Return(nil).Run(record("set 2"))
	load.On("SetCurrent", 0.0).Return(nil).Run(record("set 0"))
	load.On("Enable").Return(nil).Run(record("on"))
	load.On("Disable").Return(nil).Run(record("off"))
	meter.On("Read").Return(scripted, nil).Run(record("read"))

	var sleeps []time.Duration
	d := NewDriver(load, meter, benchShunts)
	d.Sleep = func(_ context.Context, dur time.Duration) error {
		sleeps = append(sleeps, dur)
		calls = append(calls, "sleep")
		return nil
	}
	var states []State
	d.OnState = func(s State, _ float64) { states = append(states, s) }

	sink := &sliceSink{}
	cfg := models.SweepConfig{Min: 1, Max: 2, Step: 1, Settle: 2 * time.Second, Recovery: time.Second}
	n, err := d.Run(context.Background(), cfg, sink)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	require.Len(t, sink.points, 2)
	assert.Equal(t, 1.0, sink.points[0].Setpoint)
	assert.Equal(t, 2.0, sink.points[1].Setpoint)
	assert.InDelta(t, 50.0, sink.points[1].PowerLoss, 1e-9)

	assert.Equal(t, []string{
		"set 1", "on", "sleep", "read", "set 0", "off", "sleep",
		"set 2", "on", "sleep", "read", "set 0", "off", "sleep",
	}, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, time.Second, 2 * time.Second, time.Second}, sleeps)
	assert.Equal(t, []State{Idle, Energized, Measuring, DeEnergized, Energized, Measuring, DeEnergized, Done}, states)

	load.AssertExpectations(t)
	meter.AssertExpectations(t)
}

func TestDriverRun_EmptyRange(t *testing.T) {
	load := &MockLoad{}
	meter := &MockMeter{}
	d := NewDriver(load, meter, benchShunts)
	d.Sleep = noSleep

	sink := &sliceSink{}
	n, err := d.Run(context.Background(), models.SweepConfig{Min: 3, Max: 1, Step: 1}, sink)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, sink.points)
	load.AssertNotCalled(t, "SetCurrent", mock.Anything)
}

func TestDriverRun_MeterFailureStopsSweep(t *testing.T) {
	load := &MockLoad{}
	meter := &MockMeter{}
	load.On("SetCurrent", mock.Anything).Return(nil)
	load.On("Enable").Return(nil)
	load.On("Disable").Return(nil)
	meter.On("Read").Return(scripted, nil).Once()
	meter.On("Read").Return(models.Readings{}, errors.New("timeout")).Once()

	d := NewDriver(load, meter, benchShunts)
	d.Sleep = noSleep
	sink := &sliceSink{}

	n, err := d.Run(context.Background(), models.SweepConfig{Min: 0, Max: 5, Step: 1}, sink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
	assert.Equal(t, 1, n)
	assert.Len(t, sink.points, 1)
}

func TestDriverRun_CancelledDuringSettle(t *testing.T) {
	load := &MockLoad{}
	meter := &MockMeter{}
	load.On("SetCurrent", mock.Anything).Return(nil)
	load.On("Enable").Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDriver(load, meter, benchShunts)
	sink := &sliceSink{}
	n, err := d.Run(ctx, models.SweepConfig{Min: 0, Max: 1, Step: 1, Settle: time.Hour}, sink)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	meter.AssertNotCalled(t, "Read")
}

func TestDriverRun_SinkFailure(t *testing.T) {
	load := &MockLoad{}
	meter := &MockMeter{}
	load.On("SetCurrent", mock.Anything).Return(nil)
	load.On("Enable").Return(nil)
	load.On("Disable").Return(nil)
	meter.On("Read").Return(scripted, nil)

	d := NewDriver(load, meter, benchShunts)
	d.Sleep = noSleep
	n, err := d.Run(context.Background(), models.SweepConfig{Min: 0, Max: 1, Step: 1}, &sliceSink{err: errors.New("disk full")})
	require.Error(t, err)
	assert.Zero(t, n)
}
