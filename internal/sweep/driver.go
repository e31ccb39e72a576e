// Package sweep steps an electronic load through a current range and turns
// each set of DAQ readings into a SweepPoint.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/RMahshie/effsweep/pkg/models"
	"github.com/rs/zerolog/log"
)

// State is a phase of the sweep state machine
type State int

const (
	Idle State = iota
	Energized
	Measuring
	DeEnergized
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Energized:
		return "energized"
	case Measuring:
		return "measuring"
	case DeEnergized:
		return "de-energized"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Load is the electronic load under sweep control
type Load interface {
	SetCurrent(amps float64) error
	Enable() error
	Disable() error
}

// Meter samples the four analog channels
type Meter interface {
	Read() (models.Readings, error)
}

// Sink receives each computed point
type Sink interface {
	Append(ctx context.Context, p models.SweepPoint) error
}

// Driver runs the sweep loop
type Driver struct {
	load   Load
	meter  Meter
	shunts models.Shunts

	// Sleep blocks for d or until ctx is done
	Sleep func(ctx context.Context, d time.Duration) error
	// OnState, when set, observes every transition
	OnState func(s State, setpoint float64)
}

// NewDriver creates a sweep driver
func NewDriver(load Load, meter Meter, shunts models.Shunts) *Driver {
	return &Driver{
		load:   load,
		meter:  meter,
		shunts: shunts,
		Sleep:  sleepContext,
	}
}

// Run executes one pass over cfg's current range and returns how many points
// reached the sink. Settle and recovery are fixed waits; there is no early
// exit on a settled reading.
func (d *Driver) Run(ctx context.Context, cfg models.SweepConfig, sink Sink) (int, error) {
	setpoints, err := Setpoints(cfg.Min, cfg.Max, cfg.Step)
	if err != nil {
		return 0, err
	}

	d.enter(Idle, 0)
	emitted := 0
	for _, sp := range setpoints {
		log.Info().Float64("setpoint", sp).Int("index", emitted).Int("total", len(setpoints)).Msg("Sweep step")

		d.enter(Energized, sp)
		if err := d.load.SetCurrent(sp); err != nil {
			return emitted, fmt.Errorf("failed to set load current %g A: %w", sp, err)
		}
		if err := d.load.Enable(); err != nil {
			return emitted, fmt.Errorf("failed to enable load: %w", err)
		}
		if err := d.Sleep(ctx, cfg.Settle); err != nil {
			return emitted, err
		}

		d.enter(Measuring, sp)
		readings, err := d.meter.Read()
		if err != nil {
			return emitted, fmt.Errorf("failed to read channels at %g A: %w", sp, err)
		}

		d.enter(DeEnergized, sp)
		if err := d.load.SetCurrent(0); err != nil {
			return emitted, fmt.Errorf("failed to zero load current: %w", err)
		}
		if err := d.load.Disable(); err != nil {
			return emitted, fmt.Errorf("failed to disable load: %w", err)
		}
		if err := d.Sleep(ctx, cfg.Recovery); err != nil {
			return emitted, err
		}

		point := Compute(readings, d.shunts)
		point.Setpoint = sp
		log.Info().
			Float64("vin", point.Vin).
			Float64("iin", point.Iin).
			Float64("vout", point.Vout).
			Float64("iout", point.Iout).
			Float64("eff", point.Efficiency).
			Float64("ploss", point.PowerLoss).
			Msg("Sweep point")

		if err := sink.Append(ctx, point); err != nil {
			return emitted, fmt.Errorf("failed to record point: %w", err)
		}
		emitted++
	}

	d.enter(Done, 0)
	return emitted, nil
}

func (d *Driver) enter(s State, setpoint float64) {
	if d.OnState != nil {
		d.OnState(s, setpoint)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
