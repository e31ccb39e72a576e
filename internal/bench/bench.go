package bench

import (
	"context"
	"fmt"

	"github.com/RMahshie/effsweep/internal/instrument"
	"github.com/RMahshie/effsweep/pkg/models"
	"github.com/rs/zerolog/log"
)

// Opener opens instrument sessions
type Opener interface {
	Open(ctx context.Context, address string) (*instrument.Session, error)
}

type device struct {
	profile DeviceProfile
	session *instrument.Session
}

// Bench owns the open sessions for one run
type Bench struct {
	profiles Profiles
	devices  []device
	load     *instrument.Session
	vin      *instrument.Session
	vcc      *instrument.Session
	daq      *instrument.Session
}

// Open connects every instrument in profile order and runs its setup
// commands. On failure every session opened so far is torn down.
func Open(ctx context.Context, opener Opener, profiles Profiles) (*Bench, error) {
	b := &Bench{profiles: profiles}

	for _, p := range profiles.All() {
		s, err := opener.Open(ctx, p.Address)
		if err != nil {
			log.Error().Err(err).Str("role", p.Role).Msg("Failed to open instrument")
			b.Teardown()
			return nil, err
		}
		b.devices = append(b.devices, device{profile: p, session: s})

		if err := s.Configure(p.Setup); err != nil {
			b.Teardown()
			return nil, fmt.Errorf("failed to configure %s: %w", p.Role, err)
		}
		log.Info().Str("role", p.Role).Str("address", p.Address).Int("commands", len(p.Setup)).Msg("Instrument configured")

		switch p.Role {
		case RoleLoad:
			b.load = s
		case RoleVin:
			b.vin = s
		case RoleVcc:
			b.vcc = s
		case RoleDAQ:
			b.daq = s
		}
	}

	return b, nil
}

// ApplySupplies programs and enables the input and auxiliary supplies
func (b *Bench) ApplySupplies(cfg models.SweepConfig) error {
	if err := program(b.vin, b.profiles.Vin, cfg.Vin); err != nil {
		return err
	}
	if err := program(b.vcc, b.profiles.Vcc, cfg.Vcc); err != nil {
		return err
	}
	log.Info().
		Float64("vin", cfg.Vin.Voltage).Float64("vin_limit", cfg.Vin.CurrentLimit).
		Float64("vcc", cfg.Vcc.Voltage).Float64("vcc_limit", cfg.Vcc.CurrentLimit).
		Msg("Supplies enabled")
	return nil
}

func program(s *instrument.Session, p DeviceProfile, set models.SupplySetting) error {
	cmds := append([]string(nil), p.Program...)
	for _, step := range []struct {
		name string
		args []interface{}
	}{
		{CmdSetVoltage, []interface{}{set.Voltage}},
		{CmdSetLimit, []interface{}{set.CurrentLimit}},
		{CmdEnable, nil},
	} {
		cmd, err := p.Command(step.name, step.args...)
		if err != nil {
			return err
		}
		cmds = append(cmds, cmd)
	}
	if err := s.Configure(cmds); err != nil {
		return fmt.Errorf("failed to program %s: %w", p.Role, err)
	}
	return nil
}

// SetCurrent sets the load's constant-current setpoint
func (b *Bench) SetCurrent(amps float64) error {
	cmd, err := b.profiles.Load.Command(CmdSetCurrent, amps)
	if err != nil {
		return err
	}
	return b.load.Write(cmd)
}

// Enable turns the load input on
func (b *Bench) Enable() error {
	cmd, err := b.profiles.Load.Command(CmdEnable)
	if err != nil {
		return err
	}
	return b.load.Write(cmd)
}

// Disable turns the load input off
func (b *Bench) Disable() error {
	cmd, err := b.profiles.Load.Command(CmdDisable)
	if err != nil {
		return err
	}
	return b.load.Write(cmd)
}

// Read samples the four DAQ channels in order
func (b *Bench) Read() (models.Readings, error) {
	var r models.Readings
	for _, ch := range []struct {
		key string
		dst *float64
	}{
		{ChanVin, &r.Vin},
		{ChanVsenseIin, &r.VsenseIin},
		{ChanVout, &r.Vout},
		{ChanVsenseIout, &r.VsenseIout},
	} {
		query, ok := b.profiles.DAQ.Channels[ch.key]
		if !ok {
			return r, fmt.Errorf("daq profile has no %q channel", ch.key)
		}
		v, err := b.daq.QueryFloat(query)
		if err != nil {
			return r, err
		}
		*ch.dst = v
	}
	return r, nil
}

// Teardown sends each opened device its shutdown commands and closes its
// session. Failures are logged and never stop the remaining devices.
func (b *Bench) Teardown() {
	for _, d := range b.devices {
		for _, cmd := range d.profile.Shutdown {
			if err := d.session.Write(cmd); err != nil {
				log.Warn().Err(err).Str("role", d.profile.Role).Str("command", cmd).Msg("Shutdown command failed")
			}
		}
		if err := d.session.Close(); err != nil {
			log.Warn().Err(err).Str("role", d.profile.Role).Msg("Failed to close session")
			continue
		}
		log.Info().Str("role", d.profile.Role).Msg("Session closed")
	}
	b.devices = nil
}
