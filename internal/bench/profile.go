// Package bench wires the four instruments of the efficiency bench to the
// sweep driver from declarative device profiles.
package bench

import (
	"fmt"

	"github.com/RMahshie/effsweep/internal/config"
)

// Roles of the bench instruments
const (
	RoleLoad = "load"
	RoleVin  = "vin_ps"
	RoleVcc  = "vcc_ps"
	RoleDAQ  = "daq"
)

// Command keys used by profiles
const (
	CmdSetCurrent = "set_current" // %g amps
	CmdEnable     = "enable"
	CmdDisable    = "disable"
	CmdSetVoltage = "set_voltage" // %g volts
	CmdSetLimit   = "set_limit"   // %g amps
)

// DAQ channel keys
const (
	ChanVin        = "vin"
	ChanVsenseIin  = "vsense_iin"
	ChanVout       = "vout"
	ChanVsenseIout = "vsense_iout"
)

// DeviceProfile describes one instrument: where it lives, how to bring it up
// and down, and which text commands drive it.
type DeviceProfile struct {
	Role    string
	Address string
	Setup   []string
	// Program is sent ahead of the voltage and limit commands each time a
	// supply is programmed
	Program  []string
	Shutdown []string
	Commands map[string]string
	Channels map[string]string
}

// Command formats the named command; unknown names are an error
func (p DeviceProfile) Command(name string, args ...interface{}) (string, error) {
	format, ok := p.Commands[name]
	if !ok {
		return "", fmt.Errorf("%s profile has no %q command", p.Role, name)
	}
	if len(args) == 0 {
		return format, nil
	}
	return fmt.Sprintf(format, args...), nil
}

// Profiles is the full bench, one profile per role
type Profiles struct {
	Load DeviceProfile
	Vin  DeviceProfile
	Vcc  DeviceProfile
	DAQ  DeviceProfile
}

// All returns the profiles in open order
func (p Profiles) All() []DeviceProfile {
	return []DeviceProfile{p.Load, p.Vin, p.Vcc, p.DAQ}
}

// DefaultProfiles returns the electronic load, DC input supply, auxiliary
// supply and Keysight DAQ command sets, addressed from cfg.
func DefaultProfiles(cfg config.BenchConfig) Profiles {
	return Profiles{
		Load: DeviceProfile{
			Role:    RoleLoad,
			Address: cfg.LoadAddress,
			// Remote mode, channel 3, constant current at 0 A, output off
			Setup:    []string{"CONF:REM ON", "CHAN 3", "MODE CCH", "CURR:STAT:L1 0", "LOAD OFF"},
			Shutdown: []string{"LOAD OFF"},
			Commands: map[string]string{
				CmdSetCurrent: "CURR:STAT:L1 %g",
				CmdEnable:     "LOAD ON",
				CmdDisable:    "LOAD OFF",
			},
		},
		Vin: DeviceProfile{
			Role:     RoleVin,
			Address:  cfg.VinAddress,
			Shutdown: []string{"CONF:OUTP OFF"},
			Commands: map[string]string{
				CmdSetVoltage: "SOUR:VOLT %g",
				CmdSetLimit:   "SOUR:CURR %g",
				CmdEnable:     "CONF:OUTP ON",
			},
		},
		Vcc: DeviceProfile{
			Role:     RoleVcc,
			Address:  cfg.VccAddress,
			Program:  []string{"INST CH1"},
			Shutdown: []string{"OUTP CH1,OFF"},
			Commands: map[string]string{
				CmdSetVoltage: "VOLT %g",
				CmdSetLimit:   "CURR %g",
				CmdEnable:     "OUTP CH1,ON",
			},
		},
		DAQ: DeviceProfile{
			Role:    RoleDAQ,
			Address: cfg.DAQAddress,
			Channels: map[string]string{
				ChanVin:        "MEAS:VOLT:DC? 100, 1E-4, (@101)",
				ChanVsenseIin:  "MEAS:VOLT? 2, 1E-5,(@102)",
				ChanVout:       "MEAS:VOLT? 100, 1E-4,(@103)",
				ChanVsenseIout: "MEAS:VOLT? 1, 1E-5,(@104)",
			},
		},
	}
}
