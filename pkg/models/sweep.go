package models

import (
	"time"
)

// SweepPoint represents one measured and derived row at a single load setpoint
type SweepPoint struct {
	Setpoint   float64 `json:"setpoint" doc:"Load current setpoint in A"`
	Vin        float64 `json:"vin" doc:"Input voltage in V"`
	Iin        float64 `json:"iin" doc:"Input current in A"`
	Vout       float64 `json:"vout" doc:"Output voltage in V"`
	Iout       float64 `json:"iout" doc:"Output current in A"`
	Efficiency float64 `json:"efficiency" doc:"System efficiency in percent"`
	PowerLoss  float64 `json:"power_loss" doc:"System power loss in W"`
}

// Row returns the point in spreadsheet column order
func (p SweepPoint) Row() []interface{} {
	return []interface{}{p.Vin, p.Iin, p.Vout, p.Iout, p.Efficiency, p.PowerLoss}
}

// Readings holds the four raw DAQ channel values of one sample
type Readings struct {
	Vin        float64
	VsenseIin  float64
	Vout       float64
	VsenseIout float64
}

// Shunts holds the sense resistor values in ohms
type Shunts struct {
	Iin  float64 `json:"iin"`
	Iout float64 `json:"iout"`
}

// SupplySetting is a voltage setpoint with its current limit
type SupplySetting struct {
	Voltage      float64 `json:"voltage" doc:"Output voltage in V"`
	CurrentLimit float64 `json:"current_limit" doc:"Current limit in A"`
}

// SweepConfig holds the parameters entered once per run
type SweepConfig struct {
	Vin      SupplySetting `json:"vin"`
	Vcc      SupplySetting `json:"vcc"`
	Min      float64       `json:"min" doc:"First load current in A"`
	Max      float64       `json:"max" doc:"Last load current in A"`
	Step     float64       `json:"step" doc:"Load current increment in A"`
	Settle   time.Duration `json:"settle" doc:"Wait after enabling the load"`
	Recovery time.Duration `json:"recovery" doc:"Wait after disabling the load"`
}
