package sweep

import (
	"github.com/RMahshie/effsweep/pkg/models"
)

// CurrentFromShunt converts a sense voltage across a shunt of r ohms to amps
func CurrentFromShunt(vsense, r float64) float64 {
	return vsense / r
}

// Compute derives currents, power loss and efficiency from one set of readings.
// Efficiency is reported as 0 when input power is not positive.
func Compute(r models.Readings, shunts models.Shunts) models.SweepPoint {
	iin := CurrentFromShunt(r.VsenseIin, shunts.Iin)
	iout := CurrentFromShunt(r.VsenseIout, shunts.Iout)
	pin := r.Vin * iin
	pout := r.Vout * iout

	var eff float64
	if pin > 0 {
		eff = 100 * pout / pin
	}

	return models.SweepPoint{
		Vin:        r.Vin,
		Iin:        iin,
		Vout:       r.Vout,
		Iout:       iout,
		Efficiency: eff,
		PowerLoss:  pin - pout,
	}
}
