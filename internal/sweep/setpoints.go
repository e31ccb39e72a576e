package sweep

import (
	"errors"
	"fmt"
	"math"
)

// Tolerance admits a final setpoint that lands just past max through
// floating-point rounding.
const Tolerance = 1e-6

// MaxSetpoints caps a single sweep
const MaxSetpoints = 100000

var (
	// ErrInvalidStep is returned for a non-positive step, which would never reach max
	ErrInvalidStep = errors.New("sweep step must be positive")
	// ErrInvalidRange is returned when min or max is NaN or infinite
	ErrInvalidRange = errors.New("sweep range must be finite")
	// ErrTooManySetpoints is returned when the range holds more than MaxSetpoints points
	ErrTooManySetpoints = errors.New("sweep has too many setpoints")
)

// Setpoints returns min, min+step, ... up to max inclusive. It is empty when min > max.
func Setpoints(min, max, step float64) ([]float64, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, ErrInvalidStep
	}
	if !finite(min) || !finite(max) {
		return nil, ErrInvalidRange
	}
	if min > max+Tolerance {
		return []float64{}, nil
	}

	n := math.Floor((max-min+Tolerance)/step) + 1
	if n > MaxSetpoints {
		return nil, fmt.Errorf("%w: %.0f exceeds %d", ErrTooManySetpoints, n, MaxSetpoints)
	}
	points := make([]float64, 0, int(n))
	for i := 0; ; i++ {
		// Multiply instead of accumulating so late points do not drift
		sp := min + float64(i)*step
		if sp > max+Tolerance {
			break
		}
		points = append(points, sp)
	}
	return points, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
