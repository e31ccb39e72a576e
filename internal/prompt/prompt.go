// Package prompt collects the sweep parameters interactively.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/RMahshie/effsweep/pkg/models"
)

// Collect asks for each sweep parameter in turn. Blank, non-numeric, NaN or
// infinite answers are asked again; running out of input is an error.
func Collect(in io.Reader, out io.Writer) (models.SweepConfig, error) {
	var cfg models.SweepConfig
	var settle, recovery float64

	sc := bufio.NewScanner(in)
	fields := []struct {
		label string
		dst   *float64
	}{
		{"Vin voltage (V)", &cfg.Vin.Voltage},
		{"Vin current limit (A)", &cfg.Vin.CurrentLimit},
		{"Vcc voltage (V)", &cfg.Vcc.Voltage},
		{"Vcc current limit (A)", &cfg.Vcc.CurrentLimit},
		{"Iout min (A)", &cfg.Min},
		{"Iout max (A)", &cfg.Max},
		{"Iout step (A)", &cfg.Step},
		{"Settle time (s)", &settle},
		{"Recovery time (s)", &recovery},
	}

	for _, f := range fields {
		v, err := ask(sc, out, f.label)
		if err != nil {
			return cfg, err
		}
		*f.dst = v
	}

	cfg.Settle = seconds(settle)
	cfg.Recovery = seconds(recovery)
	return cfg, nil
}

func ask(sc *bufio.Scanner, out io.Writer, label string) (float64, error) {
	for {
		fmt.Fprintf(out, "%s: ", label)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return 0, err
			}
			return 0, fmt.Errorf("no value for %s: %w", label, io.ErrUnexpectedEOF)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(sc.Text()), 64)
		if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, nil
		}
		fmt.Fprintf(out, "  not a number, try again\n")
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
