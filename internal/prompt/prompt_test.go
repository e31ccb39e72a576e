package prompt

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/RMahshie/effsweep/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	in := strings.NewReader("12\n6\n3.3\n0.5\n0\n10\n0.5\n2\n1.5\n")
	var out bytes.Buffer

	cfg, err := Collect(in, &out)
	require.NoError(t, err)

	assert.Equal(t, models.SweepConfig{
		Vin:      models.SupplySetting{Voltage: 12, CurrentLimit: 6},
		Vcc:      models.SupplySetting{Voltage: 3.3, CurrentLimit: 0.5},
		Min:      0,
		Max:      10,
		Step:     0.5,
		Settle:   2 * time.Second,
		Recovery: 1500 * time.Millisecond,
	}, cfg)
	assert.Contains(t, out.String(), "Iout step (A): ")
}

func TestCollect_RepromptsOnBadInput(t *testing.T) {
	in := strings.NewReader("twelve\n\n12\n6\n3.3\n0.5\n0\n10\n0.5\n2\n1\n")
	var out bytes.Buffer

	cfg, err := Collect(in, &out)
	require.NoError(t, err)
	assert.Equal(t, 12.0, cfg.Vin.Voltage)
	assert.Equal(t, 2, strings.Count(out.String(), "not a number"))
}

func TestCollect_RejectsNonFinite(t *testing.T) {
	in := strings.NewReader("12\n6\n3.3\n0.5\nnan\n0\ninf\n-Inf\n10\n0.5\n2\n1\n")
	var out bytes.Buffer

	cfg, err := Collect(in, &out)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Min)
	assert.Equal(t, 10.0, cfg.Max)
	assert.Equal(t, 3, strings.Count(out.String(), "not a number"))
}

func TestCollect_EOF(t *testing.T) {
	_, err := Collect(strings.NewReader("12\n6\n"), io.Discard)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "Vcc voltage")
}
