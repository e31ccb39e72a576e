// Package results persists sweep points as they are acquired.
package results

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RMahshie/effsweep/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the sweep table
const SheetName = "Efficiency_data"

// Header is the fixed column order of the sweep table
var Header = []interface{}{"Vin(V)", "Iin(A)", "Vout(V)", "Iout(A)", "Eff_sys(%)", "Ploss_sys(W)"}

// OutputPath returns a timestamped workbook path inside dir
func OutputPath(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("efficiency_%s.xlsx", now.Format("20060102_150405")))
}

// Workbook appends sweep points to an xlsx file, saving after every row so
// an interrupted run leaves all earlier points readable.
type Workbook struct {
	path string
	file *excelize.File
	next int
}

// NewWorkbook creates the workbook, writes the header row and saves it
func NewWorkbook(path string) (*Workbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	wb := &Workbook{path: path, file: f, next: 1}
	if err := wb.writeRow(Header); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := wb.save(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return wb, nil
}

// Path returns the file the workbook is saved to
func (w *Workbook) Path() string { return w.path }

// Rows returns the number of data rows written
func (w *Workbook) Rows() int { return w.next - 2 }

// Append writes the next data row and saves the file
func (w *Workbook) Append(_ context.Context, p models.SweepPoint) error {
	if err := w.writeRow(p.Row()); err != nil {
		return err
	}
	return w.save()
}

// Close saves the workbook one last time and releases it
func (w *Workbook) Close() error {
	err := w.save()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (w *Workbook) writeRow(values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", w.next, err)
	}
	w.next++
	return nil
}

func (w *Workbook) save() error {
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	log.Debug().Str("path", w.path).Int("rows", w.Rows()).Msg("Workbook saved")
	return nil
}
