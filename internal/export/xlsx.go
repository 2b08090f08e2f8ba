// Package export writes a night audit session to an Excel workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/nightaudit/internal/model"
	"github.com/ppiankov/nightaudit/internal/workflow"
)

// Sheet names in the generated workbook.
const (
	SheetSummary  = "Summary"
	SheetBookings = "Bookings"
	SheetSteps    = "Steps"
)

// Workbook builds the report for v. records, usually read from the history
// store, fill the Steps sheet; when empty the sheet lists the session's
// step checklist instead.
func Workbook(v workflow.View, records []model.StepRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	for _, name := range []string{SheetBookings, SheetSteps} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create %s sheet: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	w := sheetWriter{f: f, header: header}
	w.summary(v)
	w.bookings(v)
	w.steps(v, records)
	if w.err != nil {
		_ = f.Close()
		return nil, w.err
	}
	return f, nil
}

// Write encodes the workbook for v to out.
func Write(out io.Writer, v workflow.View, records []model.StepRecord) error {
	f, err := Workbook(v, records)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Save writes the workbook for v to path.
func Save(path string, v workflow.View, records []model.StepRecord) error {
	f, err := Workbook(v, records)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// sheetWriter keeps the first error so callers can write rows unchecked.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
}

func (w *sheetWriter) headerRow(sheet string, cols ...any) {
	w.row(sheet, 1, cols...)
	if w.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(cols), 1)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
		w.err = fmt.Errorf("style %s header: %w", sheet, err)
		return
	}
	end, _ := excelize.ColumnNumberToName(len(cols))
	if err := w.f.SetColWidth(sheet, "A", end, 20); err != nil {
		w.err = fmt.Errorf("size %s columns: %w", sheet, err)
	}
}

func (w *sheetWriter) summary(v workflow.View) {
	status := "unknown"
	if v.Status != nil {
		status = string(v.Status.Status)
	}
	totalRooms, occupied := 0, 0
	if v.Report != nil && v.Report.Audit != nil {
		totalRooms, occupied = v.Report.Audit.TotalRooms, v.Report.Audit.OccupiedRooms
	}

	w.headerRow(SheetSummary, "Field", "Value")
	rows := [][]any{
		{"Audit date", string(v.ProcessKey)},
		{"Audit ID", v.AuditID},
		{"Status", status},
		{"Session state", string(v.State())},
		{"Total rooms", totalRooms},
		{"Occupied rooms", occupied},
		{"Occupancy", v.OccupancyDisplay()},
		{"Total revenue", v.RevenueDisplay()},
		{"Generated at", time.Now().UTC().Format(time.RFC3339)},
	}
	if v.Results.AutoPosting != nil {
		rows = append(rows, []any{"Room charges posted", v.Results.AutoPosting.PostedCount},
			[]any{"Room revenue posted", model.FormatMoney(v.Results.AutoPosting.TotalAmountPosted)})
	}
	if v.Results.NoShow != nil {
		rows = append(rows, []any{"No-shows processed", v.Results.NoShow.NoShowsProcessed},
			[]any{"No-show charges", model.FormatMoney(v.Results.NoShow.TotalNoShowCharges)})
	}
	for i, r := range rows {
		w.row(SheetSummary, i+2, r...)
	}
}

func (w *sheetWriter) bookings(v workflow.View) {
	w.headerRow(SheetBookings, "Status", "Count", "Revenue")
	if v.Report == nil {
		return
	}
	for i, b := range v.Report.BookingsByStatus {
		w.row(SheetBookings, i+2, b.Status, b.Count, model.FormatMoney(b.Revenue))
	}
}

func (w *sheetWriter) steps(v workflow.View, records []model.StepRecord) {
	if len(records) == 0 {
		w.headerRow(SheetSteps, "Step", "Title", "Completed")
		for i, s := range v.Steps {
			w.row(SheetSteps, i+2, string(s.Name), s.Title, yesNo(s.Completed))
		}
		return
	}
	w.headerRow(SheetSteps, "Started", "Step", "Outcome", "Audit ID", "Duration (ms)", "Error")
	for i, r := range records {
		w.row(SheetSteps, i+2,
			r.StartedAt.UTC().Format(time.RFC3339),
			string(r.Step),
			string(r.Outcome),
			r.AuditID,
			r.Duration.Milliseconds(),
			r.Error,
		)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
