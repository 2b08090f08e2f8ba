package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/nightaudit/internal/model"
	"github.com/ppiankov/nightaudit/internal/workflow"
)

func testView() workflow.View {
	return workflow.View{
		ProcessKey: "2024-03-01",
		AuditID:    "a-1",
		Status:     &model.AuditStatus{ID: "a-1", Status: model.StateInProgress},
		Report: &model.AuditReport{
			Audit: &model.AuditSummary{TotalRooms: 40, OccupiedRooms: 30, TotalRevenue: decimal.RequireFromString("4500")},
			BookingsByStatus: []model.BookingStatusCount{
				{Status: "checked_in", Count: 30, Revenue: decimal.RequireFromString("4500")},
				{Status: "no_show", Count: 3, Revenue: decimal.Zero},
			},
		},
		Results: workflow.Results{
			AutoPosting: &model.AutoPostingResult{PostedCount: 30, TotalAmountPosted: decimal.RequireFromString("4500")},
		},
		Steps: []workflow.StepView{
			{Name: model.StepStart, Title: "Start night audit", Completed: true},
			{Name: model.StepAutoPosting, Title: "Post room revenue", Completed: true},
			{Name: model.StepNoShow, Title: "Process no-shows"},
			{Name: model.StepEndOfDay, Title: "Close day"},
		},
	}
}

func readBack(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func rowsOf(t *testing.T, f *excelize.File, sheet string) [][]string {
	t.Helper()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", sheet, err)
	}
	return rows
}

func lookup(rows [][]string, field string) string {
	for _, r := range rows {
		if len(r) >= 2 && r[0] == field {
			return r[1]
		}
	}
	return ""
}

func TestWriteProducesThreeSheets(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testView(), nil); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	f := readBack(t, buf.Bytes())

	got := f.GetSheetList()
	want := []string{SheetSummary, SheetBookings, SheetSteps}
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sheet %d = %q, want %q", i, got[i], want[i])
		}
	}

	summary := rowsOf(t, f, SheetSummary)
	checks := map[string]string{
		"Audit date":          "2024-03-01",
		"Status":              "in_progress",
		"Occupancy":           "75.0%",
		"Total revenue":       "4500.00",
		"Room revenue posted": "4500.00",
		"Session state":       "room_revenue_posted",
	}
	for field, want := range checks {
		if got := lookup(summary, field); got != want {
			t.Errorf("%s = %q, want %q", field, got, want)
		}
	}

	bookings := rowsOf(t, f, SheetBookings)
	if len(bookings) != 3 || bookings[1][0] != "checked_in" || bookings[1][1] != "30" {
		t.Errorf("bookings rows = %v", bookings)
	}

	steps := rowsOf(t, f, SheetSteps)
	if len(steps) != 5 || steps[1][2] != "yes" || steps[3][2] != "no" {
		t.Errorf("step checklist rows = %v", steps)
	}
}

func TestStepsSheetUsesRecords(t *testing.T) {
	records := []model.StepRecord{
		{Step: model.StepStart, Outcome: model.OutcomeSucceeded, AuditID: "a-1", StartedAt: time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC), Duration: 120 * time.Millisecond},
		{Step: model.StepEndOfDay, Outcome: model.OutcomeFailed, Error: "folio open", StartedAt: time.Date(2024, 3, 2, 1, 5, 0, 0, time.UTC)},
	}
	path := filepath.Join(t.TempDir(), "audit.xlsx")
	if err := Save(path, testView(), records); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	steps := rowsOf(t, f, SheetSteps)
	if len(steps) != 3 {
		t.Fatalf("rows = %v", steps)
	}
	if steps[1][1] != "start" || steps[1][4] != "120" {
		t.Errorf("first record row = %v", steps[1])
	}
	if steps[2][2] != "failed" || steps[2][5] != "folio open" {
		t.Errorf("second record row = %v", steps[2])
	}
}

func TestNoReportUsesPlaceholder(t *testing.T) {
	v := testView()
	v.Report = nil
	var buf bytes.Buffer
	if err := Write(&buf, v, nil); err != nil {
		t.Fatal(err)
	}
	f := readBack(t, buf.Bytes())
	if got := lookup(rowsOf(t, f, SheetSummary), "Occupancy"); got != workflow.OccupancyPlaceholder {
		t.Errorf("Occupancy = %q", got)
	}
	if rows := rowsOf(t, f, SheetBookings); len(rows) != 1 {
		t.Errorf("bookings sheet should only hold the header, got %v", rows)
	}
}
