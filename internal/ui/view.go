package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/nightaudit/internal/model"
	"github.com/ppiankov/nightaudit/internal/workflow"
)

// RenderView renders the full session: summary, bookings, steps, notices.
func RenderView(v workflow.View) string {
	var b strings.Builder
	b.WriteString(Bold("Night audit "+string(v.ProcessKey)) + "\n")
	b.WriteString(RenderSummary(v))

	if v.Report != nil && len(v.Report.BookingsByStatus) > 0 {
		b.WriteString("\n" + RenderBookings(v.Report.BookingsByStatus) + "\n")
	}
	b.WriteString("\n" + RenderSteps(v))
	if len(v.Notices) > 0 {
		b.WriteString("\n" + RenderNotices(v.Notices))
	}
	return b.String()
}

// RenderSummary renders status and report figures as key-value lines.
func RenderSummary(v workflow.View) string {
	status := Muted("unknown")
	if v.Status != nil {
		status = stateLabel(v.Status.Status)
	}
	if v.StatusError != "" {
		status = ErrorStyle.Render(v.StatusError)
	}
	pairs := []Pair{KV("Status", status)}
	if v.AuditID != "" {
		pairs = append(pairs, KV("Audit ID", v.AuditID))
	}
	pairs = append(pairs, KV("Progress", string(v.State())))

	switch {
	case v.ReportError != "":
		pairs = append(pairs, KV("Report", WarnStyle.Render("unavailable: "+v.ReportError)))
	case v.Report == nil:
		pairs = append(pairs, KV("Report", Muted("not available yet")))
	}
	if v.Report != nil && v.Report.Audit != nil {
		a := v.Report.Audit
		pairs = append(pairs,
			KV("Rooms", fmt.Sprintf("%d occupied of %d", a.OccupiedRooms, a.TotalRooms)),
		)
	}
	pairs = append(pairs,
		KV("Occupancy", v.OccupancyDisplay()),
		KV("Revenue", v.RevenueDisplay()),
		KV("Ordering", string(v.Ordering)),
	)
	if v.Disabled {
		busy := "loading"
		if v.RunningStep != "" {
			busy = "running " + v.RunningStep.Title()
		}
		pairs = append(pairs, KV("Busy", WarnStyle.Render(busy)))
	}
	return KeyValues("  ", pairs...)
}

// RenderBookings renders the bookings-by-status table.
func RenderBookings(rows []model.BookingStatusCount) string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Status, strconv.Itoa(r.Count), model.FormatMoney(r.Revenue)})
	}
	return Table([]string{"STATUS", "COUNT", "REVENUE"}, out)
}

// RenderSteps renders the fixed-order step checklist.
func RenderSteps(v workflow.View) string {
	var b strings.Builder
	for i, s := range v.Steps {
		icon := Muted("○")
		switch {
		case v.RunningStep == s.Name:
			icon = Accent("◐")
		case s.Completed:
			icon = Success("✓")
		}
		label := fmt.Sprintf("%d. %s", i+1, s.Title)
		if !s.Enabled && !s.Completed {
			label = Muted(label)
		}
		line := "  " + icon + " " + label
		if res, ok := v.Results.Get(s.Name); ok {
			line += "  " + Muted(ResultLine(res))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// RenderNotices renders notices oldest first.
func RenderNotices(notices []workflow.Notice) string {
	var b strings.Builder
	for _, n := range notices {
		ts := n.At.Format(time.TimeOnly)
		switch n.Level {
		case workflow.LevelError:
			b.WriteString(ErrorMsg("%s %s", Muted(ts), n.Message))
		case workflow.LevelWarn:
			b.WriteString(WarnMsg("%s %s", Muted(ts), n.Message))
		default:
			b.WriteString(InfoMsg("%s %s", Muted(ts), n.Message))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// ResultLine summarizes a step result on one line.
func ResultLine(res model.StepResult) string {
	switch r := res.(type) {
	case model.StartResult:
		return fmt.Sprintf("audit %s, %d rooms, %s%% occupancy, revenue %s",
			r.AuditID, r.Statistics.TotalRooms, r.Statistics.OccupancyPct.StringFixed(1), model.FormatMoney(r.Statistics.TotalRevenue))
	case model.AutoPostingResult:
		return fmt.Sprintf("%d charges posted, %s", r.PostedCount, model.FormatMoney(r.TotalAmountPosted))
	case model.NoShowResult:
		return fmt.Sprintf("%d no-shows, charges %s", r.NoShowsProcessed, model.FormatMoney(r.TotalNoShowCharges))
	case model.EndOfDayResult:
		return fmt.Sprintf("revenue %s, %d no-shows, %d occupied",
			model.FormatMoney(r.Summary.TotalRevenue), r.Summary.NoShows, r.Summary.OccupiedRooms)
	}
	return ""
}

func stateLabel(s model.AuditState) string {
	switch s {
	case model.StateCompleted:
		return Success(string(s))
	case model.StateInProgress:
		return Accent(string(s))
	}
	return Muted(string(s))
}
