package sandbox

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/nightaudit/internal/model"
)

// Booking statuses known to the sandbox.
const (
	BookingConfirmed  = "confirmed"
	BookingCheckedIn  = "checked_in"
	BookingCheckedOut = "checked_out"
	BookingNoShow     = "no_show"
	BookingCancelled  = "cancelled"
)

var bookingOrder = []string{BookingCheckedIn, BookingConfirmed, BookingNoShow, BookingCheckedOut, BookingCancelled}

// Booking is one reservation on the audit date.
type Booking struct {
	ID     string          `json:"id"`
	Guest  string          `json:"guest"`
	Room   string          `json:"room"`
	Status string          `json:"status"`
	Rate   decimal.Decimal `json:"rate"`
	Posted decimal.Decimal `json:"posted"`
}

// SeedFunc produces the bookings the sandbox serves for a date.
type SeedFunc func(key model.ProcessKey) []Booking

// DefaultSeed fills a 40-room property: 30 in-house guests, 3 expected
// arrivals that never showed up, 2 departures and 1 cancellation.
func DefaultSeed(key model.ProcessKey) []Booking {
	var out []Booking
	add := func(n int, status string, rate string) {
		for i := 0; i < n; i++ {
			idx := len(out) + 1
			out = append(out, Booking{
				ID:     fmt.Sprintf("%s-%03d", key, idx),
				Guest:  fmt.Sprintf("Guest %d", idx),
				Room:   fmt.Sprintf("%d", 100+idx),
				Status: status,
				Rate:   decimal.RequireFromString(rate),
			})
		}
	}
	add(30, BookingCheckedIn, "150.00")
	add(3, BookingConfirmed, "120.00")
	add(2, BookingCheckedOut, "140.00")
	add(1, BookingCancelled, "110.00")
	return out
}

// audit is the server-side night audit record for one date.
type audit struct {
	id       string
	status   model.AuditState
	bookings []*Booking
	noShows  int
}

func (a *audit) occupied() int {
	n := 0
	for _, b := range a.bookings {
		if b.Status == BookingCheckedIn {
			n++
		}
	}
	return n
}

func (a *audit) roomRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, b := range a.bookings {
		if b.Status == BookingCheckedIn {
			total = total.Add(b.Rate)
		}
	}
	return total
}

func (a *audit) postedRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, b := range a.bookings {
		total = total.Add(b.Posted)
	}
	return total
}

func (a *audit) byStatus() []model.BookingStatusCount {
	counts := make(map[string]*model.BookingStatusCount)
	for _, b := range a.bookings {
		c, ok := counts[b.Status]
		if !ok {
			c = &model.BookingStatusCount{Status: b.Status, Revenue: decimal.Zero}
			counts[b.Status] = c
		}
		c.Count++
		c.Revenue = c.Revenue.Add(b.Posted)
	}
	out := make([]model.BookingStatusCount, 0, len(counts))
	for _, s := range bookingOrder {
		if c, ok := counts[s]; ok {
			out = append(out, *c)
			delete(counts, s)
		}
	}
	for _, c := range counts {
		out = append(out, *c)
	}
	return out
}
