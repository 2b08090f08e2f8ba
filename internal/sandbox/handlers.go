package sandbox

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ppiankov/nightaudit/internal/model"
)

type dateBody struct {
	AuditDate       string `json:"audit_date"`
	ChargeNoShowFee bool   `json:"charge_no_show_fee"`
}

type endOfDayBody struct {
	AuditID string `json:"audit_id"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	key, ok := queryKey(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.audits[key]
	if !found {
		writeJSON(w, http.StatusOK, model.AuditStatus{Status: model.StateNotStarted})
		return
	}
	writeJSON(w, http.StatusOK, model.AuditStatus{ID: a.id, Status: a.status})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	key, ok := queryKey(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.audits[key]
	if !found {
		writeError(w, http.StatusNotFound, "audit report not found for "+string(key))
		return
	}
	writeJSON(w, http.StatusOK, model.AuditReport{
		Audit: &model.AuditSummary{
			TotalRooms:    s.cfg.TotalRooms,
			OccupiedRooms: a.occupied(),
			TotalRevenue:  a.postedRevenue(),
		},
		BookingsByStatus: a.byStatus(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	key, ok := bodyKey(w, r, nil)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, found := s.audits[key]; found {
		writeError(w, http.StatusConflict, fmt.Sprintf("night audit for %s is already %s", key, a.status))
		return
	}

	a := &audit{id: uuid.NewString(), status: model.StateInProgress}
	for _, b := range s.cfg.Seed(key) {
		a.bookings = append(a.bookings, &b)
	}
	s.audits[key] = a
	s.byID[a.id] = key

	occupancy := decimal.Zero
	if s.cfg.TotalRooms > 0 {
		occupancy = decimal.NewFromInt(int64(a.occupied())).
			Div(decimal.NewFromInt(int64(s.cfg.TotalRooms))).
			Mul(decimal.NewFromInt(100)).
			Round(1)
	}
	writeJSON(w, http.StatusOK, model.StartResult{
		AuditID: a.id,
		Statistics: model.StartStatistics{
			TotalRooms:   s.cfg.TotalRooms,
			OccupancyPct: occupancy,
			TotalRevenue: a.roomRevenue(),
		},
	})
}

// handleAutoPosting posts one night for every in-house booking. Each call
// posts again.
func (s *Server) handleAutoPosting(w http.ResponseWriter, r *http.Request) {
	key, ok := bodyKey(w, r, nil)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.openAudit(w, key)
	if !ok {
		return
	}
	res := model.AutoPostingResult{TotalAmountPosted: decimal.Zero}
	for _, b := range a.bookings {
		if b.Status != BookingCheckedIn {
			continue
		}
		b.Posted = b.Posted.Add(b.Rate)
		res.PostedCount++
		res.TotalAmountPosted = res.TotalAmountPosted.Add(b.Rate)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleNoShows(w http.ResponseWriter, r *http.Request) {
	var body dateBody
	key, ok := bodyKey(w, r, &body)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.openAudit(w, key)
	if !ok {
		return
	}
	res := model.NoShowResult{TotalNoShowCharges: decimal.Zero}
	for _, b := range a.bookings {
		if b.Status != BookingConfirmed {
			continue
		}
		b.Status = BookingNoShow
		res.NoShowsProcessed++
		if body.ChargeNoShowFee {
			b.Posted = b.Posted.Add(b.Rate)
			res.TotalNoShowCharges = res.TotalNoShowCharges.Add(b.Rate)
		}
	}
	a.noShows += res.NoShowsProcessed
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEndOfDay(w http.ResponseWriter, r *http.Request) {
	var body endOfDayBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AuditID == "" {
		writeError(w, http.StatusBadRequest, "audit_id is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key, found := s.byID[body.AuditID]
	if !found {
		writeError(w, http.StatusNotFound, "audit "+body.AuditID+" not found")
		return
	}
	a := s.audits[key]
	if a.status == model.StateCompleted {
		writeError(w, http.StatusConflict, "night audit for "+string(key)+" is already completed")
		return
	}
	a.status = model.StateCompleted
	writeJSON(w, http.StatusOK, model.EndOfDayResult{Summary: model.CloseSummary{
		TotalRevenue:  a.postedRevenue(),
		NoShows:       a.noShows,
		OccupiedRooms: a.occupied(),
	}})
}

// openAudit returns the in-progress audit for key or writes a 409.
// Called with s.mu held.
func (s *Server) openAudit(w http.ResponseWriter, key model.ProcessKey) (*audit, bool) {
	a, found := s.audits[key]
	switch {
	case !found:
		writeError(w, http.StatusConflict, "night audit for "+string(key)+" has not been started")
		return nil, false
	case a.status != model.StateInProgress:
		writeError(w, http.StatusConflict, fmt.Sprintf("night audit for %s is already %s", key, a.status))
		return nil, false
	}
	return a, true
}

func queryKey(w http.ResponseWriter, r *http.Request) (model.ProcessKey, bool) {
	key, err := model.ParseProcessKey(r.URL.Query().Get("audit_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return key, true
}

// bodyKey decodes the audit_date body. into may be nil.
func bodyKey(w http.ResponseWriter, r *http.Request, into *dateBody) (model.ProcessKey, bool) {
	if into == nil {
		into = &dateBody{}
	}
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	key, err := model.ParseProcessKey(into.AuditDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return key, true
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
