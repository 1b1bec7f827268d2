package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/clinicops/clinic-backoffice/internal/notify"
	"github.com/clinicops/clinic-backoffice/internal/report"
)

func dailyStatsHandler(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := time.Now().UTC()
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := parseDate(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			date = parsed
		}

		stats, err := svc.DailyStats(r.Context(), clinicID(r), date)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func refreshDailyStatsHandler(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := time.Now().UTC()
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := parseDate(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			date = parsed
		}

		stats, err := svc.RefreshDailyStats(r.Context(), clinicID(r), date)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func clinicNameHandler(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := svc.ClinicName(r.Context(), clinicID(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"name": name})
	}
}

func doctorReportsHandler(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, err := svc.DoctorReports(r.Context(), clinicID(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reports)
	}
}

// suppressFeedHandler toggles background stats refresh for the clinic, the
// API equivalent of freezing auto-refresh while an admin edits.
func suppressFeedHandler(suppressor notify.Suppressor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SuppressRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := suppressor.Set(r.Context(), clinicID(r), req.Suppressed); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"suppressed": req.Suppressed})
	}
}
