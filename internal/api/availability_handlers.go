package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/clinicops/clinic-backoffice/internal/availability"
)

func setRecurringSlotHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseDoctorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor id must be a valid UUID")
			return
		}

		var req RecurringSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		window, err := availability.ParseTimeRange(req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
			return
		}

		if err := svc.SetRecurring(r.Context(), clinicID(r), doctorID, req.DayOfWeek, window, req.Available); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	}
}

func setDateOverrideHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseDoctorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor id must be a valid UUID")
			return
		}

		var req DateOverrideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, err := parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		window, err := availability.ParseTimeRange(req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
			return
		}

		if err := svc.SetDateOverride(r.Context(), clinicID(r), doctorID, date, window, req.Available); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	}
}

func generateSlotsHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseDoctorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor id must be a valid UUID")
			return
		}

		var req GenerateSlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		window, err := availability.ParseTimeRange(req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
			return
		}

		dates, err := svc.BulkGenerate(r.Context(), clinicID(r), doctorID, req.DayOfWeek, window, req.RepeatMonths)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := GenerateSlotsResponse{Generated: make([]string, 0, len(dates))}
		for _, d := range dates {
			resp.Generated = append(resp.Generated, d.Format("2006-01-02"))
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func monthAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseDoctorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor id must be a valid UUID")
			return
		}

		q := r.URL.Query()
		year, err := strconv.Atoi(q.Get("year"))
		if err != nil || year < 2000 || year > 2200 {
			writeError(w, http.StatusBadRequest, "invalid_year", "year must be a four-digit number")
			return
		}
		month, err := strconv.Atoi(q.Get("month"))
		if err != nil || month < 1 || month > 12 {
			writeError(w, http.StatusBadRequest, "invalid_month", "month must be 1-12")
			return
		}

		days, err := svc.MonthView(r.Context(), doctorID, year, time.Month(month))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMonthResponse(days))
	}
}

func clearDateAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseDoctorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor id must be a valid UUID")
			return
		}

		date, err := parseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date query param must be YYYY-MM-DD")
			return
		}

		if err := svc.ClearDate(r.Context(), doctorID, date); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func clearWeekdayAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseDoctorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor id must be a valid UUID")
			return
		}

		dayOfWeek, err := strconv.Atoi(r.URL.Query().Get("day_of_week"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_day_of_week", "day_of_week query param must be 1-7")
			return
		}

		if err := svc.ClearWeekday(r.Context(), doctorID, dayOfWeek); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
