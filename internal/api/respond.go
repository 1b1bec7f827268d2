package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicops/clinic-backoffice/internal/apperrors"
	"github.com/clinicops/clinic-backoffice/internal/appointment"
	"github.com/clinicops/clinic-backoffice/internal/availability"
	"github.com/clinicops/clinic-backoffice/internal/doctor"
	"github.com/clinicops/clinic-backoffice/internal/report"
)

type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Fields  []string       `json:"fields,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeDomainError maps service errors onto HTTP statuses. Anything not
// recognized is a 500 with a generic body; the real error goes to the log,
// not the client.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: verr.Error(),
			Fields:  verr.Fields,
		})
		return
	}

	var rerr *apperrors.ReferenceIntegrityError
	if errors.As(err, &rerr) {
		details := map[string]any{"updated": rerr.Updated}
		failures := make(map[string]string, len(rerr.Failures))
		for table, ferr := range rerr.Failures {
			failures[table] = ferr.Error()
		}
		details["failures"] = failures
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "reference_cleanup_failed",
			Message: rerr.Error(),
			Details: details,
		})
		return
	}

	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, appointment.ErrDoctorNotFound),
		errors.Is(err, appointment.ErrPatientNotFound),
		errors.Is(err, doctor.ErrDoctorNotFound),
		errors.Is(err, availability.ErrNoAvailability),
		errors.Is(err, report.ErrClinicNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrCompleteInProgress):
		writeError(w, http.StatusConflict, "complete_in_progress", err.Error())
	case errors.Is(err, appointment.ErrDoctorUnavailable):
		writeError(w, http.StatusConflict, "doctor_unavailable", err.Error())
	case errors.Is(err, appointment.ErrBillingAmbiguous):
		writeError(w, http.StatusConflict, "billing_ambiguous", err.Error())
	case errors.Is(err, doctor.ErrNameTaken):
		writeError(w, http.StatusConflict, "doctor_name_taken", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}
