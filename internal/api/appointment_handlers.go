package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicops/clinic-backoffice/internal/appointment"
)

func parseAppointmentID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	return id, err == nil
}

// parseDate accepts YYYY-MM-DD.
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := appointment.ListFilter{
			Status:     appointment.Status(q.Get("status")),
			DoctorName: q.Get("doctor"),
			Oldest:     q.Get("order") == "oldest",
		}
		if raw := q.Get("date"); raw != "" {
			date, err := parseDate(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			filter.Date = &date
		}

		appts, err := svc.List(r.Context(), clinicID(r), filter)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			out = append(out, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be a valid UUID")
			return
		}

		detail, err := svc.Get(r.Context(), clinicID(r), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponse(detail))
	}
}

func approveAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be a valid UUID")
			return
		}

		var req ApproveAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ref := appointment.DoctorRef{Name: req.DoctorName}
		if req.DoctorID != "" {
			doctorID, err := uuid.Parse(req.DoctorID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			ref.ID = &doctorID
		}

		appt, err := svc.Approve(r.Context(), clinicID(r), id, ref)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func declineAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be a valid UUID")
			return
		}

		appt, err := svc.Decline(r.Context(), clinicID(r), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be a valid UUID")
			return
		}

		var req CompleteAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		input := appointment.CompletionInput{
			PrescriptionName:    req.Prescription.Name,
			PrescriptionDetails: req.Prescription.Details,
			NoteContent:         req.Note.Content,
			BillingTitle:        req.Billing.Title,
			BillingAmount:       req.Billing.Amount,
			BillingStatus:       appointment.BillingStatus(req.Billing.Status),
		}
		if req.Billing.DueDate != "" {
			due, err := parseDate(req.Billing.DueDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_due_date", "billing.due_date must be YYYY-MM-DD")
				return
			}
			input.BillingDueDate = &due
		}

		appt, err := svc.Complete(r.Context(), clinicID(r), id, input)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func savePrescriptionHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be a valid UUID")
			return
		}

		var req PrescriptionPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := svc.SaveDraftPrescription(r.Context(), clinicID(r), id, req.Name, req.Details); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "saved"})
	}
}

func saveBillingHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be a valid UUID")
			return
		}

		var req BillingPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var due *time.Time
		if req.DueDate != "" {
			d, err := parseDate(req.DueDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_due_date", "due_date must be YYYY-MM-DD")
				return
			}
			due = &d
		}

		err := svc.SaveDraftBilling(r.Context(), clinicID(r), id, req.Title, req.Amount, due, appointment.BillingStatus(req.Status))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "saved"})
	}
}

func patchBillingHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be a valid UUID")
			return
		}

		var req BillingPatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patch := appointment.BillingPatch{
			Title:  req.Title,
			Amount: req.Amount,
		}
		if req.DueDate != nil {
			due, err := parseDate(*req.DueDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_due_date", "due_date must be YYYY-MM-DD")
				return
			}
			patch.DueDate = &due
		}
		if req.Status != nil {
			status := appointment.BillingStatus(*req.Status)
			patch.Status = &status
		}

		if err := svc.UpdateBilling(r.Context(), clinicID(r), id, patch); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}
