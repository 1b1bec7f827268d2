package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicops/clinic-backoffice/internal/doctor"
)

func parseDoctorID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	return id, err == nil
}

func parseSpecializationID(raw *string) (*uuid.UUID, bool) {
	if raw == nil || *raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func listDoctorsHandler(svc *doctor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.List(r.Context(), clinicID(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]DoctorResponse, 0, len(doctors))
		for i := range doctors {
			out = append(out, toDoctorResponse(&doctors[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createDoctorHandler(svc *doctor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		specID, ok := parseSpecializationID(req.SpecializationID)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_specialization_id", "specialization_id must be a valid UUID")
			return
		}

		created, err := svc.Create(r.Context(), clinicID(r), req.Name, specID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDoctorResponse(created))
	}
}

func updateDoctorHandler(svc *doctor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseDoctorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor id must be a valid UUID")
			return
		}

		var req DoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		specID, ok := parseSpecializationID(req.SpecializationID)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_specialization_id", "specialization_id must be a valid UUID")
			return
		}

		updated, report, err := svc.Update(r.Context(), clinicID(r), id, req.Name, specID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			DoctorResponse
			Cascade *CascadeReportResponse `json:"cascade,omitempty"`
		}{
			DoctorResponse: toDoctorResponse(updated),
			Cascade:        toCascadeResponse(report),
		})
	}
}

func deleteDoctorHandler(svc *doctor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseDoctorID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor id must be a valid UUID")
			return
		}

		if err := svc.Delete(r.Context(), clinicID(r), id); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listSpecializationsHandler(svc *doctor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specs, err := svc.ListSpecializations(r.Context(), clinicID(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, specs)
	}
}
