package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic-backoffice/internal/appointment"
	"github.com/clinicops/clinic-backoffice/internal/availability"
	"github.com/clinicops/clinic-backoffice/internal/doctor"
)

type ApproveAppointmentRequest struct {
	DoctorID   string `json:"doctor_id,omitempty"`
	DoctorName string `json:"doctor_name,omitempty"`
}

type PrescriptionPayload struct {
	Name    string `json:"name"`
	Details string `json:"details"`
}

type NotePayload struct {
	Content string `json:"content"`
}

type BillingPayload struct {
	Title   string  `json:"title"`
	Amount  float64 `json:"amount"`
	DueDate string  `json:"due_date,omitempty"` // YYYY-MM-DD
	Status  string  `json:"status,omitempty"`
}

type CompleteAppointmentRequest struct {
	Prescription PrescriptionPayload `json:"prescription"`
	Note         NotePayload         `json:"note"`
	Billing      BillingPayload      `json:"billing"`
}

type BillingPatchRequest struct {
	Title   *string  `json:"title,omitempty"`
	Amount  *float64 `json:"amount,omitempty"`
	DueDate *string  `json:"due_date,omitempty"` // YYYY-MM-DD
	Status  *string  `json:"status,omitempty"`
}

type AppointmentResponse struct {
	ID         uuid.UUID  `json:"id"`
	ClinicID   uuid.UUID  `json:"clinic_id"`
	UserID     uuid.UUID  `json:"user_id"`
	Patient    *string    `json:"patient_name,omitempty"`
	Date       string     `json:"date"`
	Time       string     `json:"time"`
	Reason     string     `json:"reason"`
	DoctorID   *uuid.UUID `json:"doctor_id,omitempty"`
	DoctorName *string    `json:"doctor_name,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		ClinicID:   a.ClinicID,
		UserID:     a.UserID,
		Patient:    a.PatientName,
		Date:       a.Date.Format("2006-01-02"),
		Time:       a.Time,
		Reason:     a.Reason,
		DoctorID:   a.DoctorID,
		DoctorName: a.DoctorName,
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	Patient       *PatientResponse           `json:"patient,omitempty"`
	Prescriptions []appointment.Prescription `json:"prescriptions"`
	Billings      []appointment.Billing      `json:"billings"`
	Notes         []appointment.DoctorNote   `json:"notes"`
}

type PatientResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Address  *string   `json:"address,omitempty"`
	Gender   *string   `json:"gender,omitempty"`
}

func toDetailResponse(d *appointment.Detail) AppointmentDetailResponse {
	resp := AppointmentDetailResponse{
		AppointmentResponse: toAppointmentResponse(&d.Appointment),
		Prescriptions:       d.Prescriptions,
		Billings:            d.Billings,
		Notes:               d.Notes,
	}
	if d.Patient != nil {
		resp.Patient = &PatientResponse{
			ID:       d.Patient.ID,
			FullName: d.Patient.FullName,
			Address:  d.Patient.Address,
			Gender:   d.Patient.Gender,
		}
	}
	return resp
}

type DoctorRequest struct {
	Name             string  `json:"name"`
	SpecializationID *string `json:"specialization_id,omitempty"`
}

type DoctorResponse struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	SpecializationID *uuid.UUID `json:"specialization_id,omitempty"`
}

func toDoctorResponse(d *doctor.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:               d.ID,
		Name:             d.Name,
		SpecializationID: d.SpecializationID,
	}
}

type CascadeReportResponse struct {
	Updated  []string          `json:"updated"`
	Failures map[string]string `json:"failures,omitempty"`
}

func toCascadeResponse(r *doctor.CascadeReport) *CascadeReportResponse {
	if r == nil {
		return nil
	}
	resp := &CascadeReportResponse{Updated: r.Updated}
	if len(r.Failures) > 0 {
		resp.Failures = make(map[string]string, len(r.Failures))
		for table, err := range r.Failures {
			resp.Failures[table] = err.Error()
		}
	}
	return resp
}

type RecurringSlotRequest struct {
	DayOfWeek int    `json:"day_of_week"` // 1=Monday .. 7=Sunday
	Time      string `json:"time"`        // "09:00" or "09:00 - 18:00"
	Available bool   `json:"available"`
}

type DateOverrideRequest struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type GenerateSlotsRequest struct {
	DayOfWeek    int    `json:"day_of_week"`
	Time         string `json:"time"`
	RepeatMonths int    `json:"repeat_months"`
}

type GenerateSlotsResponse struct {
	Generated []string `json:"generated"` // YYYY-MM-DD per created row
}

type DayAvailabilityResponse struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
	Time      string `json:"time,omitempty"`
	Override  bool   `json:"override,omitempty"`
}

func toMonthResponse(days []availability.DayAvailability) []DayAvailabilityResponse {
	out := make([]DayAvailabilityResponse, 0, len(days))
	for _, d := range days {
		out = append(out, DayAvailabilityResponse{
			Date:      d.Date.Format("2006-01-02"),
			Available: d.Available,
			Time:      d.TimeLabel,
			Override:  d.Override,
		})
	}
	return out
}

type SuppressRequest struct {
	Suppressed bool `json:"suppressed"`
}
