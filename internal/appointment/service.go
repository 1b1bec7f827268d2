package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicops/clinic-backoffice/internal/apperrors"
	"github.com/clinicops/clinic-backoffice/internal/notify"
	"github.com/clinicops/clinic-backoffice/internal/observability/metrics"
	"github.com/clinicops/clinic-backoffice/internal/redisclient"
)

const (
	EventAppointmentApproved  = "APPOINTMENT_APPROVED"
	EventAppointmentDeclined  = "APPOINTMENT_DECLINED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
)

var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrDoctorUnavailable       = errors.New("doctor is not available at the requested time")
	ErrCompleteInProgress      = errors.New("appointment is already being completed, please retry")
)

// AvailabilityChecker is how the lifecycle manager consults the availability
// engine during approval.
type AvailabilityChecker interface {
	Bookable(ctx context.Context, doctorID uuid.UUID, date time.Time, hhmm string) (bool, error)
}

// Service owns the appointment state machine:
// pending -> approved -> completed, pending -> declined.
// Declined and completed are terminal.
type Service struct {
	repo    Repository
	locker  redisclient.Locker
	checker AvailabilityChecker
	feed    notify.Feed
	metrics *metrics.LifecycleMetrics
	logger  *zap.Logger
}

func NewService(repo Repository, locker redisclient.Locker, checker AvailabilityChecker, feed notify.Feed, m *metrics.LifecycleMetrics, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		locker:  locker,
		checker: checker,
		feed:    feed,
		metrics: m,
		logger:  logger,
	}
}

// Approve moves a pending appointment to approved, storing the resolved
// treating doctor. The doctor reference may be an id (primary) or a legacy
// name resolved within the clinic.
func (s *Service) Approve(ctx context.Context, clinicID, id uuid.UUID, ref DoctorRef) (*Appointment, error) {
	if ref.Empty() {
		s.metrics.ObserveTransition("approve", "rejected")
		return nil, apperrors.NewValidation("doctor")
	}

	appt, err := s.repo.GetAppointment(ctx, clinicID, id)
	if err != nil {
		s.metrics.ObserveTransition("approve", "error")
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != StatusPending {
		s.metrics.ObserveTransition("approve", "rejected")
		return nil, ErrInvalidStatusTransition
	}

	var doctorID uuid.UUID
	var doctorName string
	if ref.ID != nil {
		doctorID = *ref.ID
		doctorName, err = s.repo.GetDoctorName(ctx, clinicID, doctorID)
	} else {
		doctorName = ref.Name
		doctorID, err = s.repo.ResolveDoctorID(ctx, clinicID, ref.Name)
	}
	if err != nil {
		s.metrics.ObserveTransition("approve", "error")
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve doctor: %w", err)
	}

	if s.checker != nil {
		ok, err := s.checker.Bookable(ctx, doctorID, appt.Date, appt.Time)
		if err != nil {
			s.metrics.ObserveTransition("approve", "error")
			return nil, fmt.Errorf("check availability: %w", err)
		}
		if !ok {
			s.metrics.ObserveTransition("approve", "rejected")
			return nil, ErrDoctorUnavailable
		}
	}

	if err := s.repo.SetDoctor(ctx, clinicID, id, doctorID, doctorName); err != nil {
		s.metrics.ObserveTransition("approve", "error")
		return nil, fmt.Errorf("set doctor: %w", err)
	}

	updated, err := s.repo.UpdateStatus(ctx, clinicID, id, StatusPending, StatusApproved)
	if err != nil {
		s.metrics.ObserveTransition("approve", "error")
		if errors.Is(err, ErrStatusConflict) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("approve appointment: %w", err)
	}

	s.metrics.ObserveTransition("approve", "ok")
	s.logEvent(ctx, updated.ID, EventAppointmentApproved, map[string]any{
		"doctor_id":   doctorID.String(),
		"doctor_name": doctorName,
	})
	s.publish(ctx, updated)
	return updated, nil
}

// Decline moves a pending appointment to declined. Declined is terminal.
func (s *Service) Decline(ctx context.Context, clinicID, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, clinicID, id)
	if err != nil {
		s.metrics.ObserveTransition("decline", "error")
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != StatusPending {
		s.metrics.ObserveTransition("decline", "rejected")
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, clinicID, id, StatusPending, StatusDeclined)
	if err != nil {
		s.metrics.ObserveTransition("decline", "error")
		if errors.Is(err, ErrStatusConflict) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("decline appointment: %w", err)
	}

	s.metrics.ObserveTransition("decline", "ok")
	s.logEvent(ctx, updated.ID, EventAppointmentDeclined, map[string]any{})
	s.publish(ctx, updated)
	return updated, nil
}

// Complete flips an approved appointment to completed together with its
// three side-effect records, all-or-nothing. Validation is strict: every
// field of the prescription, billing and clinical note must be present
// (lenient submit-anyway behavior is intentionally not supported). A failed
// Complete leaves the appointment approved and writes nothing, so retrying
// never duplicates rows.
func (s *Service) Complete(ctx context.Context, clinicID, id uuid.UUID, input CompletionInput) (*Appointment, error) {
	if missing := validateCompletion(input); len(missing) > 0 {
		s.metrics.ObserveTransition("complete", "rejected")
		return nil, &apperrors.ValidationError{Fields: missing}
	}

	var completed *Appointment

	err := s.locker.WithAppointmentLock(ctx, id, func(lockCtx context.Context) error {
		appt, err := s.repo.GetAppointment(lockCtx, clinicID, id)
		if err != nil {
			return fmt.Errorf("load appointment: %w", err)
		}
		if appt.Status != StatusApproved {
			return ErrInvalidStatusTransition
		}

		doctorID := s.resolveTreatingDoctor(lockCtx, appt)
		notePatientID := s.resolveNotePatient(lockCtx, appt.UserID)

		status := input.BillingStatus
		if status == "" {
			status = BillingUnpaid
		}
		if !ValidBillingStatus(status) {
			return apperrors.NewValidation("billing.status")
		}

		description := fmt.Sprintf("Billing for service on %s", appt.Date.Format("2006-01-02"))

		note := DoctorNote{
			AppointmentID: id,
			ClinicID:      clinicID,
			PatientID:     notePatientID,
			DoctorID:      doctorID,
			Content:       input.NoteContent,
		}
		presc := Prescription{
			AppointmentID: id,
			ClinicID:      clinicID,
			UserID:        appt.UserID,
			DoctorID:      doctorID,
			Name:          input.PrescriptionName,
			Details:       input.PrescriptionDetails,
		}
		bill := Billing{
			AppointmentID: id,
			ClinicID:      clinicID,
			UserID:        appt.UserID,
			Title:         input.BillingTitle,
			Amount:        input.BillingAmount,
			DueDate:       input.BillingDueDate,
			Status:        status,
			Description:   &description,
		}

		if err := s.repo.Complete(lockCtx, clinicID, id, note, presc, bill); err != nil {
			return err
		}

		appt.Status = StatusCompleted
		completed = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveTransition("complete", "rejected")
			return nil, ErrCompleteInProgress
		}
		if errors.Is(err, ErrStatusConflict) {
			s.metrics.ObserveTransition("complete", "rejected")
			return nil, ErrInvalidStatusTransition
		}
		var verr *apperrors.ValidationError
		if errors.Is(err, ErrInvalidStatusTransition) || errors.As(err, &verr) {
			s.metrics.ObserveTransition("complete", "rejected")
			return nil, err
		}
		s.metrics.ObserveTransition("complete", "error")
		return nil, err
	}

	s.metrics.ObserveTransition("complete", "ok")
	s.logEvent(ctx, id, EventAppointmentCompleted, map[string]any{})
	s.publish(ctx, completed)
	return completed, nil
}

func validateCompletion(input CompletionInput) []string {
	var missing []string
	if input.PrescriptionName == "" {
		missing = append(missing, "prescription.name")
	}
	if input.PrescriptionDetails == "" {
		missing = append(missing, "prescription.details")
	}
	if input.NoteContent == "" {
		missing = append(missing, "note.content")
	}
	if input.BillingTitle == "" {
		missing = append(missing, "billing.title")
	}
	if input.BillingAmount <= 0 {
		missing = append(missing, "billing.amount")
	}
	if input.BillingDueDate == nil {
		missing = append(missing, "billing.due_date")
	}
	return missing
}

// resolveTreatingDoctor prefers the id already stored on the appointment and
// falls back to the legacy clinic-scoped name lookup. A nil result is
// allowed: legacy rows may carry a label no doctor record matches.
func (s *Service) resolveTreatingDoctor(ctx context.Context, appt *Appointment) *uuid.UUID {
	if appt.DoctorID != nil {
		return appt.DoctorID
	}
	if appt.DoctorName == nil || *appt.DoctorName == "" {
		return nil
	}
	id, err := s.repo.ResolveDoctorID(ctx, appt.ClinicID, *appt.DoctorName)
	if err != nil {
		if !errors.Is(err, ErrDoctorNotFound) {
			s.logger.Warn("doctor name lookup failed during complete",
				zap.String("appointment_id", appt.ID.String()), zap.Error(err))
		}
		return nil
	}
	return &id
}

// resolveNotePatient follows the patient profile's owning-user reference for
// the clinical note. When the indirection is absent the patient id itself is
// used; this is the documented fallback, not a silent bug.
func (s *Service) resolveNotePatient(ctx context.Context, patientID uuid.UUID) uuid.UUID {
	patient, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		if !errors.Is(err, ErrPatientNotFound) {
			s.logger.Warn("patient lookup failed during complete",
				zap.String("patient_id", patientID.String()), zap.Error(err))
		}
		return patientID
	}
	if patient.UserID != nil {
		return *patient.UserID
	}
	return patientID
}

// SaveDraftPrescription records a prescription ahead of completion.
func (s *Service) SaveDraftPrescription(ctx context.Context, clinicID, id uuid.UUID, name, details string) error {
	var missing []string
	if name == "" {
		missing = append(missing, "prescription.name")
	}
	if details == "" {
		missing = append(missing, "prescription.details")
	}
	if len(missing) > 0 {
		return &apperrors.ValidationError{Fields: missing}
	}

	appt, err := s.repo.GetAppointment(ctx, clinicID, id)
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != StatusApproved {
		return ErrInvalidStatusTransition
	}

	return s.repo.InsertPrescription(ctx, Prescription{
		AppointmentID: id,
		ClinicID:      clinicID,
		UserID:        appt.UserID,
		DoctorID:      s.resolveTreatingDoctor(ctx, appt),
		Name:          name,
		Details:       details,
	})
}

// SaveDraftBilling records a billing ahead of completion.
func (s *Service) SaveDraftBilling(ctx context.Context, clinicID, id uuid.UUID, title string, amount float64, dueDate *time.Time, status BillingStatus) error {
	var missing []string
	if title == "" {
		missing = append(missing, "billing.title")
	}
	if amount <= 0 {
		missing = append(missing, "billing.amount")
	}
	if len(missing) > 0 {
		return &apperrors.ValidationError{Fields: missing}
	}
	if status == "" {
		status = BillingUnpaid
	}
	if !ValidBillingStatus(status) {
		return apperrors.NewValidation("billing.status")
	}

	appt, err := s.repo.GetAppointment(ctx, clinicID, id)
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != StatusApproved {
		return ErrInvalidStatusTransition
	}

	description := fmt.Sprintf("Billing for service on %s", appt.Date.Format("2006-01-02"))
	return s.repo.InsertBilling(ctx, Billing{
		AppointmentID: id,
		ClinicID:      clinicID,
		UserID:        appt.UserID,
		Title:         title,
		Amount:        amount,
		DueDate:       dueDate,
		Status:        status,
		Description:   &description,
	})
}

// UpdateBilling patches the billing row owned by the appointment. A missing
// billing row is a successful no-op (the admin may not have saved one yet);
// more than one row is an error rather than undefined behavior.
func (s *Service) UpdateBilling(ctx context.Context, clinicID, id uuid.UUID, patch BillingPatch) error {
	if patch.Empty() {
		return nil
	}
	if patch.Status != nil && !ValidBillingStatus(*patch.Status) {
		return apperrors.NewValidation("billing.status")
	}

	bill, err := s.repo.GetBillingForAppointment(ctx, clinicID, id)
	if err != nil {
		if errors.Is(err, ErrBillingNotFound) {
			return nil
		}
		return err
	}

	return s.repo.PatchBilling(ctx, bill.ID, patch)
}

// Get retrieves a fully hydrated appointment.
func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*Detail, error) {
	detail, err := s.repo.GetDetail(ctx, clinicID, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return detail, nil
}

// List retrieves filtered appointments for the clinic.
func (s *Service) List(ctx context.Context, clinicID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	appts, err := s.repo.List(ctx, clinicID, filter)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("marshal event payload failed", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID
	ev := Event{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("insert appointment event failed",
			zap.String("event_type", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, appt *Appointment) {
	if s.feed == nil || appt == nil {
		return
	}
	ev := notify.ChangeEvent{
		ClinicID:      appt.ClinicID,
		AppointmentID: appt.ID,
		Status:        string(appt.Status),
		OccurredAt:    time.Now(),
	}
	if err := s.feed.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish change event failed",
			zap.String("appointment_id", appt.ID.String()), zap.Error(err))
	}
}
