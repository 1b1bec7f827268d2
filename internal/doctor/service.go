package doctor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicops/clinic-backoffice/internal/apperrors"
	"github.com/clinicops/clinic-backoffice/internal/observability/metrics"
)

// Service manages doctor records and keeps appointment references
// consistent when a doctor is renamed or deleted. The id-based reference is
// primary; rewriting the denormalized doctor_name column is a compatibility
// shim for legacy rows.
type Service struct {
	repo    Repository
	metrics *metrics.LifecycleMetrics
	logger  *zap.Logger
}

func NewService(repo Repository, m *metrics.LifecycleMetrics, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		metrics: m,
		logger:  logger,
	}
}

func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*Doctor, error) {
	return s.repo.Get(ctx, clinicID, id)
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID) ([]Doctor, error) {
	return s.repo.List(ctx, clinicID)
}

func (s *Service) ListSpecializations(ctx context.Context, clinicID uuid.UUID) ([]Specialization, error) {
	return s.repo.ListSpecializations(ctx, clinicID)
}

// Create adds a doctor. Names are unique per clinic: they are what legacy
// appointment rows reference.
func (s *Service) Create(ctx context.Context, clinicID uuid.UUID, name string, specializationID *uuid.UUID) (*Doctor, error) {
	if name == "" {
		return nil, apperrors.NewValidation("name")
	}

	if _, err := s.repo.GetByName(ctx, clinicID, name); err == nil {
		return nil, ErrNameTaken
	} else if !errors.Is(err, ErrDoctorNotFound) {
		return nil, fmt.Errorf("check doctor name: %w", err)
	}

	return s.repo.Create(ctx, Doctor{
		ClinicID:         clinicID,
		Name:             name,
		SpecializationID: specializationID,
	})
}

// Update renames a doctor and/or changes their specialization. A rename
// cascades through legacy name references; the doctor update itself is kept
// even when the cascade partially fails, and the report tells the caller
// exactly which rewrites went through.
func (s *Service) Update(ctx context.Context, clinicID, id uuid.UUID, name string, specializationID *uuid.UUID) (*Doctor, *CascadeReport, error) {
	if name == "" {
		return nil, nil, apperrors.NewValidation("name")
	}

	current, err := s.repo.Get(ctx, clinicID, id)
	if err != nil {
		return nil, nil, err
	}

	if name != current.Name {
		if _, err := s.repo.GetByName(ctx, clinicID, name); err == nil {
			return nil, nil, ErrNameTaken
		} else if !errors.Is(err, ErrDoctorNotFound) {
			return nil, nil, fmt.Errorf("check doctor name: %w", err)
		}
	}

	updated, err := s.repo.Update(ctx, clinicID, id, name, specializationID)
	if err != nil {
		return nil, nil, err
	}

	var report *CascadeReport
	if name != current.Name {
		report = s.PropagateDoctorChange(ctx, clinicID, current.Name, name)
		if report.Failed() {
			s.logger.Warn("doctor rename cascade partially failed",
				zap.String("doctor_id", id.String()),
				zap.String("old_name", current.Name),
				zap.String("new_name", name))
		}
	}

	return updated, report, nil
}

// Delete removes a doctor after reassigning every referencing appointment to
// the "Unknown" sentinel. If any reference rewrite fails the deletion is
// aborted: a dangling appointment with no fallback label is worse than a
// doctor row that refuses to die.
func (s *Service) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	current, err := s.repo.Get(ctx, clinicID, id)
	if err != nil {
		return err
	}

	report := s.propagate(ctx, clinicID, current.Name, UnknownDoctor, &id)
	if report.Failed() {
		s.metrics.ObserveCascade("delete", "error")
		return &apperrors.ReferenceIntegrityError{
			Updated:  report.Updated,
			Failures: report.Failures,
		}
	}
	s.metrics.ObserveCascade("delete", "ok")

	return s.repo.Delete(ctx, clinicID, id)
}

// PropagateDoctorChange rewrites legacy name references from oldName to
// newName. An empty newName means the doctor is being removed and rewrites
// to the "Unknown" sentinel instead.
func (s *Service) PropagateDoctorChange(ctx context.Context, clinicID uuid.UUID, oldName, newName string) *CascadeReport {
	if newName == "" {
		newName = UnknownDoctor
	}
	report := s.propagate(ctx, clinicID, oldName, newName, nil)
	if report.Failed() {
		s.metrics.ObserveCascade("rename", "error")
	} else {
		s.metrics.ObserveCascade("rename", "ok")
	}
	return report
}

func (s *Service) propagate(ctx context.Context, clinicID uuid.UUID, oldName, newName string, clearID *uuid.UUID) *CascadeReport {
	report := &CascadeReport{Failures: make(map[string]error)}

	if n, err := s.repo.RewriteAppointmentDoctorName(ctx, clinicID, oldName, newName); err != nil {
		report.Failures["appointments.doctor_name"] = err
	} else {
		report.Updated = append(report.Updated, "appointments.doctor_name")
		s.logger.Info("rewrote appointment doctor names",
			zap.String("old_name", oldName),
			zap.String("new_name", newName),
			zap.Int64("rows", n))
	}

	if clearID != nil {
		if n, err := s.repo.ClearAppointmentDoctorID(ctx, clinicID, *clearID); err != nil {
			report.Failures["appointments.doctor_id"] = err
		} else {
			report.Updated = append(report.Updated, "appointments.doctor_id")
			s.logger.Info("cleared appointment doctor ids",
				zap.String("doctor_id", clearID.String()),
				zap.Int64("rows", n))
		}
	}

	// Prescriptions and notes keep their doctor_id on delete: they are
	// historical clinical records and the FK is nullable history, not a
	// live reference.

	return report
}
