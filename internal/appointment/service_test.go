package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicops/clinic-backoffice/internal/apperrors"
	"github.com/clinicops/clinic-backoffice/internal/notify"
	"github.com/clinicops/clinic-backoffice/internal/redisclient"
)

// fakeRepo is an in-memory Repository for lifecycle tests.
type fakeRepo struct {
	appointments  map[uuid.UUID]*Appointment
	patients      map[uuid.UUID]*Patient
	doctorsByName map[string]uuid.UUID
	doctorNames   map[uuid.UUID]string

	prescriptions []Prescription
	billings      []Billing
	notes         []DoctorNote
	events        []Event

	completeErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		appointments:  make(map[uuid.UUID]*Appointment),
		patients:      make(map[uuid.UUID]*Patient),
		doctorsByName: make(map[string]uuid.UUID),
		doctorNames:   make(map[uuid.UUID]string),
	}
}

func (f *fakeRepo) GetAppointment(_ context.Context, clinicID, id uuid.UUID) (*Appointment, error) {
	appt, ok := f.appointments[id]
	if !ok || appt.ClinicID != clinicID {
		return nil, ErrAppointmentNotFound
	}
	cp := *appt
	return &cp, nil
}

func (f *fakeRepo) GetDetail(ctx context.Context, clinicID, id uuid.UUID) (*Detail, error) {
	appt, err := f.GetAppointment(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Appointment: *appt}, nil
}

func (f *fakeRepo) List(_ context.Context, clinicID uuid.UUID, _ ListFilter) ([]Appointment, error) {
	var out []Appointment
	for _, a := range f.appointments {
		if a.ClinicID == clinicID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, clinicID, id uuid.UUID, from, to Status) (*Appointment, error) {
	appt, ok := f.appointments[id]
	if !ok || appt.ClinicID != clinicID {
		return nil, ErrAppointmentNotFound
	}
	if appt.Status != from {
		return nil, ErrStatusConflict
	}
	appt.Status = to
	cp := *appt
	return &cp, nil
}

func (f *fakeRepo) SetDoctor(_ context.Context, clinicID, id, doctorID uuid.UUID, doctorName string) error {
	appt, ok := f.appointments[id]
	if !ok || appt.ClinicID != clinicID {
		return ErrAppointmentNotFound
	}
	appt.DoctorID = &doctorID
	appt.DoctorName = &doctorName
	return nil
}

func (f *fakeRepo) ResolveDoctorID(_ context.Context, _ uuid.UUID, name string) (uuid.UUID, error) {
	id, ok := f.doctorsByName[name]
	if !ok {
		return uuid.Nil, ErrDoctorNotFound
	}
	return id, nil
}

func (f *fakeRepo) GetDoctorName(_ context.Context, _, doctorID uuid.UUID) (string, error) {
	name, ok := f.doctorNames[doctorID]
	if !ok {
		return "", ErrDoctorNotFound
	}
	return name, nil
}

func (f *fakeRepo) GetPatient(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (f *fakeRepo) InsertPrescription(_ context.Context, p Prescription) error {
	f.prescriptions = append(f.prescriptions, p)
	return nil
}

func (f *fakeRepo) InsertBilling(_ context.Context, b Billing) error {
	f.billings = append(f.billings, b)
	return nil
}

func (f *fakeRepo) GetBillingForAppointment(_ context.Context, clinicID, appointmentID uuid.UUID) (*Billing, error) {
	var found []Billing
	for _, b := range f.billings {
		if b.ClinicID == clinicID && b.AppointmentID == appointmentID {
			found = append(found, b)
		}
	}
	switch len(found) {
	case 0:
		return nil, ErrBillingNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, ErrBillingAmbiguous
	}
}

func (f *fakeRepo) PatchBilling(_ context.Context, billingID uuid.UUID, patch BillingPatch) error {
	for i := range f.billings {
		if f.billings[i].ID == billingID {
			if patch.Title != nil {
				f.billings[i].Title = *patch.Title
			}
			if patch.Amount != nil {
				f.billings[i].Amount = *patch.Amount
			}
			if patch.DueDate != nil {
				f.billings[i].DueDate = patch.DueDate
			}
			if patch.Status != nil {
				f.billings[i].Status = *patch.Status
			}
			return nil
		}
	}
	return ErrBillingNotFound
}

func (f *fakeRepo) Complete(_ context.Context, clinicID, id uuid.UUID, note DoctorNote, presc Prescription, bill Billing) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	appt, ok := f.appointments[id]
	if !ok || appt.ClinicID != clinicID {
		return ErrAppointmentNotFound
	}
	if appt.Status != StatusApproved {
		return ErrStatusConflict
	}
	f.notes = append(f.notes, note)
	f.prescriptions = append(f.prescriptions, presc)
	f.billings = append(f.billings, bill)
	appt.Status = StatusCompleted
	return nil
}

func (f *fakeRepo) InsertEvent(_ context.Context, ev Event) error {
	f.events = append(f.events, ev)
	return nil
}

// busyLocker always reports the lock as held elsewhere.
type busyLocker struct{}

func (busyLocker) WithAppointmentLock(context.Context, uuid.UUID, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

type fixedChecker struct{ ok bool }

func (c fixedChecker) Bookable(context.Context, uuid.UUID, time.Time, string) (bool, error) {
	return c.ok, nil
}

func newTestService(repo Repository, checker AvailabilityChecker) *Service {
	return NewService(repo, redisclient.NoopLocker{}, checker, notify.NoopFeed{}, nil, zap.NewNop())
}

func pendingAppointment(repo *fakeRepo, clinicID uuid.UUID) *Appointment {
	appt := &Appointment{
		ID:       uuid.New(),
		ClinicID: clinicID,
		UserID:   uuid.New(),
		Date:     time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
		Time:     "10:00",
		Reason:   "Routine checkup",
		Status:   StatusPending,
	}
	repo.appointments[appt.ID] = appt
	return appt
}

func validCompletion() CompletionInput {
	due := time.Date(2026, 9, 16, 0, 0, 0, 0, time.UTC)
	return CompletionInput{
		PrescriptionName:    "Amoxicillin",
		PrescriptionDetails: "500mg three times daily for 7 days",
		NoteContent:         "Patient presented with mild infection.",
		BillingTitle:        "Consultation",
		BillingAmount:       150,
		BillingDueDate:      &due,
	}
}

func TestApproveByDoctorName(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	doctorID := uuid.New()
	repo.doctorsByName["Dr. Chen"] = doctorID
	repo.doctorNames[doctorID] = "Dr. Chen"
	appt := pendingAppointment(repo, clinicID)

	svc := newTestService(repo, nil)
	updated, err := svc.Approve(context.Background(), clinicID, appt.ID, DoctorRef{Name: "Dr. Chen"})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if updated.Status != StatusApproved {
		t.Errorf("status = %s, want approved", updated.Status)
	}
	if updated.DoctorID == nil || *updated.DoctorID != doctorID {
		t.Errorf("doctor id not resolved from name")
	}
	if len(repo.events) != 1 || repo.events[0].EventType != EventAppointmentApproved {
		t.Errorf("expected one approved event, got %+v", repo.events)
	}
}

func TestApproveByDoctorID(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	doctorID := uuid.New()
	repo.doctorNames[doctorID] = "Dr. Chen"
	appt := pendingAppointment(repo, clinicID)

	svc := newTestService(repo, nil)
	updated, err := svc.Approve(context.Background(), clinicID, appt.ID, DoctorRef{ID: &doctorID})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if updated.DoctorName == nil || *updated.DoctorName != "Dr. Chen" {
		t.Errorf("doctor name not denormalized onto the row")
	}
}

func TestApproveRequiresDoctor(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	appt := pendingAppointment(repo, clinicID)

	svc := newTestService(repo, nil)
	_, err := svc.Approve(context.Background(), clinicID, appt.ID, DoctorRef{})

	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApproveUnknownDoctor(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	appt := pendingAppointment(repo, clinicID)

	svc := newTestService(repo, nil)
	if _, err := svc.Approve(context.Background(), clinicID, appt.ID, DoctorRef{Name: "Dr. Nobody"}); !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestApproveBlockedByAvailability(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	doctorID := uuid.New()
	repo.doctorNames[doctorID] = "Dr. Chen"
	appt := pendingAppointment(repo, clinicID)

	svc := newTestService(repo, fixedChecker{ok: false})
	if _, err := svc.Approve(context.Background(), clinicID, appt.ID, DoctorRef{ID: &doctorID}); !errors.Is(err, ErrDoctorUnavailable) {
		t.Fatalf("expected ErrDoctorUnavailable, got %v", err)
	}
	if repo.appointments[appt.ID].Status != StatusPending {
		t.Error("appointment should stay pending when doctor is unavailable")
	}
}

func TestDeclineThenApproveRejected(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	doctorID := uuid.New()
	repo.doctorNames[doctorID] = "Dr. Chen"
	appt := pendingAppointment(repo, clinicID)

	svc := newTestService(repo, nil)
	if _, err := svc.Decline(context.Background(), clinicID, appt.ID); err != nil {
		t.Fatalf("decline failed: %v", err)
	}

	if _, err := svc.Approve(context.Background(), clinicID, appt.ID, DoctorRef{ID: &doctorID}); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("declined appointment must not be approvable, got %v", err)
	}
	if repo.appointments[appt.ID].Status != StatusDeclined {
		t.Error("declined is terminal")
	}
}

func TestCompleteHappyPath(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	doctorID := uuid.New()
	repo.doctorNames[doctorID] = "Dr. Chen"
	appt := pendingAppointment(repo, clinicID)
	appt.Status = StatusApproved
	appt.DoctorID = &doctorID

	svc := newTestService(repo, nil)
	updated, err := svc.Complete(context.Background(), clinicID, appt.ID, validCompletion())
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", updated.Status)
	}

	if len(repo.notes) != 1 || len(repo.prescriptions) != 1 || len(repo.billings) != 1 {
		t.Fatalf("expected one of each side-effect record, got %d notes %d prescriptions %d billings",
			len(repo.notes), len(repo.prescriptions), len(repo.billings))
	}
	if repo.billings[0].Status != BillingUnpaid {
		t.Errorf("billing status defaults to unpaid, got %s", repo.billings[0].Status)
	}
	if repo.billings[0].Description == nil || *repo.billings[0].Description != "Billing for service on 2026-09-02" {
		t.Errorf("billing description wrong: %v", repo.billings[0].Description)
	}
	if repo.notes[0].DoctorID == nil || *repo.notes[0].DoctorID != doctorID {
		t.Error("note should carry the treating doctor id")
	}
}

func TestCompleteValidationLeavesAppointmentApproved(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	appt := pendingAppointment(repo, clinicID)
	appt.Status = StatusApproved

	input := validCompletion()
	input.NoteContent = ""
	input.BillingAmount = 0

	svc := newTestService(repo, nil)
	_, err := svc.Complete(context.Background(), clinicID, appt.ID, input)

	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Errorf("expected 2 missing fields, got %v", verr.Fields)
	}

	if repo.appointments[appt.ID].Status != StatusApproved {
		t.Error("failed completion must leave the appointment approved")
	}
	if len(repo.notes)+len(repo.prescriptions)+len(repo.billings) != 0 {
		t.Error("failed completion must write no side-effect records")
	}
}

func TestCompleteRequiresApproved(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	appt := pendingAppointment(repo, clinicID)

	svc := newTestService(repo, nil)
	if _, err := svc.Complete(context.Background(), clinicID, appt.ID, validCompletion()); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("pending appointment must not be completable, got %v", err)
	}
}

func TestCompleteLockedElsewhere(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	appt := pendingAppointment(repo, clinicID)
	appt.Status = StatusApproved

	svc := NewService(repo, busyLocker{}, nil, notify.NoopFeed{}, nil, zap.NewNop())
	if _, err := svc.Complete(context.Background(), clinicID, appt.ID, validCompletion()); !errors.Is(err, ErrCompleteInProgress) {
		t.Fatalf("expected ErrCompleteInProgress, got %v", err)
	}
}

func TestCompleteNotePatientFollowsOwningUser(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	appt := pendingAppointment(repo, clinicID)
	appt.Status = StatusApproved

	owner := uuid.New()
	repo.patients[appt.UserID] = &Patient{ID: appt.UserID, UserID: &owner, FullName: "Dependent"}

	svc := newTestService(repo, nil)
	if _, err := svc.Complete(context.Background(), clinicID, appt.ID, validCompletion()); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if repo.notes[0].PatientID != owner {
		t.Errorf("note patient = %s, want owning user %s", repo.notes[0].PatientID, owner)
	}
}

func TestSaveDraftBillingRequiresApproved(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	appt := pendingAppointment(repo, clinicID)

	svc := newTestService(repo, nil)
	err := svc.SaveDraftBilling(context.Background(), clinicID, appt.ID, "Consultation", 100, nil, "")
	if !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("draft billing on pending appointment must be rejected, got %v", err)
	}
}

func TestUpdateBillingNoRowIsNoop(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	appt := pendingAppointment(repo, clinicID)

	amount := 200.0
	svc := newTestService(repo, nil)
	if err := svc.UpdateBilling(context.Background(), clinicID, appt.ID, BillingPatch{Amount: &amount}); err != nil {
		t.Fatalf("patching a missing billing row should be a no-op, got %v", err)
	}
}

func TestUpdateBillingEmptyPatchIsNoop(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	appt := pendingAppointment(repo, clinicID)

	svc := newTestService(repo, nil)
	if err := svc.UpdateBilling(context.Background(), clinicID, appt.ID, BillingPatch{}); err != nil {
		t.Fatalf("empty patch should succeed without touching storage, got %v", err)
	}
}

func TestUpdateBillingPatchesExistingRow(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	appt := pendingAppointment(repo, clinicID)
	repo.billings = append(repo.billings, Billing{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		ClinicID:      clinicID,
		Title:         "Consultation",
		Amount:        100,
		Status:        BillingUnpaid,
	})

	paid := BillingPaid
	svc := newTestService(repo, nil)
	if err := svc.UpdateBilling(context.Background(), clinicID, appt.ID, BillingPatch{Status: &paid}); err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if repo.billings[0].Status != BillingPaid {
		t.Errorf("status = %s, want paid", repo.billings[0].Status)
	}
	if repo.billings[0].Amount != 100 {
		t.Errorf("amount must be untouched, got %v", repo.billings[0].Amount)
	}
}

func TestUpdateBillingAmbiguousPropagates(t *testing.T) {
	repo := newFakeRepo()
	clinicID := uuid.New()
	appt := pendingAppointment(repo, clinicID)
	for i := 0; i < 2; i++ {
		repo.billings = append(repo.billings, Billing{
			ID:            uuid.New(),
			AppointmentID: appt.ID,
			ClinicID:      clinicID,
		})
	}

	paid := BillingPaid
	svc := newTestService(repo, nil)
	if err := svc.UpdateBilling(context.Background(), clinicID, appt.ID, BillingPatch{Status: &paid}); !errors.Is(err, ErrBillingAmbiguous) {
		t.Fatalf("expected ErrBillingAmbiguous, got %v", err)
	}
}
