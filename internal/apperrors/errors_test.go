package apperrors

import (
	"errors"
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidation("billing.amount", "note.content")
	if !strings.Contains(err.Error(), "billing.amount") || !strings.Contains(err.Error(), "note.content") {
		t.Errorf("message should name the rejected fields: %q", err.Error())
	}

	var verr *ValidationError
	if !errors.As(error(err), &verr) {
		t.Fatal("errors.As should match *ValidationError")
	}
	if len(verr.Fields) != 2 {
		t.Errorf("fields = %v, want 2 entries", verr.Fields)
	}
}

func TestReferenceIntegrityError(t *testing.T) {
	err := &ReferenceIntegrityError{
		Updated:  []string{"appointments.doctor_name"},
		Failures: map[string]error{"appointments.doctor_id": errors.New("timeout")},
	}
	msg := err.Error()
	if !strings.Contains(msg, "appointments.doctor_id") || !strings.Contains(msg, "timeout") {
		t.Errorf("message should name the failed table and cause: %q", msg)
	}
}
