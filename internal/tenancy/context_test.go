package tenancy

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWithClinicIDAndClinicIDFromContext(t *testing.T) {
	clinicID := uuid.New()
	ctx := WithClinicID(context.Background(), clinicID)

	got, ok := ClinicIDFromContext(ctx)
	if !ok {
		t.Fatal("expected clinic id to be present")
	}
	if got != clinicID {
		t.Fatalf("expected %s, got %s", clinicID, got)
	}
}

func TestClinicIDFromContext_Missing(t *testing.T) {
	if _, ok := ClinicIDFromContext(context.Background()); ok {
		t.Fatal("expected missing clinic id to return false")
	}

	ctx := WithClinicID(context.Background(), uuid.Nil)
	if _, ok := ClinicIDFromContext(ctx); ok {
		t.Fatal("expected nil clinic id to return false")
	}
}
