package notify

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestMemSuppressorIsPerClinic(t *testing.T) {
	var s MemSuppressor
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	if s.Suppressed(ctx, a) {
		t.Fatal("fresh suppressor should not suppress")
	}

	if err := s.Set(ctx, a, true); err != nil {
		t.Fatal(err)
	}
	if !s.Suppressed(ctx, a) {
		t.Error("clinic a should be suppressed")
	}
	if s.Suppressed(ctx, b) {
		t.Error("clinic b must be unaffected")
	}

	if err := s.Set(ctx, a, false); err != nil {
		t.Fatal(err)
	}
	if s.Suppressed(ctx, a) {
		t.Error("unset should clear the freeze")
	}
}
