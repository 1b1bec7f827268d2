package tenancy

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const clinicKey ctxKey = "clinicops.clinic_id"

// WithClinicID stores the clinic scope in context.
func WithClinicID(ctx context.Context, clinicID uuid.UUID) context.Context {
	return context.WithValue(ctx, clinicKey, clinicID)
}

// ClinicIDFromContext extracts the clinic scope if present.
func ClinicIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(clinicKey)
	if val == nil {
		return uuid.Nil, false
	}
	clinicID, ok := val.(uuid.UUID)
	return clinicID, ok && clinicID != uuid.Nil
}
