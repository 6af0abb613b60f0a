package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"citas/backend/internal/domain"
)

// AppointmentPatch carries a partial update; nil fields are left untouched.
type AppointmentPatch struct {
	Name     *string
	Email    *string
	Datetime *time.Time
}

func (p AppointmentPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Datetime == nil
}

type AppointmentRepository interface {
	List(ctx context.Context) ([]domain.Appointment, error)
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	Update(ctx context.Context, appointmentID uuid.UUID, patch AppointmentPatch) (domain.Appointment, error)
	Delete(ctx context.Context, appointmentID uuid.UUID) error
}
