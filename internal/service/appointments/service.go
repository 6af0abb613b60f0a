package appointments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"citas/backend/internal/domain"
	"citas/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type Service struct {
	repo store.AppointmentRepository
}

func NewService(repo store.AppointmentRepository) *Service {
	return &Service{repo: repo}
}

type CreateInput struct {
	Name     string
	Email    string
	Datetime time.Time
}

// Create books a new slot. Required fields are checked before the store is
// touched; the booking rules run against the candidate's same-day set only.
// The read-validate-write sequence is racy across concurrent requests; the
// store's uniqueness constraint on datetime (surfaced as store.ErrConflict)
// is the final arbiter for the exact instant.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Appointment{}, validationError("name is required")
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return domain.Appointment{}, validationError("email is required")
	}
	if in.Datetime.IsZero() {
		return domain.Appointment{}, validationError("datetime is required")
	}

	at := in.Datetime.UTC()

	all, err := s.repo.List(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}

	day := at.Format("2006-01-02")
	sameDay := domain.FilterByDay(day, all)

	decision := domain.ValidateBooking(at, domain.BookingIdentity{Name: name, Email: email}, sameDay)
	if !decision.Valid {
		return domain.Appointment{}, validationError(decision.Reason)
	}

	return s.repo.Create(ctx, domain.Appointment{
		Name:     name,
		Email:    email,
		Datetime: at,
	})
}

func (s *Service) List(ctx context.Context, day string) ([]domain.Appointment, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	day = strings.TrimSpace(day)
	if day == "" {
		return all, nil
	}
	return domain.FilterByDay(day, all), nil
}

type UpdateInput struct {
	Name     *string
	Email    *string
	Datetime *time.Time
}

func (s *Service) Update(ctx context.Context, appointmentID uuid.UUID, in UpdateInput) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}

	var patch store.AppointmentPatch
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return domain.Appointment{}, validationError("name must not be empty")
		}
		patch.Name = &name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return domain.Appointment{}, validationError("email must not be empty")
		}
		patch.Email = &email
	}
	if in.Datetime != nil {
		at := in.Datetime.UTC()
		patch.Datetime = &at
	}
	if patch.IsEmpty() {
		return domain.Appointment{}, validationError("at least one field is required")
	}

	return s.repo.Update(ctx, appointmentID, patch)
}

func (s *Service) Delete(ctx context.Context, appointmentID uuid.UUID) error {
	if appointmentID == uuid.Nil {
		return validationError("appointment_id is required")
	}
	return s.repo.Delete(ctx, appointmentID)
}
