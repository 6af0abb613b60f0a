package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"citas/backend/internal/domain"
	"citas/backend/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

func (r *AppointmentRepo) List(ctx context.Context) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("datetime ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:        appt.ID,
		Name:      appt.Name,
		Email:     appt.Email,
		Datetime:  appt.Datetime,
		CreatedAt: appt.CreatedAt,
		UpdatedAt: appt.UpdatedAt,
	}

	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Appointment{}, store.ErrConflict
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r *AppointmentRepo) Update(ctx context.Context, appointmentID uuid.UUID, patch store.AppointmentPatch) (domain.Appointment, error) {
	var m domain.Appointment

	q := r.db.NewUpdate().
		Model(&m).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", appointmentID).
		Returning("*")

	if patch.Name != nil {
		q = q.Set("name = ?", *patch.Name)
	}
	if patch.Email != nil {
		q = q.Set("email = ?", *patch.Email)
	}
	if patch.Datetime != nil {
		q = q.Set("datetime = ?", patch.Datetime.UTC())
	}

	res, err := q.Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Appointment{}, store.ErrConflict
		}
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}

func (r *AppointmentRepo) Delete(ctx context.Context, appointmentID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", appointmentID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a postgres unique-constraint
// violation (SQLSTATE 23505). The only unique constraint on appointments is
// the datetime slot, so this is the concurrent double-booking signal.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
