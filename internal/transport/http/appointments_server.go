package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"citas/backend/internal/domain"
	"citas/backend/internal/service/appointments"
	"citas/backend/internal/store"
)

const (
	msgCreated      = "created"
	msgSlotTaken    = "time slot already taken"
	msgCreateFailed = "operation failed"
	msgUpdateFailed = "could not update, check the data provided"
	msgDeleteFailed = "could not complete, try again"
)

type AppointmentsServer struct {
	svc appointmentsService
	log *slog.Logger
}

type appointmentsService interface {
	List(ctx context.Context, day string) ([]domain.Appointment, error)
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	Update(ctx context.Context, appointmentID uuid.UUID, in appointments.UpdateInput) (domain.Appointment, error)
	Delete(ctx context.Context, appointmentID uuid.UUID) error
}

func NewAppointmentsServer(svc appointmentsService, log *slog.Logger) *AppointmentsServer {
	if log == nil {
		log = slog.Default()
	}
	return &AppointmentsServer{
		svc: svc,
		log: log.With(slog.String("component", "http.appointments")),
	}
}

// Register mounts the appointment routes on r. The paths and payloads are a
// fixed compatibility contract with the system this service replaces: every
// failure is a 400 with a {"message": ...} body, never a 5xx.
func (s *AppointmentsServer) Register(r chi.Router) {
	r.Route("/api/appointments", func(r chi.Router) {
		r.Get("/", s.List)
		r.Post("/", s.Create)
		r.Put("/{id}", s.Update)
		r.Delete("/{id}", s.Delete)
	})
}

type appointmentJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Datetime  string `json:"datetime"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type createRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Datetime string `json:"datetime"`
}

type updateRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Datetime *string `json:"datetime"`
}

func (s *AppointmentsServer) List(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "List"))

	day := r.URL.Query().Get("date")

	appts, err := s.svc.List(r.Context(), day)
	if err != nil {
		log.Error("appointments list failed", slog.Any("err", err), slog.String("date", day))
		writeMessage(w, http.StatusBadRequest, msgCreateFailed)
		return
	}

	out := make([]appointmentJSON, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentJSON(a))
	}

	log.Debug("appointments listed", slog.Int("count", len(out)), slog.String("date", day))
	writeJSON(w, http.StatusOK, out)
}

func (s *AppointmentsServer) Create(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "Create"))

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "malformed_body"))
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var at time.Time
	if req.Datetime != "" {
		parsed, err := parseISOTimestamp(req.Datetime)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "bad_datetime"), slog.String("datetime", req.Datetime))
			writeMessage(w, http.StatusBadRequest, "datetime must be an ISO-8601 timestamp")
			return
		}
		at = parsed
	}

	appt, err := s.svc.Create(r.Context(), appointments.CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Datetime: at,
	})
	if err != nil {
		var vErr *appointments.ValidationError
		switch {
		case errors.As(err, &vErr):
			log.Warn("booking rejected", slog.Any("err", err), slog.String("email", req.Email))
			writeMessage(w, http.StatusBadRequest, vErr.Error())
		case errors.Is(err, store.ErrConflict):
			log.Info("slot conflict", slog.String("datetime", req.Datetime), slog.String("email", req.Email))
			writeMessage(w, http.StatusBadRequest, msgSlotTaken)
		default:
			log.Error("appointment create failed", slog.Any("err", err))
			writeMessage(w, http.StatusBadRequest, msgCreateFailed)
		}
		return
	}

	log.Info(
		"appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.Time("datetime", appt.Datetime),
	)
	writeMessage(w, http.StatusOK, msgCreated)
}

func (s *AppointmentsServer) Update(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "Update"))

	rawID := chi.URLParam(r, "id")
	id, err := uuid.Parse(rawID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("id", rawID))
		writeMessage(w, http.StatusBadRequest, msgUpdateFailed)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "malformed_body"), slog.String("appointment_id", id.String()))
		writeMessage(w, http.StatusBadRequest, msgUpdateFailed)
		return
	}

	in := appointments.UpdateInput{Name: req.Name, Email: req.Email}
	if req.Datetime != nil {
		at, err := parseISOTimestamp(*req.Datetime)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "bad_datetime"), slog.String("appointment_id", id.String()))
			writeMessage(w, http.StatusBadRequest, msgUpdateFailed)
			return
		}
		in.Datetime = &at
	}

	if _, err := s.svc.Update(r.Context(), id, in); err != nil {
		// Not-found and store failures are deliberately indistinguishable
		// to the caller.
		log.Warn("appointment update failed", slog.Any("err", err), slog.String("appointment_id", id.String()))
		writeMessage(w, http.StatusBadRequest, msgUpdateFailed)
		return
	}

	log.Info("appointment updated", slog.String("appointment_id", id.String()))
	writeMessage(w, http.StatusOK, fmt.Sprintf("appointment %s updated", id))
}

func (s *AppointmentsServer) Delete(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "Delete"))

	rawID := chi.URLParam(r, "id")
	id, err := uuid.Parse(rawID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("id", rawID))
		writeMessage(w, http.StatusBadRequest, msgDeleteFailed)
		return
	}

	if err := s.svc.Delete(r.Context(), id); err != nil {
		log.Warn("appointment delete failed", slog.Any("err", err), slog.String("appointment_id", id.String()))
		writeMessage(w, http.StatusBadRequest, msgDeleteFailed)
		return
	}

	log.Info("appointment deleted", slog.String("appointment_id", id.String()))
	writeMessage(w, http.StatusOK, fmt.Sprintf("appointment %s deleted", id))
}

func toAppointmentJSON(a domain.Appointment) appointmentJSON {
	return appointmentJSON{
		ID:        a.ID.String(),
		Name:      a.Name,
		Email:     a.Email,
		Datetime:  domain.FormatISOTimestamp(a.Datetime),
		CreatedAt: domain.FormatISOTimestamp(a.CreatedAt),
		UpdatedAt: domain.FormatISOTimestamp(a.UpdatedAt),
	}
}

func parseISOTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeMessage(w http.ResponseWriter, statusCode int, msg string) {
	writeJSON(w, statusCode, map[string]string{"message": msg})
}
