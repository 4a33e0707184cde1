package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/opsdesk/internal/store"
)

// Directory is the relational backend behind the dashboard pages.
type Directory interface {
	ListUsers(ctx context.Context) ([]store.User, error)
	CreateUser(ctx context.Context, u store.User) (store.User, error)
	UpdateUser(ctx context.Context, u store.User) (store.User, error)
	DeleteUser(ctx context.Context, id int64) error

	ListLeaves(ctx context.Context) ([]store.Leave, error)
	CreateLeave(ctx context.Context, l store.Leave) (store.Leave, error)
	UpdateLeave(ctx context.Context, l store.Leave) (store.Leave, error)
	DeleteLeave(ctx context.Context, id int64) error

	ListHolidays(ctx context.Context) ([]store.Holiday, error)
	CreateHoliday(ctx context.Context, h store.Holiday) (store.Holiday, error)
}

type idRequest struct {
	ID int64 `json:"id"`
}

func (s *Server) directoryRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", s.listUsers)
		r.Post("/", s.createUser)
		r.Put("/", s.updateUser)
		r.Delete("/", s.deleteUser)
	})
	r.Route("/hr-leaves", func(r chi.Router) {
		r.Get("/", s.listLeaves)
		r.Post("/", s.createLeave)
		r.Put("/", s.updateLeave)
		r.Delete("/", s.deleteLeave)
	})
	r.Route("/hr-holidays", func(r chi.Router) {
		r.Get("/", s.listHolidays)
		r.Post("/", s.createHoliday)
	})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// writeStoreError maps a backend error to a status code.
func (s *Server) writeStoreError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error("directory operation failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Directory.ListUsers(r.Context())
	if err != nil {
		s.writeStoreError(w, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var u store.User
	if err := decodeJSON(r, &u); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	created, err := s.deps.Directory.CreateUser(r.Context(), store.User{Name: u.Name, Email: u.Email, Role: u.Role})
	if err != nil {
		s.writeStoreError(w, "create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var u store.User
	if err := decodeJSON(r, &u); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if u.ID == 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	updated, err := s.deps.Directory.UpdateUser(r.Context(), u)
	if err != nil {
		s.writeStoreError(w, "update user", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := decodeJSON(r, &req); err != nil || req.ID == 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := s.deps.Directory.DeleteUser(r.Context(), req.ID); err != nil {
		s.writeStoreError(w, "delete user", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": req.ID})
}

func (s *Server) listLeaves(w http.ResponseWriter, r *http.Request) {
	leaves, err := s.deps.Directory.ListLeaves(r.Context())
	if err != nil {
		s.writeStoreError(w, "list leaves", err)
		return
	}
	writeJSON(w, http.StatusOK, leaves)
}

// createLeave ignores any status in the body; new requests start pending.
func (s *Server) createLeave(w http.ResponseWriter, r *http.Request) {
	var l store.Leave
	if err := decodeJSON(r, &l); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	l.ID = 0
	l.Status = store.LeaveStatusPending
	created, err := s.deps.Directory.CreateLeave(r.Context(), l)
	if err != nil {
		s.writeStoreError(w, "create leave", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateLeave(w http.ResponseWriter, r *http.Request) {
	var l store.Leave
	if err := decodeJSON(r, &l); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if l.ID == 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	updated, err := s.deps.Directory.UpdateLeave(r.Context(), l)
	if err != nil {
		s.writeStoreError(w, "update leave", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteLeave(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := decodeJSON(r, &req); err != nil || req.ID == 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := s.deps.Directory.DeleteLeave(r.Context(), req.ID); err != nil {
		s.writeStoreError(w, "delete leave", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": req.ID})
}

func (s *Server) listHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := s.deps.Directory.ListHolidays(r.Context())
	if err != nil {
		s.writeStoreError(w, "list holidays", err)
		return
	}
	writeJSON(w, http.StatusOK, holidays)
}

func (s *Server) createHoliday(w http.ResponseWriter, r *http.Request) {
	var h store.Holiday
	if err := decodeJSON(r, &h); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if h.Name == "" || h.Date == "" {
		writeError(w, http.StatusBadRequest, "name and date are required")
		return
	}
	created, err := s.deps.Directory.CreateHoliday(r.Context(), store.Holiday{Name: h.Name, Date: h.Date})
	if err != nil {
		s.writeStoreError(w, "create holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
