package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"haseela/internal/core"
	"haseela/internal/identity"
	"haseela/internal/report"
	"haseela/internal/services"
)

// Request bodies are small JSON documents; cap reads defensively.
const maxBodyBytes = 1 << 20

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Phase  string `json:"phase"`
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	s.handleAuth(w, r, s.coordinator.SignUp, http.StatusCreated)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	s.handleAuth(w, r, s.coordinator.SignIn, http.StatusOK)
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request, auth func(ctx context.Context, email, password string) (identity.Session, error), okStatus int) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := auth(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, okStatus, sessionResponse{
		Phase:  string(s.coordinator.Phase()),
		UserID: session.UserID,
		Email:  session.Email,
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.SignOut(r.Context()); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{Phase: string(s.coordinator.Phase())}
	if session, ok := s.coordinator.Session(); ok {
		resp.UserID = session.UserID
		resp.Email = session.Email
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.coordinator.State()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleAddClient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.apply(w, r, core.AddClient(req.Name), http.StatusCreated)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, core.DeleteClient(r.PathValue("id")), http.StatusOK)
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
		Price string `json:"price"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Price)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid price")
		return
	}
	mutation := core.AddTask(r.PathValue("id"), req.Title, core.Money{Cents: cents}, time.Now().UTC())
	s.apply(w, r, mutation, http.StatusCreated)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, core.DeleteTask(r.PathValue("id"), r.PathValue("taskID")), http.StatusOK)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	mutation := core.ToggleTask(r.PathValue("id"), r.PathValue("taskID"), time.Now().UTC())
	s.apply(w, r, mutation, http.StatusOK)
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string `json:"target"`
		Month  int    `json:"month"`
		Year   int    `json:"year"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Target)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid target amount")
		return
	}
	mutation := core.SetGoal(core.Money{Cents: cents}, core.Period{Month: req.Month, Year: req.Year})
	s.apply(w, r, mutation, http.StatusOK)
}

func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.apply(w, r, core.SetCurrency(req.Symbol), http.StatusOK)
}

// apply runs a mutation through the coordinator and responds with the
// updated state.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, m core.Mutation, okStatus int) {
	state, err := s.coordinator.Apply(r.Context(), m)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, okStatus, state)
}

type dashboardResponse struct {
	Month     int                     `json:"month"`
	Year      int                     `json:"year"`
	Earned    core.Money              `json:"earned_cents"`
	Goal      *core.MonthlyGoal       `json:"goal,omitempty"`
	Progress  int                     `json:"progress"`
	Ranking   []report.ClientEarnings `json:"ranking"`
	TopClient *report.Share           `json:"top_client,omitempty"`
	Currency  string                  `json:"currency"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	state, err := s.coordinator.State()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	now := time.Now().UTC()
	period := core.PeriodOf(now)
	resp := dashboardResponse{
		Month:    period.Month,
		Year:     period.Year,
		Earned:   report.MonthlyEarnings(state, period.Month, period.Year),
		Progress: report.GoalProgress(state, period.Month, period.Year),
		Ranking:  report.ClientEarningsRanking(state),
		Currency: state.Currency,
	}
	if goal, ok := report.CurrentGoal(state, now); ok {
		resp.Goal = &goal
	}
	if top, ok := report.TopClient(state); ok {
		resp.TopClient = &top
	}
	writeJSON(w, http.StatusOK, resp)
}

type reportsResponse struct {
	Lifetime       core.Money             `json:"lifetime_cents"`
	AverageMonthly core.Money             `json:"average_monthly_cents"`
	TrailingMonths []report.MonthEarnings `json:"trailing_months"`
	Distribution   []report.Share         `json:"distribution"`
	TopClient      *report.Share          `json:"top_client,omitempty"`
	Currency       string                 `json:"currency"`
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	state, err := s.coordinator.State()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := reportsResponse{
		Lifetime:       report.LifetimeTotal(state),
		AverageMonthly: report.AverageMonthly(state),
		TrailingMonths: report.TrailingMonths(state, time.Now().UTC(), 6),
		Distribution:   report.Distribution(state),
		Currency:       state.Currency,
	}
	if top, ok := report.TopClient(state); ok {
		resp.TopClient = &top
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	state, err := s.coordinator.State()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.History(state))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, name, err := s.coordinator.Export(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	doc, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	state, err := s.coordinator.Import(r.Context(), doc)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
}

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotReady):
		writeError(w, http.StatusUnauthorized, "sign in first")
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, identity.ErrUserExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrWeakPassword):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrClientNotFound),
		errors.Is(err, core.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidPeriod),
		errors.Is(err, core.ErrMalformedDocument):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
