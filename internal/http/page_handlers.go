package http

import (
	"fmt"
	"io"
	"net/http"

	"neuralbudget/internal/budgetpage"
	"neuralbudget/internal/log"
)

// The budgets page opens a session with the snapshot it was rendered with.
// Selector, reset, edit and delete events then run against that session,
// so the progress block never sees writes made after the page loaded.

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.userID(r)

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "could not read body").Write(w)
		return
	}
	id, err := s.sessions.Open(user, data)
	if err != nil {
		err = fmt.Errorf("%w: malformed budgets snapshot", errBadRequest)
		log.FromContext(ctx).WarnContext(ctx, "Rejected page snapshot", log.FieldUserID, user, log.FieldError, err.Error())
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	log.FromContext(ctx).DebugContext(ctx, "Page session opened", log.FieldUserID, user, log.FieldSessionID, id)
	NewResponse().Status(http.StatusCreated).JSON(map[string]string{"session": id}).Write(w)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("category")
	s.withPage(w, r, func(p *budgetpage.Page) budgetpage.View {
		v, _ := p.Select(label)
		return v
	})
}

func (s *Server) handleProgressReset(w http.ResponseWriter, r *http.Request) {
	s.withPage(w, r, func(p *budgetpage.Page) budgetpage.View {
		p.Reset()
		v, _ := p.Current()
		return v
	})
}

func (s *Server) handleProgressEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.userID(r)

	options, err := s.api.Categories(ctx, user)
	if err != nil {
		log.FromContext(ctx).LogError(ctx, "Failed to list categories", err, log.OpProgress, log.NewFields().WithUser(user))
		ErrorResponse(statusFor(err), errorMessage(err)).Write(w)
		return
	}

	category := r.URL.Query().Get("category")
	s.withPage(w, r, func(p *budgetpage.Page) budgetpage.View {
		v, _ := p.EditBudget(category, options)
		return v
	})
}

// withPage runs fn on the session named by the "session" query parameter
// and writes the resulting view.
func (s *Server) withPage(w http.ResponseWriter, r *http.Request, fn func(*budgetpage.Page) budgetpage.View) {
	ctx := r.Context()
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		ErrorResponse(http.StatusBadRequest, "missing session").Write(w)
		return
	}

	var view budgetpage.View
	err := s.sessions.Do(sessionID, s.userID(r), func(p *budgetpage.Page) { view = fn(p) })
	if err != nil {
		log.FromContext(ctx).DebugContext(ctx, "Unknown page session", log.FieldSessionID, sessionID)
		ErrorResponse(statusFor(err), errorMessage(err)).Write(w)
		return
	}
	NewResponse().JSON(view).Write(w)
}
