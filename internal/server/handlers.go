package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jonathan/prep-mirrors/internal/server/middleware"
	"github.com/jonathan/prep-mirrors/internal/session"
)

// maxBodyBytes caps request bodies; every funnel payload is tiny.
const maxBodyBytes = 16 << 10

// validatable is implemented by every request type in internal/types.
type validatable interface {
	Validate() error
}

// decodeRequest reads a JSON body into req and runs its validation tags.
func decodeRequest(w http.ResponseWriter, r *http.Request, req validatable) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		if errors.Is(err, io.EOF) {
			return &ErrValidation{Field: "body", Message: "request body is empty"}
		}
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return req.Validate()
}

// currentSession resolves the session named by the request's bearer token.
func (s *Server) currentSession(r *http.Request) (*session.Session, error) {
	sessionID, err := middleware.GetSessionID(r)
	if err != nil {
		return nil, &ErrUnauthorized{Reason: err.Error()}
	}
	entryID, err := middleware.GetEntryID(r)
	if err != nil {
		return nil, &ErrUnauthorized{Reason: err.Error()}
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.EntryID != entryID {
		return nil, &ErrUnauthorized{Reason: "token does not match session"}
	}
	return sess, nil
}

// requestError writes err with the status HTTPStatus assigns it.
func (s *Server) requestError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusBadRequest {
		msg = validationMessage(err)
	}
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	s.errorResponse(w, status, msg)
}

// viewResponse writes the funnel view, or the error alongside the unchanged view.
func (s *Server) viewResponse(w http.ResponseWriter, view session.View, err error) {
	if err == nil {
		s.jsonResponse(w, http.StatusOK, view)
		return
	}
	body := map[string]any{"error": err.Error()}
	if HTTPStatus(err) == http.StatusBadRequest {
		body["error"] = validationMessage(err)
	}
	if errors.Is(err, session.ErrDismissed) {
		s.jsonResponse(w, HTTPStatus(err), body)
		return
	}
	body["view"] = view
	s.jsonResponse(w, HTTPStatus(err), body)
}
