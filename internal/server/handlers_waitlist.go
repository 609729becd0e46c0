package server

import (
	"log"
	"net/http"
	"strconv"

	"github.com/jonathan/prep-mirrors/internal/gateway"
	"github.com/jonathan/prep-mirrors/internal/session"
	"github.com/jonathan/prep-mirrors/internal/types"
)

// SignupResponse is returned by POST /waitlist.
type SignupResponse struct {
	Entry *types.WaitlistEntry `json:"entry"`
	Token string               `json:"token"`
	View  session.View         `json:"funnel"`
}

// JobTitlesResponse is returned by GET /job-titles.
type JobTitlesResponse struct {
	Query string           `json:"query"`
	Items []types.JobTitle `json:"items"`
}

// WaitlistPage is returned by the admin export.
type WaitlistPage struct {
	Entries []types.WaitlistEntry `json:"entries"`
	Total   int                   `json:"total"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// handleWaitlistCount returns the social-proof counter. Store failures read as 0.
func (s *Server) handleWaitlistCount(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]int{"count": gateway.CountOrZero(r.Context(), s.gateway)})
}

// handleSignup captures an email and opens a funnel session for it.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req types.SignupRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.requestError(w, err)
		return
	}

	entry, sess, err := s.sessions.Signup(r.Context(), req.Email)
	if err != nil {
		s.requestError(w, err)
		return
	}

	token, err := s.jwtService.GenerateToken(sess.ID, entry.ID)
	if err != nil {
		log.Printf("[funnel] failed to issue token for session %s: %v", sess.ID, err)
		_ = s.sessions.Dismiss(sess.ID)
		s.errorResponse(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	s.jsonResponse(w, http.StatusCreated, SignupResponse{
		Entry: entry,
		Token: token,
		View:  sess.View(),
	})
}

// handleSearchJobTitles serves the job-title lookup outside a funnel session.
// Failures answer with an empty list, as the suggestion dropdown does.
func (s *Server) handleSearchJobTitles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	titles, err := s.gateway.SearchJobTitles(r.Context(), q)
	if err != nil {
		log.Printf("[lookup] job title search failed: %v", err)
		titles = nil
	}
	if titles == nil {
		titles = []types.JobTitle{}
	}
	s.jsonResponse(w, http.StatusOK, JobTitlesResponse{Query: q, Items: titles})
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// handleAdminWaitlist pages through waitlist entries, newest first.
func (s *Server) handleAdminWaitlist(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil || limit < 1 || limit > maxPageSize {
		s.errorResponse(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.errorResponse(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	entries, total, err := s.lister.ListWaitlistEntries(r.Context(), limit, offset)
	if err != nil {
		log.Printf("[admin] failed to list waitlist: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to list waitlist")
		return
	}
	if entries == nil {
		entries = []types.WaitlistEntry{}
	}
	s.jsonResponse(w, http.StatusOK, WaitlistPage{Entries: entries, Total: total, Limit: limit, Offset: offset})
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
