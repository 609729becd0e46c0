package server

import (
	"log"
	"net/http"
	"time"

	"github.com/jonathan/prep-mirrors/internal/funnel"
	"github.com/jonathan/prep-mirrors/internal/types"
)

// streamKeepAlive is the interval between SSE comments on an idle stream.
const streamKeepAlive = 15 * time.Second

func (s *Server) handleGetFunnel(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		s.requestError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.View())
}

// handleDismiss closes the funnel and cancels everything it still had pending.
func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		s.requestError(w, err)
		return
	}
	if err := s.sessions.Dismiss(sess.ID); err != nil {
		s.requestError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateAnswers(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		s.requestError(w, err)
		return
	}
	var req types.AnswersPatchRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.requestError(w, err)
		return
	}

	patch := funnel.Patch{
		RoleText:                    req.RoleText,
		HasPriorInterviewExperience: req.HasPriorInterviewExperience,
		TargetAreas:                 req.TargetAreas,
	}
	if req.Level != nil {
		level := types.Level(*req.Level)
		patch.Level = &level
	}
	view, err := sess.UpdateAnswers(patch)
	s.viewResponse(w, view, err)
}

func (s *Server) handleToggleTargetArea(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		s.requestError(w, err)
		return
	}
	var req types.ToggleTargetAreaRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.requestError(w, err)
		return
	}
	view, err := sess.ToggleTargetArea(req.Tag)
	s.viewResponse(w, view, err)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		s.requestError(w, err)
		return
	}
	view, err := sess.Advance()
	s.viewResponse(w, view, err)
}

func (s *Server) handleRetreat(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		s.requestError(w, err)
		return
	}
	view, err := sess.Retreat()
	s.viewResponse(w, view, err)
}

func (s *Server) handleRetryCheckpoint(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		s.requestError(w, err)
		return
	}
	view, err := sess.RetryCheckpoint()
	s.viewResponse(w, view, err)
}

// handleRoleQuery records raw role text and schedules the debounced lookup.
func (s *Server) handleRoleQuery(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		s.requestError(w, err)
		return
	}
	var req types.RoleQueryRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.requestError(w, err)
		return
	}
	view, err := sess.SetRoleQuery(req.Text)
	s.viewResponse(w, view, err)
}

func (s *Server) handleRoleSuggestions(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		s.requestError(w, err)
		return
	}
	suggestions, err := sess.Suggestions()
	if err != nil {
		s.requestError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, suggestions)
}

func (s *Server) handleRoleNavigate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		s.requestError(w, err)
		return
	}
	var req types.RoleNavigateRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.requestError(w, err)
		return
	}
	view, err := sess.NavigateRole(req.Action)
	s.viewResponse(w, view, err)
}

func (s *Server) handleRoleSelect(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		s.requestError(w, err)
		return
	}
	var req types.RoleSelectRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.requestError(w, err)
		return
	}
	view, err := sess.SelectRole(*req.Index)
	s.viewResponse(w, view, err)
}

// handleSummaryStream streams the summary reveal as "progress" events carrying
// the revealed prefix, then one "complete" event. Joining late replays the
// current prefix first.
func (s *Server) handleSummaryStream(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		s.requestError(w, err)
		return
	}

	current, events, unsubscribe, err := sess.Subscribe()
	if err != nil {
		s.requestError(w, err)
		return
	}
	defer unsubscribe()

	if !current.Complete && sess.View().StepIndex < int(funnel.SummaryReveal) {
		s.requestError(w, funnel.ErrNotRevealing)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	if current.Complete {
		sse.WriteComplete(current.Text)
		return
	}
	if err := sse.WriteEvent("progress", current); err != nil {
		return
	}

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				// Closed without a complete event: dismissed, or the event was dropped.
				if sess.Closed() {
					sse.WriteError("funnel session was dismissed")
					return
				}
				if v := sess.View(); v.SummaryComplete {
					sse.WriteComplete(v.Summary)
				}
				return
			}
			if ev.Complete {
				sse.WriteComplete(ev.Text)
				return
			}
			if err := sse.WriteEvent("progress", ev); err != nil {
				log.Printf("[funnel] session %s: summary stream write failed: %v", sess.ID, err)
				return
			}
		}
	}
}
