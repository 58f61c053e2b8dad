package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/saphari-core/internal/audit"
)

// auditSource tags entries written by the REST API.
const auditSource = "api"

// record writes an audit entry. Failures are logged, never returned: the
// action has already happened.
func (s *Server) record(r *http.Request, e audit.Entry) {
	if s.audit == nil {
		return
	}
	e.Source = auditSource
	if err := s.audit.Create(r.Context(), &e); err != nil {
		s.logger.Warn("audit write failed", "action", e.Action, "entity_id", e.EntityID, "error", err)
	}
}

// handleListAudit returns audit entries, newest first.
//
// Query parameters:
//   - action, entity_type, entity_id, scope: exact-match filters
//   - limit (default 50, max 200), offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeNotFound(w, "audit log not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		Scope:      q.Get("scope"),
	}

	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			writeValidationError(w, "limit must be an integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			writeValidationError(w, "offset must be an integer")
			return
		}
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit log failed", "error", err)
		writeInternalError(w, "failed to list audit log")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
