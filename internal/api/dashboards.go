package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/saphari-core/internal/audit"
	"github.com/nerrad567/saphari-core/internal/dashboard"
	"github.com/nerrad567/saphari-core/internal/layout"
	"github.com/nerrad567/saphari-core/internal/widget"
)

// addWidgetRequest is the body of POST /dashboards/{scope}/widgets.
//
// Either Binding is given in full, or DeviceID (and optionally MetricKey)
// select the palette defaults for Type.
type addWidgetRequest struct {
	ID        string          `json:"id"`
	Type      widget.Type     `json:"type"`
	Title     string          `json:"title"`
	DeviceID  string          `json:"device_id"`
	MetricKey string          `json:"metric_key"`
	Binding   *widget.Binding `json:"binding"`
	Options   *widget.Options `json:"options"`
}

// moveWidgetRequest is the body of PUT .../cell.
type moveWidgetRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// commandRequest is the body of POST .../command. Value is optional for
// buttons.
type commandRequest struct {
	Value any `json:"value"`
}

// dashboardResponse is a dashboard plus the current display value of each
// bound widget.
type dashboardResponse struct {
	dashboard.Dashboard
	Values map[string]widget.Display `json:"values"`
}

// widgetResponse is one widget with its cell.
type widgetResponse struct {
	Widget widget.Widget `json:"widget"`
	Cell   layout.Cell   `json:"cell"`
}

// writeDashboardError maps dashboard, layout and widget errors to responses.
func (s *Server) writeDashboardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, layout.ErrInvalidScope),
		errors.Is(err, widget.ErrInvalidWidget),
		errors.Is(err, widget.ErrUnknownType):
		writeValidationError(w, err.Error())
	case errors.Is(err, dashboard.ErrDashboardNotFound):
		writeNotFound(w, "dashboard not found")
	case errors.Is(err, dashboard.ErrWidgetNotFound):
		writeNotFound(w, "widget not found")
	case errors.Is(err, dashboard.ErrWidgetExists):
		writeConflict(w, err.Error())
	default:
		s.logger.Error("dashboard operation failed", "error", err)
		writeInternalError(w, "dashboard operation failed")
	}
}

// handleListDashboards returns the scope keys with a stored dashboard.
func (s *Server) handleListDashboards(w http.ResponseWriter, r *http.Request) {
	scopes, err := s.dashboards.Scopes(r.Context())
	if err != nil {
		s.writeDashboardError(w, err)
		return
	}
	if scopes == nil {
		scopes = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scopes": scopes, "count": len(scopes)})
}

// handleGetDashboard returns a dashboard with resolved widget values.
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboards.Get(r.Context(), chi.URLParam(r, "scope"))
	if err != nil {
		s.writeDashboardError(w, err)
		return
	}

	values := make(map[string]widget.Display, len(d.Widgets))
	for _, wd := range d.Widgets {
		if wd.Binding != nil {
			values[wd.ID] = s.resolver.ResolveDisplay(*wd.Binding)
		}
	}
	writeJSON(w, http.StatusOK, dashboardResponse{Dashboard: d, Values: values})
}

// handleDeleteDashboard removes a stored dashboard.
func (s *Server) handleDeleteDashboard(w http.ResponseWriter, r *http.Request) {
	scope := chi.URLParam(r, "scope")
	if err := s.dashboards.Delete(r.Context(), scope); err != nil {
		s.writeDashboardError(w, err)
		return
	}
	s.record(r, audit.Entry{Action: audit.ActionDashboardDelete, EntityType: audit.EntityDashboard, Scope: scope})
	w.WriteHeader(http.StatusNoContent)
}

// handleAddWidget adds a widget below the existing ones.
func (s *Server) handleAddWidget(w http.ResponseWriter, r *http.Request) {
	var req addWidgetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	var wd widget.Widget
	if req.Binding != nil {
		wd = widget.Widget{ID: req.ID, Type: req.Type, Binding: req.Binding}
	} else {
		var err error
		wd, err = widget.NewWidget(req.ID, req.Type, req.DeviceID, req.MetricKey)
		if err != nil {
			s.writeDashboardError(w, err)
			return
		}
	}
	wd.Title = req.Title
	if req.Options != nil {
		wd.Options = *req.Options
	}

	scope := chi.URLParam(r, "scope")
	added, cell, err := s.dashboards.AddWidget(r.Context(), scope, wd)
	if err != nil {
		s.writeDashboardError(w, err)
		return
	}
	s.record(r, audit.Entry{
		Action:     audit.ActionWidgetAdd,
		EntityType: audit.EntityWidget,
		EntityID:   added.ID,
		Scope:      scope,
		Details:    map[string]any{"type": string(added.Type)},
	})
	writeJSON(w, http.StatusCreated, widgetResponse{Widget: added, Cell: cell})
}

// handleGetWidget returns one widget and its cell.
func (s *Server) handleGetWidget(w http.ResponseWriter, r *http.Request) {
	wd, cell, err := s.dashboards.Widget(r.Context(), chi.URLParam(r, "scope"), chi.URLParam(r, "widgetID"))
	if err != nil {
		s.writeDashboardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, widgetResponse{Widget: wd, Cell: cell})
}

// handleRemoveWidget deletes a widget; other cells keep their positions.
func (s *Server) handleRemoveWidget(w http.ResponseWriter, r *http.Request) {
	scope, id := chi.URLParam(r, "scope"), chi.URLParam(r, "widgetID")
	if err := s.dashboards.RemoveWidget(r.Context(), scope, id); err != nil {
		s.writeDashboardError(w, err)
		return
	}
	s.record(r, audit.Entry{Action: audit.ActionWidgetRemove, EntityType: audit.EntityWidget, EntityID: id, Scope: scope})
	w.WriteHeader(http.StatusNoContent)
}

// handleMoveWidget places a widget's cell. Geometry is clamped, never
// rejected; the stored cell is returned.
func (s *Server) handleMoveWidget(w http.ResponseWriter, r *http.Request) {
	var req moveWidgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	scope, id := chi.URLParam(r, "scope"), chi.URLParam(r, "widgetID")
	cell, err := s.dashboards.MoveWidget(r.Context(), scope, id, req.X, req.Y, req.W, req.H)
	if err != nil {
		s.writeDashboardError(w, err)
		return
	}
	s.record(r, audit.Entry{
		Action:     audit.ActionWidgetMove,
		EntityType: audit.EntityWidget,
		EntityID:   id,
		Scope:      scope,
		Details:    map[string]any{"x": cell.X, "y": cell.Y, "w": cell.W, "h": cell.H},
	})
	writeJSON(w, http.StatusOK, cell)
}

// handleGetWidgetValue resolves the widget's binding against the telemetry
// cache. A metric never seen reads as unknown, not zero.
func (s *Server) handleGetWidgetValue(w http.ResponseWriter, r *http.Request) {
	wd, _, err := s.dashboards.Widget(r.Context(), chi.URLParam(r, "scope"), chi.URLParam(r, "widgetID"))
	if err != nil {
		s.writeDashboardError(w, err)
		return
	}
	if wd.Binding == nil {
		writeConflict(w, "widget has no binding")
		return
	}
	writeJSON(w, http.StatusOK, s.resolver.ResolveDisplay(*wd.Binding))
}

// handleWidgetCommand builds a command from the widget's binding and the
// user value and publishes it. Nothing is queued: a disconnected transport
// is reported as 503 and the UI decides whether to retry.
func (s *Server) handleWidgetCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	scope, id := chi.URLParam(r, "scope"), chi.URLParam(r, "widgetID")
	wd, _, err := s.dashboards.Widget(r.Context(), scope, id)
	if err != nil {
		s.writeDashboardError(w, err)
		return
	}
	if wd.Binding == nil {
		writeConflict(w, "widget has no binding")
		return
	}

	entry := audit.Entry{
		Action:     audit.ActionCommand,
		EntityType: audit.EntityWidget,
		EntityID:   id,
		Scope:      scope,
		Details:    map[string]any{"device_id": wd.Binding.DeviceID, "value": req.Value},
	}

	cmd, err := s.resolver.ResolveCommand(*wd.Binding, req.Value, s.now())
	if err != nil {
		entry.Result = audit.ResultRejected
		entry.Details["error"] = err.Error()
		s.record(r, entry)
		s.writeCommandError(w, err)
		return
	}
	entry.Details["command"] = cmd.Command

	if s.publisher == nil {
		entry.Result = audit.ResultFailed
		entry.Details["error"] = "no transport configured"
		s.record(r, entry)
		writeError(w, http.StatusServiceUnavailable, ErrCodeNotConnected, "no transport configured")
		return
	}

	sent, err := s.publisher.Publish(r.Context(), wd.Binding.DeviceID, cmd)
	if err != nil {
		entry.Result = audit.ResultFailed
		entry.Details["error"] = err.Error()
		s.record(r, entry)
		s.writeCommandError(w, err)
		return
	}
	entry.Details["req_id"] = sent.ReqID
	s.record(r, entry)
	writeJSON(w, http.StatusAccepted, sent)
}

// writeCommandError maps resolver and publisher errors to responses.
func (s *Server) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, widget.ErrReadOnlyBinding),
		errors.Is(err, widget.ErrNoCommandTemplate):
		writeConflict(w, err.Error())
	case errors.Is(err, widget.ErrInvalidValue):
		writeValidationError(w, err.Error())
	case errors.Is(err, widget.ErrNotConnected):
		writeError(w, http.StatusServiceUnavailable, ErrCodeNotConnected, "transport not connected, command not sent")
	case errors.Is(err, widget.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, ErrCodeRateLimited, err.Error())
	case errors.Is(err, widget.ErrPublishFailed):
		s.logger.Warn("command publish failed", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodePublishFailed, "command publish failed")
	default:
		s.logger.Error("command failed", "error", err)
		writeInternalError(w, "command failed")
	}
}
