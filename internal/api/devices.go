package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/saphari-core/internal/audit"
	"github.com/nerrad567/saphari-core/internal/device"
	"github.com/nerrad567/saphari-core/internal/widget"
)

// registerDeviceRequest is the body of POST /devices.
type registerDeviceRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SystemID string `json:"system_id"`
}

// deviceCommandRequest is the body of POST /devices/{id}/commands: a raw
// command in the device's wire shape. ts and reqId are optional.
type deviceCommandRequest struct {
	TS      int64          `json:"ts"`
	Command string         `json:"command"`
	Params  map[string]any `json:"params"`
	ReqID   string         `json:"reqId"`
}

// handleListDevices returns all devices in first-seen order.
//
// Query parameters:
//   - system: only devices registered to this system
//   - status: only devices with this status (online, offline, error)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var devices []device.Device
	if q.Has("system") {
		devices = s.registry.ListBySystem(q.Get("system"))
	} else {
		devices = s.registry.List()
	}

	if raw := q.Get("status"); raw != "" {
		status, err := device.ParseStatus(raw)
		if err != nil {
			writeValidationError(w, err.Error())
			return
		}
		filtered := make([]device.Device, 0, len(devices))
		for _, d := range devices {
			if d.Status == status {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleRegisterDevice registers a device before it has sent anything, or
// renames a known one.
func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	_, existed := s.registry.Get(req.ID)

	d, err := s.registry.Register(r.Context(), device.Device{
		ID:       req.ID,
		Name:     req.Name,
		SystemID: req.SystemID,
	})
	if err != nil {
		if errors.Is(err, device.ErrInvalidDevice) {
			writeValidationError(w, err.Error())
			return
		}
		s.logger.Error("device registration failed", "device_id", req.ID, "error", err)
		writeInternalError(w, "failed to register device")
		return
	}

	s.record(r, audit.Entry{
		Action:     audit.ActionRegister,
		EntityType: audit.EntityDevice,
		EntityID:   d.ID,
		Scope:      d.SystemID,
		Details:    map[string]any{"name": d.Name, "existed": existed},
	})

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	writeJSON(w, status, d)
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleGetDeviceTelemetry returns the latest sample of every metric of a
// device.
func (s *Server) handleGetDeviceTelemetry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.registry.Get(id); !ok {
		writeNotFound(w, "device not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"metrics":   s.cache.AllLatest(id),
	})
}

// handleGetDeviceTopics returns every topic owned by the device, so device
// firmware can be configured without knowing the topic layout.
func (s *Server) handleGetDeviceTopics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := device.ValidateID(id); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.topics.For(id))
}

// handleDeviceStats returns device counts by status.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	byStatus := make(map[string]int)
	for status, n := range s.registry.CountByStatus() {
		byStatus[string(status)] = n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":     s.registry.Count(),
		"by_status": byStatus,
	})
}

// handleDeviceCommand publishes a hand-written command on the device's cmd
// topic, bypassing widget bindings. It is the device console's send button.
// A zero ts is stamped with the current time.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.registry.Get(id); !ok {
		writeNotFound(w, "device not found")
		return
	}

	var req deviceCommandRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeValidationError(w, "command is required")
		return
	}
	if req.TS < 0 {
		writeValidationError(w, "ts must not be negative")
		return
	}

	cmd := widget.CommandMessage{
		TS:      req.TS,
		Command: req.Command,
		Params:  req.Params,
		ReqID:   req.ReqID,
	}
	if cmd.TS == 0 {
		cmd.TS = s.now().UnixMilli()
	}

	entry := audit.Entry{
		Action:     audit.ActionCommand,
		EntityType: audit.EntityDevice,
		EntityID:   id,
		Details:    map[string]any{"command": cmd.Command, "params": cmd.Params},
	}

	if s.publisher == nil {
		entry.Result = audit.ResultFailed
		entry.Details["error"] = "no transport configured"
		s.record(r, entry)
		writeError(w, http.StatusServiceUnavailable, ErrCodeNotConnected, "no transport configured")
		return
	}

	sent, err := s.publisher.Publish(r.Context(), id, cmd)
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
