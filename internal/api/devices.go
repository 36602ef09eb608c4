package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/relaydesk/relaydesk-core/internal/device"
)

// maxMessagePageSize caps the limit query parameter on message listings.
const maxMessagePageSize = 100

// DeviceView is a registry snapshot enriched with derived state.
type DeviceView struct {
	device.Device
	Online          bool `json:"online"`
	PendingCommands int  `json:"pending_commands"`
}

func (s *Server) view(d device.Device, depths map[string]int) DeviceView {
	return DeviceView{
		Device:          d,
		Online:          s.registry.IsOnline(d),
		PendingCommands: depths[d.ID],
	}
}

// handleListDevices returns every registered device in check-in order.
//
// Query parameters:
//   - online: "true" or "false" to filter by presence
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var onlineFilter *bool
	if v := r.URL.Query().Get("online"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "online must be true or false")
			return
		}
		onlineFilter = &b
	}

	depths := s.commands.Depths()
	devices := s.registry.List()
	views := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		v := s.view(d, depths)
		if onlineFilter != nil && v.Online != *onlineFilter {
			continue
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": views, "count": len(views)})
}

// handleGetDevice returns a single device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := s.registry.Lookup(id)
	switch {
	case errors.Is(err, device.ErrInvalidID):
		writeBadRequest(w, err.Error())
		return
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
		return
	case err != nil:
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.view(d, s.commands.Depths()))
}

// handleListMessages returns one page of a device's message log, newest
// first. The device need not be registered; logs outlive eviction.
//
// Query parameters:
//   - offset: 0-based start (default 0)
//   - limit: page size (default 20, max 100)
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 0)
	if limit > maxMessagePageSize {
		limit = maxMessagePageSize
	}

	page, err := s.messages.Slice(r.Context(), id, offset, limit)
	if err != nil {
		if errors.Is(err, device.ErrInvalidID) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("listing messages failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handlePendingCommands returns a device's queue without draining it.
func (s *Server) handlePendingCommands(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cmds, err := s.commands.Pending(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrInvalidID) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to read command queue")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device_id": id, "commands": cmds, "count": len(cmds)})
}

// queryInt parses an integer query parameter, returning def when it is
// absent or malformed.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
