package api

import (
	"errors"
	"net/http"

	"github.com/relaydesk/relaydesk-core/internal/device"
	"github.com/relaydesk/relaydesk-core/internal/event"
	"github.com/relaydesk/relaydesk-core/internal/form"
	"github.com/relaydesk/relaydesk-core/internal/message"
)

// Plain-text replies on the agent routes.
const (
	textPanelOnline   = "✅ Panel online"
	textOK            = "OK"
	textMissingUUID   = "missing uuid"
	textMissingFields = "missing fields"
	textInvalidUUID   = "invalid uuid"
	textInvalidBody   = "invalid body"
	textStorageError  = "storage error"
)

// handleRoot is the agents' liveness probe.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, textPanelOnline)
}

// handleConnect records a check-in: {uuid, model, battery, sim1, sim2}.
//
// Attributes replace the previous record wholesale. The first check-in since
// the device was last evicted additionally publishes device.connected.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	id := body.String("uuid")
	if id == "" {
		writeText(w, http.StatusBadRequest, textMissingUUID)
		return
	}

	attrs := device.Attributes{
		Model:   body.String("model"),
		Battery: body.Int("battery"),
		SIM1:    body.String("sim1"),
		SIM2:    body.String("sim2"),
	}
	if err := s.registry.Upsert(id, attrs); err != nil {
		writeText(w, http.StatusBadRequest, textInvalidUUID)
		return
	}

	if s.registry.MarkNotified(id) {
		s.logger.Info("device connected", "device_id", id, "model", attrs.Model)
		s.publish(event.DeviceConnected, id, nil)
	}
	s.publish(event.DeviceCheckedIn, id, nil)
	writeText(w, http.StatusOK, textOK)
}

// handleCommands is the agent poll: it refreshes presence and drains the
// device's queue. Drained commands are never re-delivered.
func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("uuid")
	if id == "" {
		writeText(w, http.StatusBadRequest, textMissingUUID)
		return
	}

	s.registry.Touch(id)

	cmds, err := s.commands.Drain(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrInvalidID) {
			writeText(w, http.StatusBadRequest, textInvalidUUID)
			return
		}
		s.logger.Error("draining command queue failed", "device_id", id, "error", err)
		writeText(w, http.StatusInternalServerError, textStorageError)
		return
	}
	writeJSON(w, http.StatusOK, cmds)
}

// handleSMS stores an inbound message: {uuid, from, body, sim, timestamp?, battery?}.
// The body is stored as sent, surrounding whitespace included. A missing
// timestamp is stamped with the receive time.
func (s *Server) handleSMS(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	id, from, text := body.String("uuid"), body.String("from"), body.Text("body")
	if id == "" || from == "" || text == "" {
		writeText(w, http.StatusBadRequest, textMissingFields)
		return
	}

	rec := message.Record{
		From:      from,
		Body:      text,
		SIM:       body.Int("sim"),
		Battery:   body.Int("battery"),
		Timestamp: body.Int64("timestamp"),
	}
	if rec.Timestamp <= 0 {
		rec.Timestamp = s.now().UnixMilli()
	}

	if err := s.messages.Append(r.Context(), id, rec); err != nil {
		if errors.Is(err, device.ErrInvalidID) {
			writeText(w, http.StatusBadRequest, textInvalidUUID)
			return
		}
		s.logger.Error("storing message failed", "device_id", id, "error", err)
		writeText(w, http.StatusInternalServerError, textStorageError)
		return
	}

	s.publish(event.MessageReceived, id, func(e *event.Event) { e.Message = &rec })
	writeText(w, http.StatusOK, textOK)
}

// handleSMSStatus relays the handset's outcome for a send_sms command:
// {uuid, to, message, status, error?}. Nothing is stored.
func (s *Server) handleSMSStatus(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	st := event.SendStatus{
		To:      body.String("to"),
		Message: body.Text("message"),
		Status:  body.String("status"),
		Error:   body.String("error"),
	}
	s.publish(event.SendReported, body.String("uuid"), func(e *event.Event) { e.Send = &st })
	writeText(w, http.StatusOK, textOK)
}

// handleFormData stores the latest form submission: {uuid, ...fields}.
// Fields other than uuid are kept verbatim.
func (s *Server) handleFormData(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	id := body.String("uuid")
	if id == "" {
		writeText(w, http.StatusBadRequest, textMissingUUID)
		return
	}

	fields := make(form.Fields, len(body))
	for k, v := range body {
		if k != "uuid" {
			fields[k] = v
		}
	}

	if err := s.forms.Save(r.Context(), id, fields); err != nil {
		if errors.Is(err, device.ErrInvalidID) {
			writeText(w, http.StatusBadRequest, textInvalidUUID)
			return
		}
		s.logger.Error("storing form submission failed", "device_id", id, "error", err)
		writeText(w, http.StatusInternalServerError, textStorageError)
		return
	}

	s.publish(event.FormSubmitted, id, func(e *event.Event) { e.Form = fields })
	writeText(w, http.StatusOK, textOK)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) (payload, bool) {
	body, err := decodePayload(r)
	if err != nil {
		s.logger.Debug("rejecting agent body", "path", r.URL.Path, "error", err)
		writeText(w, http.StatusBadRequest, textInvalidBody)
		return nil, false
	}
	return body, true
}
