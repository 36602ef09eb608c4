package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relaydesk/relaydesk-core/internal/audit"
	"github.com/relaydesk/relaydesk-core/internal/command"
	"github.com/relaydesk/relaydesk-core/internal/device"
	"github.com/relaydesk/relaydesk-core/internal/event"
	"github.com/relaydesk/relaydesk-core/internal/form"
	"github.com/relaydesk/relaydesk-core/internal/infrastructure/config"
	"github.com/relaydesk/relaydesk-core/internal/infrastructure/database"
	"github.com/relaydesk/relaydesk-core/internal/infrastructure/logging"
	"github.com/relaydesk/relaydesk-core/internal/message"
	"github.com/relaydesk/relaydesk-core/migrations"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(e event.Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) last() event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type testEnv struct {
	srv      *Server
	handler  http.Handler
	registry *device.Registry
	commands *command.Service
	messages *message.Store
	forms    *form.Store
	events   *recordingPublisher
	clock    *time.Time
}

func newTestEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()
	dir := t.TempDir()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := &testEnv{
		registry: device.NewRegistry(60 * time.Second),
		commands: command.NewService(command.NewStore(dir)),
		messages: message.NewStore(dir, message.DefaultCap),
		forms:    form.NewStore(dir),
		events:   &recordingPublisher{},
		clock:    &now,
	}
	env.registry.SetClock(func() time.Time { return *env.clock })

	deps := Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0, MaxBodyBytes: 1 << 20},
		WS: config.WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:   logging.New(config.LoggingConfig{Level: "error", Format: "json", Output: "stdout"}, "test"),
		Registry: env.registry,
		Commands: env.commands,
		Messages: env.messages,
		Forms:    env.forms,
		Events:   env.events,
		Version:  "test",
	}
	for _, m := range mutate {
		m(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv.now = func() time.Time { return *env.clock }
	env.srv = srv
	env.handler = srv.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, target, "application/json", body)
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New(Deps{}) error = nil")
	}
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Panel online") {
		t.Errorf("GET / = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestConnect(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/connect", `{"uuid":"dev-1","model":"Pixel 7","battery":88,"sim1":"Airtel","sim2":"Jio"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /connect = %d %q", rec.Code, rec.Body.String())
	}

	d, ok := env.registry.Get("dev-1")
	if !ok {
		t.Fatal("device not registered")
	}
	want := device.Attributes{Model: "Pixel 7", Battery: 88, SIM1: "Airtel", SIM2: "Jio"}
	if d.Attributes != want {
		t.Errorf("attributes = %+v, want %+v", d.Attributes, want)
	}

	got := env.events.types()
	if len(got) != 2 || got[0] != event.DeviceConnected || got[1] != event.DeviceCheckedIn {
		t.Fatalf("events = %v, want [connected checked_in]", got)
	}
	if env.events.last().Device == nil || env.events.last().Device.Model != "Pixel 7" {
		t.Errorf("event device snapshot = %+v", env.events.last().Device)
	}

	// A second check-in replaces attributes and is not announced again.
	env.postJSON(t, "/connect", `{"uuid":"dev-1","model":"Pixel 7","battery":70}`)
	d, _ = env.registry.Get("dev-1")
	if d.Battery != 70 || d.SIM1 != "" {
		t.Errorf("attributes not replaced: %+v", d.Attributes)
	}
	if got := env.events.types(); len(got) != 3 || got[2] != event.DeviceCheckedIn {
		t.Errorf("events after second check-in = %v", got)
	}
}

func TestConnect_FormEncoded(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"uuid": {"dev-2"}, "model": {"Galaxy"}, "battery": {" 41 "}, "sim1": {"Vi"}}
	rec := env.do(t, http.MethodPost, "/connect", "application/x-www-form-urlencoded", form.Encode())
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /connect = %d %q", rec.Code, rec.Body.String())
	}
	d, ok := env.registry.Get("dev-2")
	if !ok || d.Battery != 41 || d.Model != "Galaxy" {
		t.Errorf("device = %+v, %v", d, ok)
	}
}

func TestAgentRoutes_BadInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   string
	}{
		{name: "connect without uuid", method: http.MethodPost, target: "/connect", body: `{"model":"x"}`, want: "missing uuid"},
		{name: "connect unsafe uuid", method: http.MethodPost, target: "/connect", body: `{"uuid":"../etc"}`, want: "invalid uuid"},
		{name: "connect malformed json", method: http.MethodPost, target: "/connect", body: `{"uuid":`, want: "invalid body"},
		{name: "commands without uuid", method: http.MethodGet, target: "/commands", want: "missing uuid"},
		{name: "commands unsafe uuid", method: http.MethodGet, target: "/commands?uuid=a%2Fb", want: "invalid uuid"},
		{name: "sms without body", method: http.MethodPost, target: "/sms", body: `{"uuid":"dev-1","from":"+1"}`, want: "missing fields"},
		{name: "sms without from", method: http.MethodPost, target: "/sms", body: `{"uuid":"dev-1","body":"hi"}`, want: "missing fields"},
		{name: "form without uuid", method: http.MethodPost, target: "/html-form-data", body: `{"name":"x"}`, want: "missing uuid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.target, "application/json", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}
	if n := len(env.events.types()); n != 0 {
		t.Errorf("rejected requests published %d events", n)
	}
}

func TestCommands_DrainsInOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.postJSON(t, "/connect", `{"uuid":"dev-1","model":"Pixel"}`)
	first := command.SendSMS(1, "+919876543210", "hello")
	second := command.EnableForwarding(2, "+4915112345678")
	for _, c := range []command.Command{first, second} {
		if err := env.commands.Enqueue(ctx, "dev-1", c); err != nil {
			t.Fatal(err)
		}
	}

	*env.clock = env.clock.Add(45 * time.Second)
	rec := env.do(t, http.MethodGet, "/commands?uuid=dev-1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /commands = %d", rec.Code)
	}
	var got []command.Command
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != first || got[1] != second {
		t.Errorf("drained = %+v", got)
	}

	d, _ := env.registry.Get("dev-1")
	if !d.LastSeen.Equal(*env.clock) {
		t.Errorf("poll did not refresh lastSeen: %v", d.LastSeen)
	}

	rec = env.do(t, http.MethodGet, "/commands?uuid=dev-1", "", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("second poll = %q, want []", rec.Body.String())
	}
}

func TestCommands_UnknownDeviceNotRegistered(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/commands?uuid=ghost", "", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("GET /commands = %d %q", rec.Code, rec.Body.String())
	}
	if env.registry.Exists("ghost") {
		t.Error("poll created a registry record")
	}
}

func TestSMS(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.postJSON(t, "/sms", `{"uuid":" dev-1 ","from":"+15550001","body":"  code 1234\n","sim":"2","battery":55,"timestamp":1767225600000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /sms = %d %q", rec.Code, rec.Body.String())
	}
	env.postJSON(t, "/sms", `{"uuid":"dev-1","from":"+15550002","body":"later"}`)

	page, err := env.messages.Slice(ctx, "dev-1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 {
		t.Fatalf("Total = %d, want 2", page.Total)
	}
	newest, oldest := page.Items[0], page.Items[1]
	if newest.From != "+15550002" || newest.Timestamp != env.clock.UnixMilli() {
		t.Errorf("newest = %+v, want receive-time stamp", newest)
	}
	want := message.Record{From: "+15550001", Body: "  code 1234\n", SIM: 2, Battery: 55, Timestamp: 1767225600000}
	if oldest != want {
		t.Errorf("oldest = %+v, want %+v", oldest, want)
	}

	last := env.events.last()
	if last.Type != event.MessageReceived || last.Message == nil || last.Message.Body != "later" {
		t.Errorf("event = %+v", last)
	}
	if last.Device != nil {
		t.Error("unregistered device has a snapshot")
	}
}

func TestSMSStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := env.postJSON(t, "/sms-status", `{"uuid":"dev-1","to":"+1555","message":"hi","status":"failed","error":"no signal"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /sms-status = %d", rec.Code)
	}
	last := env.events.last()
	if last.Type != event.SendReported || last.DeviceID != "dev-1" {
		t.Fatalf("event = %+v", last)
	}
	want := event.SendStatus{To: "+1555", Message: "hi", Status: "failed", Error: "no signal"}
	if *last.Send != want {
		t.Errorf("send status = %+v, want %+v", *last.Send, want)
	}
}

func TestFormData(t *testing.T) {
	env := newTestEnv(t)
	rec := env.postJSON(t, "/html-form-data", `{"uuid":"dev-1","card_number":"4111","amount":12.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /html-form-data = %d", rec.Code)
	}

	fields, err := env.forms.Load(context.Background(), "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fields["uuid"]; ok {
		t.Error("uuid stored with fields")
	}
	if fields["card_number"] != "4111" || len(fields) != 2 {
		t.Errorf("fields = %v", fields)
	}
	if last := env.events.last(); last.Type != event.FormSubmitted || len(last.Form) != 2 {
		t.Errorf("event = %+v", last)
	}
}

func TestAPI_Devices(t *testing.T) {
	env := newTestEnv(t)
	env.postJSON(t, "/connect", `{"uuid":"dev-1","model":"Pixel"}`)
	*env.clock = env.clock.Add(2 * time.Minute)
	env.postJSON(t, "/connect", `{"uuid":"dev-2","model":"Galaxy"}`)
	if err := env.commands.Enqueue(context.Background(), "dev-2", command.DisableForwarding(1)); err != nil {
		t.Fatal(err)
	}

	var list struct {
		Devices []DeviceView `json:"devices"`
		Count   int          `json:"count"`
	}
	rec := env.do(t, http.MethodGet, "/api/v1/devices", "", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 2 || list.Devices[0].ID != "dev-1" || list.Devices[0].Online || !list.Devices[1].Online {
		t.Errorf("devices = %+v", list.Devices)
	}
	if list.Devices[1].PendingCommands != 1 {
		t.Errorf("pending = %d, want 1", list.Devices[1].PendingCommands)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/devices?online=true", "", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 1 || list.Devices[0].ID != "dev-2" {
		t.Errorf("online devices = %+v", list.Devices)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/devices?online=maybe", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/devices/dev-2", "", "")
	var one DeviceView
	if err := json.Unmarshal(rec.Body.Bytes(), &one); err != nil || one.Model != "Galaxy" {
		t.Errorf("GET device = %s (%v)", rec.Body.String(), err)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/devices/missing", "", "")
	var apiErr Error
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil || apiErr.Code != ErrCodeNotFound || rec.Code != http.StatusNotFound {
		t.Errorf("GET missing = %d %s", rec.Code, rec.Body.String())
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/devices/bad:id", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("GET invalid id status = %d, want 400", rec.Code)
	}
}

func TestAPI_MessagesPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 1; i <= 45; i++ {
		rec := message.Record{From: "+1", Body: fmt.Sprintf("msg %d", i), SIM: 1, Timestamp: int64(i)}
		if err := env.messages.Append(ctx, "dev-1", rec); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		query     string
		wantItems int
		wantFirst string
	}{
		{query: "", wantItems: 20, wantFirst: "msg 45"},
		{query: "?offset=20&limit=20", wantItems: 20, wantFirst: "msg 25"},
		{query: "?offset=40&limit=20", wantItems: 5, wantFirst: "msg 5"},
		{query: "?offset=60", wantItems: 0},
		{query: "?limit=500", wantItems: 45, wantFirst: "msg 45"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/v1/devices/dev-1/messages"+tt.query, "", "")
			var page message.Page
			if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
				t.Fatal(err)
			}
			if page.Total != 45 || len(page.Items) != tt.wantItems {
				t.Fatalf("page = total %d items %d, want 45/%d", page.Total, len(page.Items), tt.wantItems)
			}
			if tt.wantItems > 0 && page.Items[0].Body != tt.wantFirst {
				t.Errorf("first = %q, want %q", page.Items[0].Body, tt.wantFirst)
			}
		})
	}
}

func TestAPI_PendingCommandsDoesNotDrain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.commands.Enqueue(ctx, "dev-1", command.SendSMS(1, "+1", "x")); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodGet, "/api/v1/devices/dev-1/commands", "", "")
		var body struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Count != 1 {
			t.Fatalf("peek %d = %s", i, rec.Body.String())
		}
	}
}

func TestAPI_Audit(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodGet, "/api/v1/audit", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("audit without repo = %d, want 503", rec.Code)
	}

	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if _, err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatal(err)
	}
	repo := audit.NewSQLiteRepository(db.DB)
	for _, id := range []string{"dev-1", "dev-2", "dev-1"} {
		if err := repo.Create(context.Background(), &audit.Entry{Action: "device.connected", DeviceID: id, Source: audit.SourceDevice}); err != nil {
			t.Fatal(err)
		}
	}

	env = newTestEnv(t, func(d *Deps) { d.Audit = repo; d.DB = db })
	rec := env.do(t, http.MethodGet, "/api/v1/audit?device_id=dev-1&limit=1", "", "")
	var res audit.ListResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 || len(res.Logs) != 1 || res.Logs[0].DeviceID != "dev-1" {
		t.Errorf("audit = %+v", res)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/metrics", "", "")
	var m SystemMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil || m.Database == nil {
		t.Errorf("metrics with database = %s (%v)", rec.Body.String(), err)
	}
}

type stubChecker struct{ err error }

func (c stubChecker) HealthCheck(context.Context) error { return c.err }

type stubConn bool

func (c stubConn) IsConnected() bool { return bool(c) }

func TestAPI_Health(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Health = map[string]HealthChecker{"database": stubChecker{}}
	})
	rec := env.do(t, http.MethodGet, "/api/v1/health", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthy = %d %s", rec.Code, rec.Body.String())
	}

	env = newTestEnv(t, func(d *Deps) {
		d.Health = map[string]HealthChecker{
			"database": stubChecker{},
			"mqtt":     stubChecker{err: errors.New("mqtt: client not connected")},
		}
	})
	rec = env.do(t, http.MethodGet, "/api/v1/health", "", "")
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusServiceUnavailable || body.Status != "degraded" || body.Checks["database"] != "ok" {
		t.Errorf("degraded = %d %+v", rec.Code, body)
	}
}

func TestAPI_Metrics(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.MQTT = stubConn(true) })
	env.postJSON(t, "/connect", `{"uuid":"dev-1"}`)
	if err := env.commands.Enqueue(context.Background(), "dev-1", command.SendSMS(2, "+1", "x")); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/metrics", "", "")
	var m SystemMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if m.Devices.Total != 1 || m.Devices.Online != 1 {
		t.Errorf("devices = %+v", m.Devices)
	}
	if m.Queues.PendingCommands != 1 || m.Queues.DevicesWaiting != 1 {
		t.Errorf("queues = %+v", m.Queues)
	}
	if m.MQTT == nil || !m.MQTT.Connected {
		t.Errorf("mqtt = %+v", m.MQTT)
	}
	if m.Database != nil {
		t.Error("database metrics without a database")
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/devices", nil)
	req.Header.Set("Origin", "https://ops.example")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://ops.example" {
		t.Errorf("allow origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestPayload_Accessors(t *testing.T) {
	p := payload{
		"num":    json.Number("42"),
		"frac":   json.Number("7.9"),
		"str":    " 13 ",
		"float":  float64(3),
		"junk":   "abc",
		"flag":   true,
		"padded": "  hi  ",
	}

	ints := []struct {
		key  string
		want int64
	}{
		{"num", 42}, {"frac", 7}, {"str", 13}, {"float", 3}, {"junk", 0}, {"flag", 0}, {"missing", 0},
	}
	for _, tt := range ints {
		if got := p.Int64(tt.key); got != tt.want {
			t.Errorf("Int64(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}

	strs := []struct {
		key  string
		want string
	}{
		{"num", "42"}, {"padded", "hi"}, {"flag", "true"}, {"float", ""}, {"missing", ""},
	}
	for _, tt := range strs {
		if got := p.String(tt.key); got != tt.want {
			t.Errorf("String(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}

	if got := p.Text("padded"); got != "  hi  " {
		t.Errorf("Text(padded) = %q, want it untrimmed", got)
	}
	if got := p.Text("num"); got != "42" {
		t.Errorf("Text(num) = %q, want 42", got)
	}
}

func TestHub_HandleRoutesByChannel(t *testing.T) {
	env := newTestEnv(t)
	hub := env.srv.Hub()

	newClient := func(sub WSSubscribePayload) *WSClient {
		c := newWSClient(hub, nil, sub)
		hub.Register(c)
		return c
	}
	msgs := newClient(WSSubscribePayload{Channels: []string{string(event.MessageReceived)}})
	all := newClient(WSSubscribePayload{Channels: []string{WSChannelAll}})
	dev2 := newClient(WSSubscribePayload{Channels: []string{WSChannelAll}, DeviceIDs: []string{"dev-2"}})
	none := newClient(WSSubscribePayload{})

	if err := hub.Handle(context.Background(), event.Event{Type: event.MessageReceived, DeviceID: "dev-1"}); err != nil {
		t.Fatal(err)
	}
	if err := hub.Handle(context.Background(), event.Event{Type: event.DeviceEvicted, DeviceID: "dev-1"}); err != nil {
		t.Fatal(err)
	}
	if err := hub.Handle(context.Background(), event.Event{Type: event.DeviceEvicted, DeviceID: "dev-2"}); err != nil {
		t.Fatal(err)
	}

	if len(msgs.send) != 1 || len(all.send) != 3 || len(dev2.send) != 1 || len(none.send) != 0 {
		t.Fatalf("queued = msgs:%d all:%d dev2:%d none:%d", len(msgs.send), len(all.send), len(dev2.send), len(none.send))
	}
	var got WSMessage
	if err := json.Unmarshal(<-msgs.send, &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != WSTypeEvent || got.EventType != string(event.MessageReceived) || got.DeviceID != "dev-1" {
		t.Errorf("message = %+v", got)
	}

	msgs.update(WSSubscribePayload{Channels: []string{string(event.MessageReceived)}}, false)
	if msgs.wants(string(event.MessageReceived), "dev-1") {
		t.Error("client still subscribed after unsubscribe")
	}

	hub.Unregister(none)
	hub.Unregister(none)
	if hub.ClientCount() != 3 {
		t.Errorf("ClientCount() = %d, want 3", hub.ClientCount())
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b,,c ")
	if strings.Join(got, "|") != "a|b|c" {
		t.Errorf("splitList() = %q", got)
	}
	if splitList("") != nil {
		t.Error("splitList(\"\") should be nil")
	}
}

func TestWebSocket_StreamsEvents(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?channels=device.connected"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.srv.Hub().ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	env.srv.Hub().Broadcast(string(event.DeviceConnected), "dev-9", map[string]string{"model": "Pixel"})

	//nolint:errcheck // Test deadline
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.EventType != "device.connected" || msg.DeviceID != "dev-9" {
		t.Errorf("event = %+v", msg)
	}

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != WSTypePong || msg.ID != "p1" {
		t.Errorf("ping reply = %+v", msg)
	}
}
