// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/rollcall/internal/attendance"
	"github.com/tomtom215/rollcall/internal/auth"
	"github.com/tomtom215/rollcall/internal/authz"
	"github.com/tomtom215/rollcall/internal/config"
	"github.com/tomtom215/rollcall/internal/database"
	"github.com/tomtom215/rollcall/internal/export"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/models"
	"github.com/tomtom215/rollcall/internal/recognition"
	"github.com/tomtom215/rollcall/internal/relay"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

const testSecret = "test-secret-that-is-long-enough-for-hs256"

// testNow is the attendance clock in handler tests.
var testNow = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

// testDBSemaphore serializes DuckDB use across tests.
var testDBSemaphore = make(chan struct{}, 1)

type stubUpstream struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (s *stubUpstream) Recognize(_ context.Context, _ string, _ []models.FaceEmbedding) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids, s.err
}

func (s *stubUpstream) set(ids []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids, s.err = ids, err
}

type stubFaceEnroller struct {
	embedding []float32
	dup       *recognition.Duplicate
	err       error
	known     []models.FaceEmbedding
}

func (s *stubFaceEnroller) Embedding(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.embedding, nil
}

func (s *stubFaceEnroller) CheckDuplicate(_ context.Context, _ []float32, known []models.FaceEmbedding) (*recognition.Duplicate, error) {
	s.known = known
	if s.dup != nil {
		return s.dup, nil
	}
	return &recognition.Duplicate{}, nil
}

type envConfig struct {
	authEnabled bool
	uploadLimit int
}

type envOption func(*envConfig)

func withAuth() envOption { return func(c *envConfig) { c.authEnabled = true } }

func withUploadLimit(n int) envOption { return func(c *envConfig) { c.uploadLimit = n } }

// testEnv is a full HTTP stack over an in-memory database.
type testEnv struct {
	t        *testing.T
	db       *database.DB
	hub      *relay.Hub
	srv      *httptest.Server
	upstream *stubUpstream
	faces    *stubFaceEnroller
	jwt      *auth.JWTManager
	service  *attendance.Service
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := envConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	tickets, err := relay.NewTicketStore(time.Minute)
	if err != nil {
		t.Fatalf("NewTicketStore() error = %v", err)
	}
	t.Cleanup(func() { _ = tickets.Close() })

	relayCfg := config.RelayConfig{
		FrontendBaseURL:     "https://rollcall.test/",
		RegistrationTimeout: 5 * time.Second,
		SendBuffer:          16,
		MaxMessageSize:      1 << 20,
	}
	hub := relay.NewHub(relay.NewRegistry(), tickets, relayCfg)
	t.Cleanup(hub.Close)

	upstream := &stubUpstream{}
	faces := &stubFaceEnroller{embedding: []float32{0.1, 0.2, 0.3}}
	service := attendance.NewService(db,
		config.AttendanceConfig{Timezone: "UTC", EditWindowDays: 3},
		attendance.WithClock(func() time.Time { return testNow }))

	h := NewHandler(Deps{
		DB:         db,
		Attendance: service,
		Exporter:   export.NewExporter(db, time.UTC),
		Hub:        hub,
		Tickets:    tickets,
		Recognizer: recognition.NewRecognizer(upstream, db),
		Faces:      faces,
		Relay:      relayCfg,
	})

	env := &testEnv{t: t, db: db, hub: hub, upstream: upstream, faces: faces, service: service}

	var authMw *auth.Middleware
	var authzMw *authz.Middleware
	if cfg.authEnabled {
		env.jwt, err = auth.NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret})
		if err != nil {
			t.Fatalf("NewJWTManager() error = %v", err)
		}
		enforcer, err := authz.NewEnforcer("")
		if err != nil {
			t.Fatalf("NewEnforcer() error = %v", err)
		}
		authMw = auth.NewMiddleware(env.jwt)
		authzMw = authz.NewMiddleware(enforcer)
	}

	chiCfg := DefaultChiMiddlewareConfig()
	chiCfg.CORSAllowedOrigins = []string{"https://rollcall.test"}
	chiCfg.RateLimitDisabled = cfg.uploadLimit == 0
	if cfg.uploadLimit > 0 {
		chiCfg.UploadRateLimitRequests = cfg.uploadLimit
		chiCfg.RateLimitRequests = 1000
	}

	env.srv = httptest.NewServer(NewRouter(h, authMw, authzMw, NewChiMiddleware(chiCfg)).SetupChi())
	t.Cleanup(env.srv.Close)
	return env
}

// token signs a token for the given user and role.
func (e *testEnv) token(userID, role string) string {
	e.t.Helper()
	tok, err := e.jwt.GenerateToken(userID, "user "+userID, role)
	if err != nil {
		e.t.Fatalf("GenerateToken() error = %v", err)
	}
	return tok
}

// envelope mirrors APIResponse with a raw payload.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

// request sends body (marshalled unless nil or a string) and returns the raw response.
func (e *testEnv) request(method, path string, body interface{}, token string) *http.Response {
	e.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		e.t.Fatalf("NewRequest: %v", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	e.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// call sends a request and decodes the envelope.
func (e *testEnv) call(method, path string, body interface{}, token string) (int, envelope) {
	e.t.Helper()
	resp := e.request(method, path, body, token)
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		e.t.Fatalf("%s %s: decode envelope: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func expectError(t *testing.T, status int, env envelope, wantStatus int, wantCode, wantMessage string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status = %d, want %d (error %+v)", status, wantStatus, env.Error)
	}
	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got %+v", env)
	}
	if wantCode != "" && env.Error.Code != wantCode {
		t.Errorf("error code = %q, want %q", env.Error.Code, wantCode)
	}
	if wantMessage != "" && env.Error.Message != wantMessage {
		t.Errorf("error message = %q, want %q", env.Error.Message, wantMessage)
	}
}

// seedClass creates a teacher, a class and n enrolled students.
func (e *testEnv) seedClass(code string, n int) (*models.Class, []models.User) {
	e.t.Helper()
	ctx := context.Background()

	teacher := &models.User{Name: "Teacher " + code, Email: "teacher-" + code + "@school.test", Role: models.RoleTeacher}
	if err := e.db.CreateUser(ctx, teacher); err != nil {
		e.t.Fatalf("CreateUser(teacher) error = %v", err)
	}
	class := &models.Class{SubjectName: "Subject " + code, SubjectCode: code, TeacherID: teacher.ID}
	if err := e.db.CreateClass(ctx, class); err != nil {
		e.t.Fatalf("CreateClass() error = %v", err)
	}

	students := make([]models.User, n)
	for i := range students {
		students[i] = models.User{Name: fmt.Sprintf("Student %d", i+1), Email: fmt.Sprintf("s%d-%s@school.test", i+1, code)}
		if err := e.db.CreateUser(ctx, &students[i]); err != nil {
			e.t.Fatalf("CreateUser(student) error = %v", err)
		}
		if err := e.db.EnrollStudent(ctx, class.ID, students[i].ID); err != nil {
			e.t.Fatalf("EnrollStudent() error = %v", err)
		}
	}
	return class, students
}

// wsURL is the channel endpoint of the test server.
func (e *testEnv) wsURL() string {
	return "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/api/v1/ws"
}

type wireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// registerOperator opens a channel and registers id on it.
func (e *testEnv) registerOperator(id string) *websocket.Conn {
	e.t.Helper()
	ws, resp, err := websocket.DefaultDialer.Dial(e.wsURL(), nil)
	if err != nil {
		e.t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	e.t.Cleanup(func() { _ = ws.Close() })

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"register_session","payload":"`+id+`"}`)); err != nil {
		e.t.Fatalf("write: %v", err)
	}
	if msg := readMessage(e.t, ws); msg.Type != relay.TypeRegistered {
		e.t.Fatalf("expected registration ack, got %+v", msg)
	}
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) wireMessage {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}
