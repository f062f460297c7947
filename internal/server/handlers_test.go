package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-voice-agent/internal/auth"
	"interview-voice-agent/internal/config"
	"interview-voice-agent/internal/interviewer"
	"interview-voice-agent/internal/storage"
)

type fakeGenerator struct {
	got interviewer.GenerateRequest
	err error
}

func (g *fakeGenerator) Generate(_ context.Context, req interviewer.GenerateRequest) (*storage.InterviewRecord, error) {
	g.got = req
	if g.err != nil {
		return nil, g.err
	}
	return &storage.InterviewRecord{
		ID:        "gen-1",
		UserID:    req.UserID,
		Role:      req.Role,
		Type:      req.Type,
		Level:     req.Level,
		TechStack: req.TechStack,
		Questions: []string{"Tell me about yourself"},
		Finalized: true,
	}, nil
}

type fakeAuth struct {
	token string
}

func (a *fakeAuth) SignUp(_ context.Context, name, email, _ string) auth.Result {
	return auth.Result{Success: true, Data: &auth.Account{ID: "user-1", Email: email, Profile: &storage.User{ID: "user-1", Name: name, Email: email}}}
}

func (a *fakeAuth) SignIn(_ context.Context, email, password string) auth.Result {
	if password != "secret" {
		return auth.Result{Error: "Invalid email or password."}
	}
	return auth.Result{Success: true, Data: &auth.Account{ID: "user-1", Email: email, AccessToken: "tok"}}
}

func (a *fakeAuth) CurrentUser(_ context.Context, token string) auth.Result {
	a.token = token
	if token != "tok" {
		return auth.Result{Error: "Not signed in"}
	}
	return auth.Result{Success: true, Data: &auth.Account{ID: "user-1"}}
}

type testEnv struct {
	server     *Server
	url        string
	interviews *storage.Service
	generator  *fakeGenerator
	auth       *fakeAuth
}

func newTestEnv(t *testing.T, newProvider func() VoiceProvider) *testEnv {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		interviews: storage.NewService(store, zerolog.Nop()),
		generator:  &fakeGenerator{},
		auth:       &fakeAuth{},
	}
	env.server = New(Deps{
		App: &config.AppConfig{
			Voice:  config.VoiceConfig{WorkflowID: "wf-generate"},
			Server: config.ServerConfig{Port: 0, ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, RateLimit: 1000},
			Call:   config.CallConfig{RedirectDelay: 20 * time.Millisecond, RedirectPath: "/HomePage"},
		},
		Catalogue: &config.Config{
			Interviewer: config.Interviewer{ID: "interviewer", Name: "Interviewer", FirstMessage: "Hello"},
			Samples: []config.Sample{{
				ID:        "sample-frontend",
				Type:      "Technical",
				Role:      "Frontend Developer",
				Level:     "Junior",
				TechStack: []string{"React"},
				Questions: []string{"What is the virtual DOM?"},
			}},
		},
		Interviews:  env.interviews,
		Generator:   env.generator,
		Auth:        env.auth,
		NewProvider: newProvider,
		Logger:      zerolog.Nop(),
	})

	ts := httptest.NewServer(env.server.Routes())
	t.Cleanup(ts.Close)
	env.url = ts.URL
	return env
}

func doJSON(t *testing.T, method, url, body string, header http.Header) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	status, body := doJSON(t, http.MethodGet, env.url+"/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestGenerateInfo(t *testing.T) {
	env := newTestEnv(t, nil)
	status, body := doJSON(t, http.MethodGet, env.url+"/api/vapi/generate", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Thank You", body["data"])
}

func TestGenerateAcceptsStringFields(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := doJSON(t, http.MethodPost, env.url+"/api/vapi/generate",
		`{"type":"Technical","role":"Backend","level":"Senior","techstack":"Go, Postgres","amount":"5","userID":"u1"}`, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Interview created successfully", body["data"])

	assert.Equal(t, []string{"Go", "Postgres"}, env.generator.got.TechStack)
	assert.Equal(t, 5, env.generator.got.Amount)
	assert.Equal(t, "u1", env.generator.got.UserID)

	interview, ok := body["interview"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gen-1", interview["id"])
}

func TestGenerateErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := doJSON(t, http.MethodPost, env.url+"/api/vapi/generate", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])

	env.generator.err = fmt.Errorf("%w: missing role", interviewer.ErrInvalidRequest)
	status, body = doJSON(t, http.MethodPost, env.url+"/api/vapi/generate", `{"type":"Technical"}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["data"], "missing role")

	env.generator.err = errors.New("llm down")
	status, body = doJSON(t, http.MethodPost, env.url+"/api/vapi/generate", `{"type":"Technical"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal Server Error", body["data"])
}

func TestSaveInterview(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := doJSON(t, http.MethodPost, env.url+"/api/save-interview",
		`{"role":"Backend","type":"Technical","level":"Senior","amount":5,"userId":"u1","techstack":["Go"]}`, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Interview data saved successfully", body["message"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "5", data["amount"])
	assert.Equal(t, "u1", data["userid"])

	records, err := env.interviews.ListInterviews(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSaveInterviewMissingFields(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := doJSON(t, http.MethodPost, env.url+"/api/save-interview", `{"role":"Backend"}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing required fields: role, type, level, userId", body["error"])
}

func TestListInterviewsFallsBackToSamples(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := doJSON(t, http.MethodGet, env.url+"/api/interviews?userId=nobody", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["samples"])
	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	assert.Equal(t, "sample-frontend", data[0].(map[string]any)["id"])

	_, err := env.interviews.SaveInterview(context.Background(), storage.SaveRequest{
		Role: "Backend", Type: "Technical", Level: "Senior", UserID: "u1",
	})
	require.NoError(t, err)

	_, body = doJSON(t, http.MethodGet, env.url+"/api/interviews?userId=u1", "", nil)
	assert.Equal(t, false, body["samples"])
	assert.Len(t, body["data"], 1)
}

func TestGetInterview(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := env.interviews.SaveInterview(context.Background(), storage.SaveRequest{
		Role: "Backend", Type: "Technical", Level: "Senior", UserID: "u1",
	})
	require.NoError(t, err)

	status, body := doJSON(t, http.MethodGet, env.url+"/api/interviews/"+res.Data.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, res.Data.ID, body["data"].(map[string]any)["id"])

	status, body = doJSON(t, http.MethodGet, env.url+"/api/interviews/sample-frontend", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Frontend Developer", body["data"].(map[string]any)["role"])

	status, _ = doJSON(t, http.MethodGet, env.url+"/api/interviews/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAuthRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := doJSON(t, http.MethodPost, env.url+"/api/auth/signup",
		`{"name":"Ada","email":"ada@example.com","password":"secret"}`, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = doJSON(t, http.MethodPost, env.url+"/api/auth/signin",
		`{"email":"ada@example.com","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password.", body["error"])

	status, _ = doJSON(t, http.MethodPost, env.url+"/api/auth/signin", `{"email":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, http.MethodGet, env.url+"/api/auth/user", "",
		http.Header{"Authorization": []string{"Bearer tok"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "tok", env.auth.token)
}

func TestRateLimitRejectsBurst(t *testing.T) {
	handler := rateLimit(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestRequestTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, requestTimeout(config.ServerConfig{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second}))
	assert.Equal(t, 60*time.Second, requestTimeout(config.ServerConfig{}))
}
