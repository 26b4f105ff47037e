package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/roastme/internal/auth"
	"github.com/edgard/roastme/internal/config"
	"github.com/edgard/roastme/internal/corpus"
	"github.com/edgard/roastme/internal/database"
	"github.com/edgard/roastme/internal/llm"
	"github.com/edgard/roastme/internal/roast"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubBackend struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
}

func (s *stubBackend) Generate(_ context.Context, a llm.Attempt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, a.Prompt)
	return s.text, s.err
}

func (s *stubBackend) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []*database.Feedback
	err error
}

func (n *recordingNotifier) NotifyFeedback(_ context.Context, fb *database.Feedback) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, fb)
	return n.err
}

type testEnv struct {
	router   *gin.Engine
	store    database.Store
	tokens   *auth.TokenManager
	backend  *stubBackend
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, creds bool) *testEnv {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	store := database.NewStore(db, nil)

	tokens := auth.NewTokenManager("0123456789abcdef-test", "roastme-test", time.Hour)
	backend := &stubBackend{text: "{name} is proof that autocorrect has feelings."}

	var credentials []roast.Credential
	if creds {
		credentials = []roast.Credential{{Name: "primary", Model: "test-model", Backend: backend}}
	}
	svc := roast.NewService(
		roast.Config{Timeout: time.Second, MinAcceptLength: roast.DefaultMinAcceptLength},
		credentials,
		auth.NewResolver(tokens, store, nil),
		corpus.New(store, 0, nil),
		nil,
	)

	cfg := &config.Config{}
	cfg.Server.Port = 5000
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.Database.Path = "handlers.db"
	cfg.Auth.JWTSecret = "0123456789abcdef-test"
	cfg.Generation.Model = "test-model"
	cfg.Generation.Timeout = time.Second

	notifier := &recordingNotifier{}
	router := NewRouter(HandlerDeps{
		Config:   cfg,
		Store:    store,
		Roaster:  svc,
		Tokens:   tokens,
		Notifier: notifier,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("roastme_roasts_total 1\n"))
		}),
		Version: "test",
	})

	return &testEnv{router: router, store: store, tokens: tokens, backend: backend, notifier: notifier}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// register creates a user through the API and returns its token and id.
func (e *testEnv) register(t *testing.T, email string) (string, string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Tester", "email": email, "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[struct {
		Token string        `json:"token"`
		User  database.User `json:"user"`
	}](t, w)
	return resp.Token, resp.User.ID
}

func TestRoastAnonymous(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, true)

	w := e.do(t, http.MethodPost, "/api/roast", "", gin.H{"name": "Sam", "mode": "friendly"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[roastResponse](t, w)
	assert.Equal(t, "Sam is proof that autocorrect has feelings.", resp.Roast)
	assert.Equal(t, "generated-primary", resp.Source)
	assert.Equal(t, "unauthenticated", resp.RoastType)
	assert.Equal(t, "Friendly", resp.Category)
	assert.False(t, resp.Personalized)
	assert.Empty(t, resp.UserID)
}

func TestRoastNeverFails(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, true)
	e.backend.err = &llm.HTTPError{Status: 500, Body: "upstream down"}

	for _, body := range []any{nil, "{not json", gin.H{"name": ""}, gin.H{"name": "Lee", "mode": "nope"}} {
		w := e.do(t, http.MethodPost, "/api/roast", "", body)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[roastResponse](t, w)
		assert.NotEmpty(t, resp.Roast)
		assert.NotContains(t, resp.Roast, roast.Placeholder)
		assert.Equal(t, "local-fallback", resp.Source)
		assert.Equal(t, "Savage", resp.Category)
	}
}

func TestRoastUsesCorpusWithoutCredentials(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, false)
	require.NoError(t, e.store.AddRoast(context.Background(), &database.Roast{Text: "{name}, even your shadow avoids you."}))

	w := e.do(t, http.MethodPost, "/api/roast", "", gin.H{"name": "Lee", "mode": "Epic"})
	resp := decode[roastResponse](t, w)
	assert.Equal(t, "corpus", resp.Source)
	assert.Equal(t, "Lee, even your shadow avoids you.", resp.Roast)
	assert.Equal(t, "Epic", resp.Category)
}

func TestRoastPersonalized(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, true)
	token, userID := e.register(t, "owner@example.com")

	var traitIDs []string
	for _, name := range []string{"Bald", "Sarcastic"} {
		w := e.do(t, http.MethodPost, "/api/traits", token, gin.H{"name": name, "category": "personality"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		traitIDs = append(traitIDs, decode[database.Trait](t, w).ID)
	}

	w := e.do(t, http.MethodPost, "/api/persons", token, gin.H{
		"name": "Sam", "skinColor": "pale", "animalType": "owl", "traits": traitIDs,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	person := decode[database.Person](t, w)

	w = e.do(t, http.MethodPost, "/api/roast", token, gin.H{"name": "sam"})
	resp := decode[roastResponse](t, w)
	assert.Equal(t, "personalized", resp.RoastType)
	assert.True(t, resp.Personalized)
	assert.Equal(t, userID, resp.UserID)
	assert.Equal(t, person.ID, resp.PersonID)

	prompt := e.backend.lastPrompt()
	assert.Contains(t, prompt, "[PERSONALIZATION CONTEXT]")
	assert.Contains(t, prompt, "Bald, Sarcastic")

	w = e.do(t, http.MethodPost, "/api/roast", token, gin.H{"name": "Nobody"})
	resp = decode[roastResponse](t, w)
	assert.Equal(t, "authenticated-generic", resp.RoastType)
	assert.NotContains(t, e.backend.lastPrompt(), "[PERSONALIZATION CONTEXT]")

	w = e.do(t, http.MethodPost, "/api/roast", "garbage-token", gin.H{"name": "Sam"})
	resp = decode[roastResponse](t, w)
	assert.Equal(t, "unauthenticated", resp.RoastType)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCategories(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, false)

	w := e.do(t, http.MethodGet, "/api/roast/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Success    bool     `json:"success"`
		Categories []string `json:"categories"`
	}](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, roast.ToneNames(), resp.Categories)
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, false)
	token, userID := e.register(t, "Flow@Example.com")

	w := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Again", "email": "flow@example.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "flow@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "missing@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "FLOW@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	w = e.do(t, http.MethodGet, "/api/auth/user", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode[database.User](t, w)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "flow@example.com", user.Email)

	w = e.do(t, http.MethodGet, "/api/auth/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.do(t, http.MethodGet, "/api/auth/user", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, false)

	w := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "A", "email": "nope", "password": "123"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[struct {
		Success bool         `json:"success"`
		Errors  []fieldError `json:"errors"`
	}](t, w)
	assert.False(t, resp.Success)
	fields := make([]string, 0, len(resp.Errors))
	for _, fe := range resp.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"name", "email", "password"}, fields)
}

func TestTraits(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, false)
	token, _ := e.register(t, "traits@example.com")

	w := e.do(t, http.MethodPost, "/api/traits", "", gin.H{"name": "Loud", "category": "behavior"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/traits", token, gin.H{"name": "Loud", "category": "nonsense"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, tr := range []gin.H{
		{"name": "Loud", "category": "behavior"},
		{"name": "Bald", "category": "Body Structure"},
	} {
		w = e.do(t, http.MethodPost, "/api/traits", token, tr)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodGet, "/api/traits", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	traits := decode[[]database.Trait](t, w)
	require.Len(t, traits, 2)
	assert.Equal(t, "Bald", traits[0].Name)
	assert.Equal(t, "Loud", traits[1].Name)
}

func TestPersonsCRUD(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, false)
	token, _ := e.register(t, "crud@example.com")
	other, _ := e.register(t, "other@example.com")

	w := e.do(t, http.MethodPost, "/api/traits", token, gin.H{"name": "Nerdy", "category": "style"})
	require.Equal(t, http.StatusCreated, w.Code)
	traitID := decode[database.Trait](t, w).ID

	w = e.do(t, http.MethodPost, "/api/persons", token, gin.H{"name": "Zoe", "traits": []string{"missing"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/persons", token, gin.H{"skinColor": "tan"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/persons", token, gin.H{"name": "Zoe", "animalType": "cat", "traits": []string{traitID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	zoe := decode[database.Person](t, w)
	require.Len(t, zoe.Traits, 1)

	w = e.do(t, http.MethodPost, "/api/persons", token, gin.H{"name": "Adam"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodGet, "/api/persons", token, nil)
	persons := decode[[]database.Person](t, w)
	require.Len(t, persons, 2)
	assert.Equal(t, "Adam", persons[0].Name)

	w = e.do(t, http.MethodGet, "/api/persons/"+zoe.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "persons are scoped to their owner")

	w = e.do(t, http.MethodPut, "/api/persons/"+zoe.ID, token, gin.H{"name": "Zoe B", "traits": []string{}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[database.Person](t, w)
	assert.Equal(t, "Zoe B", updated.Name)
	assert.Empty(t, updated.Traits)

	w = e.do(t, http.MethodPut, "/api/persons/"+zoe.ID, other, gin.H{"name": "Hijack"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodDelete, "/api/persons/"+zoe.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Person deleted successfully")

	w = e.do(t, http.MethodGet, "/api/persons/"+zoe.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodDelete, "/api/persons/"+zoe.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeedback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    any
		status  int
		message string
	}{
		{"missing field", gin.H{"name": "Jo", "email": "jo@example.com"}, http.StatusBadRequest, "All fields are required"},
		{"blank after trim", gin.H{"name": "  ", "email": "jo@example.com", "message": "hi"}, http.StatusBadRequest, "All fields are required"},
		{"bad email", gin.H{"name": "Jo", "email": "jo@example", "message": "hi"}, http.StatusBadRequest, "Please provide a valid email address"},
		{"long name", gin.H{"name": strings.Repeat("n", 101), "email": "jo@example.com", "message": "hi"}, http.StatusBadRequest, "Name cannot be more than 100 characters"},
		{"long message", gin.H{"name": "Jo", "email": "jo@example.com", "message": strings.Repeat("m", 1001)}, http.StatusBadRequest, "Message cannot be more than 1000 characters"},
		{"malformed", "{", http.StatusBadRequest, "All fields are required"},
		{"ok", gin.H{"name": " Jo ", "email": "jo@example.com", "message": " Great app "}, http.StatusCreated, "Thank you for your feedback! We'll get back to you soon."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newTestEnv(t, false)

			w := e.do(t, http.MethodPost, "/api/feedback", "", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			resp := decode[struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
				Data    struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"data"`
			}](t, w)
			assert.Equal(t, tt.message, resp.Message)
			assert.Equal(t, tt.status == http.StatusCreated, resp.Success)

			if tt.status == http.StatusCreated {
				assert.Equal(t, "Jo", resp.Data.Name)
				assert.NotEmpty(t, resp.Data.ID)
				require.Len(t, e.notifier.got, 1)
				assert.Equal(t, "Great app", e.notifier.got[0].Message)
			} else {
				assert.Empty(t, e.notifier.got)
			}
		})
	}
}

func TestFeedbackNotifierFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, false)
	e.notifier.err = errors.New("telegram down")

	w := e.do(t, http.MethodPost, "/api/feedback", "", gin.H{"name": "Jo", "email": "jo@example.com", "message": "hi"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestFormSubmissions(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, false)
	token, userID := e.register(t, "form@example.com")

	w := e.do(t, http.MethodPost, "/api/form/submit", "", gin.H{"name": "Joe", "email": "j@example.com", "message": "hi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/form/submit", token, gin.H{"name": "Jo", "email": "j@example.com", "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "name shorter than 3")

	for _, msg := range []string{"first", "second"} {
		w = e.do(t, http.MethodPost, "/api/form/submit", token, gin.H{"name": "Joe", "email": "j@example.com", "message": msg})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[struct {
			Msg        string                  `json:"msg"`
			Submission database.FormSubmission `json:"submission"`
		}](t, w)
		assert.Equal(t, "Form submitted successfully", resp.Msg)
		assert.Equal(t, userID, resp.Submission.SubmittedBy)
		assert.Equal(t, database.SubmissionPending, resp.Submission.Status)
	}

	w = e.do(t, http.MethodGet, "/api/form/submissions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	subs := decode[[]database.FormSubmission](t, w)
	assert.Len(t, subs, 2)
}

func TestDiagnostics(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, true)

	for _, path := range []string{"/api/health", "/api/test/health"} {
		w := e.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[map[string]any](t, w)
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "test", resp["version"])
	}

	w := e.do(t, http.MethodGet, "/api/test/env", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "0123456789abcdef-test")
	assert.Contains(t, w.Body.String(), `"database":"reachable"`)

	e.backend.text = "John, you're the human version of a typo."
	w = e.do(t, http.MethodGet, "/api/test/generation", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "human version of a typo")

	e.backend.err = &llm.HTTPError{Status: 401, Body: "bad key"}
	w = e.do(t, http.MethodGet, "/api/test/generation", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = e.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "roastme_roasts_total")

	w = e.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProbeWithoutCredentials(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, false)
	w := e.do(t, http.MethodGet, "/api/test/generation", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestBlankFieldsFailValidationAfterTrim(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, false)
	token, _ := e.register(t, "trim@example.com")

	tests := []struct {
		name  string
		path  string
		body  gin.H
		field string
	}{
		{"person name of spaces", "/api/persons", gin.H{"name": "   "}, "name"},
		{"form name short once trimmed", "/api/form/submit", gin.H{"name": " ab ", "email": "j@example.com", "message": "hello"}, "name"},
		{"form message of spaces", "/api/form/submit", gin.H{"name": "Joe", "email": "j@example.com", "message": "   "}, "message"},
		{"trait name of spaces", "/api/traits", gin.H{"name": "  ", "category": "other"}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, tt.path, token, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			resp := decode[struct {
				Success bool `json:"success"`
				Errors  []struct {
					Field string `json:"field"`
				} `json:"errors"`
			}](t, w)
			assert.False(t, resp.Success)
			require.NotEmpty(t, resp.Errors)
			assert.Equal(t, tt.field, resp.Errors[0].Field)
		})
	}

	w := e.do(t, http.MethodPost, "/api/persons", token, gin.H{"name": "  Sam  "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Sam", decode[database.Person](t, w).Name)

	w = e.do(t, http.MethodGet, "/api/persons", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]database.Person](t, w), 1)
}
