package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seenRequest struct {
	Method string
	Path   string
	Query  string
	Actor  string
	Body   string
}

type fakeAPI struct {
	mu   sync.Mutex
	seen []seenRequest
	srv  *httptest.Server
}

func newFakeAPI(t *testing.T, status int, reply string) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.seen = append(f.seen, seenRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Actor:  r.Header.Get("X-Actor"),
			Body:   string(b),
		})
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) last(t *testing.T) seenRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.seen)
	return f.seen[len(f.seen)-1]
}

func run(t *testing.T, api *fakeAPI, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--api", api.srv.URL, "--actor", "root"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCommandsHitExpectedRoutes(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		method string
		path   string
		query  string
		body   map[string]any
	}{
		{"get by id", []string{"get", "c-1"}, http.MethodGet, "/cases/c-1", "", nil},
		{"get by number", []string{"get", "--number", "CASE-2026-0001"}, http.MethodGet, "/cases/by-number/CASE-2026-0001", "", nil},
		{"list by status", []string{"list", "--status", "DRAFT"}, http.MethodGet, "/cases", "status=DRAFT", nil},
		{"counts", []string{"counts"}, http.MethodGet, "/cases/counts", "", nil},
		{"case audit", []string{"audit", "c-1"}, http.MethodGet, "/cases/c-1/audit", "", nil},
		{"actor audit", []string{"audit", "--by", "alice"}, http.MethodGet, "/actors/alice/audit", "", nil},
		{"set status", []string{"set-status", "c-1", "REJECTED"}, http.MethodPut, "/cases/c-1/status", "", map[string]any{"status": "REJECTED"}},
		{"handoff", []string{"handoff", "c-1"}, http.MethodPost, "/cases/c-1/handoff", "", nil},
		{"reassign", []string{"reassign", "t-1", "--to", "dave"}, http.MethodPost, "/tasks/t-1/assign", "", map[string]any{"assignee": "dave"}},
		{"unassign", []string{"reassign", "t-1", "--unassign"}, http.MethodPost, "/tasks/t-1/assign", "", map[string]any{"assignee": nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, http.StatusOK, `{"id":"c-1"}`)
			out, err := run(t, api, tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, `"id": "c-1"`)

			got := api.last(t)
			assert.Equal(t, tt.method, got.Method)
			assert.Equal(t, tt.path, got.Path)
			assert.Equal(t, tt.query, got.Query)
			assert.Equal(t, "root", got.Actor)
			if tt.body != nil {
				var body map[string]any
				require.NoError(t, json.Unmarshal([]byte(got.Body), &body))
				assert.Equal(t, tt.body, body)
			}
		})
	}
}

func TestAPIErrorsAreReported(t *testing.T) {
	api := newFakeAPI(t, http.StatusConflict, `{"error":"only DRAFT cases can be edited","kind":"invalid_state"}`)
	_, err := run(t, api, "handoff", "c-1")
	require.Error(t, err)

	var ae *apiError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusConflict, ae.Status)
	assert.Equal(t, "invalid_state", ae.Kind)
	assert.Contains(t, err.Error(), "only DRAFT cases can be edited")
}

func TestArgumentChecks(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{}`)

	_, err := run(t, api, "reassign", "t-1")
	assert.Error(t, err)
	_, err = run(t, api, "reassign", "t-1", "--to", "dave", "--unassign")
	assert.Error(t, err)
	_, err = run(t, api, "audit", "c-1", "--by", "alice")
	assert.Error(t, err)
	_, err = run(t, api, "list", "--status", "DRAFT", "--created-by", "alice")
	assert.Error(t, err)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Empty(t, api.seen)
}

func TestActorIsRequired(t *testing.T) {
	t.Setenv("CASES_ACTOR", "")
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"counts"})
	assert.Error(t, root.Execute())
}
