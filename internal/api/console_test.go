package api

import (
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-case-service/internal/modal"
)

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestConsoleQueueAndDetail(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createCase(t, completeBody())
	resp := ts.do(t, http.MethodPost, "/cases/"+c.ID+"/complete", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/ui?tab=queue&group=investigators", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, readBody(t, resp), "Investigate case "+c.CaseNumber)

	resp = ts.do(t, http.MethodGet, "/ui?tab=search&q="+c.CaseNumber, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "/ui/cases/"+c.ID)

	resp = ts.do(t, http.MethodGet, "/ui/cases/"+c.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, c.CaseNumber)
	assert.Contains(t, body, string(modal.ActionCaseCreated))
	assert.Contains(t, body, string(modal.OutcomeReportFiled))
}

func TestConsoleDecision(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createCase(t, completeBody())
	resp := ts.do(t, http.MethodPost, "/cases/"+c.ID+"/complete", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	form := url.Values{"outcome": {string(modal.OutcomeEscalated)}, "notes": {"needs review"}}
	resp, err := ts.srv.Client().PostForm(ts.srv.URL+"/ui/cases/"+c.ID+"/decision", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	form.Set("actor", "dave")
	resp2, err := ts.srv.Client().PostForm(ts.srv.URL+"/ui/cases/"+c.ID+"/decision", form)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	_, decided := ts.bridge.snapshot()
	require.Len(t, decided, 1)
	assert.Equal(t, modal.OutcomeEscalated, decided[0].Outcome)
	assert.Equal(t, "dave", decided[0].Decider)
}

func TestConsoleUnknownCase(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/ui/cases/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
