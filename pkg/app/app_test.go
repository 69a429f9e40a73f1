package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pintest/pkg/app/config"
	"pintest/pkg/harness"
)

func newTestApp(t *testing.T, modify ...func(*config.Config)) *App {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Flag.Emulate = true
	cfg.Commands.Source = ""
	for _, m := range modify {
		m(cfg)
	}
	require.NoError(t, cfg.LoadConfig())

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.init())
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func do(t *testing.T, a *App, method, target, body string) (*http.Response, string) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	resp, err := a.web.Test(httptest.NewRequest(method, target, r), -1)
	require.NoError(t, err)

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestVersion(t *testing.T) {
	a := newTestApp(t)

	resp, body := do(t, a, http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"about":"pinmaster V1.0.10"`)
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)

	resp, body := do(t, a, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"Driver":"emulate"`)
	assert.Contains(t, body, `"Phase":"WaitButton"`)
}

func TestStartAndStatus(t *testing.T) {
	a := newTestApp(t)

	resp, _ := do(t, a, http.MethodPost, "/start", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	a.controller.Step()

	resp, body := do(t, a, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var s struct {
		Phase  string   `json:"phase"`
		RunID  string   `json:"run"`
		Runs   int      `json:"runs"`
		Events []string `json:"events"`
		Lines  []struct {
			Label string `json:"Label"`
		} `json:"lines"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &s))

	assert.Equal(t, harness.WaitAllHigh.String(), s.Phase)
	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, 1, s.Runs)
	assert.Len(t, s.Lines, 19)
	assert.Equal(t, "P1_07(VCC)", s.Lines[0].Label)
	assert.Contains(t, s.Events, "Master: START command received.")
	assert.Contains(t, s.Events, "Master: SENT RESET")
}

func TestCommand(t *testing.T) {
	a := newTestApp(t)

	resp, body := do(t, a, http.MethodPost, "/command", " dfu\n")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.JSONEq(t, `{"command":"FLASH"}`, body)

	resp, _ = do(t, a, http.MethodPost, "/command", "reboot")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, a, http.MethodPost, "/flash", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	a := newTestApp(t)

	resp, body := do(t, a, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "pintest_phase")
	assert.Contains(t, body, "pintest_edges_total 0")
}

func TestWebservicesCanBeDisabled(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.Webserver.Webservices["metrics"] = false
		c.Webserver.Webservices["start"] = false
	})

	resp, _ := do(t, a, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, a, http.MethodPost, "/start", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOpenCommands(t *testing.T) {
	r, err := openCommands("")
	assert.NoError(t, err)
	assert.Nil(t, r)

	r, err = openCommands("stdin")
	require.NoError(t, err)
	assert.NotNil(t, r)

	_, err = openCommands("/nonexistent/tty")
	assert.Error(t, err)
}

func TestShutdownOnWebServerError(t *testing.T) {
	a := newTestApp(t)
	a.urlParsed.Host = "127.0.0.1:-1"

	go a.runWebServer()

	select {
	case <-a.Shutdown():
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown not signalled")
	}
}

func TestNoShutdownAfterClose(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.Close())

	a.runController()

	select {
	case <-a.Shutdown():
		t.Fatal("shutdown signalled after close")
	default:
	}
}
