package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"dsbench/internal/config"
	"dsbench/internal/experiment"
	"dsbench/internal/llm"
	"dsbench/internal/runner"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testServer(t *testing.T, gen llm.Generator) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Workspace.Root = filepath.Join(t.TempDir(), "workspace")
	cfg.Workspace.Interpreter = "/bin/sh"
	cfg.Workspace.ExecTimeout = 30 * time.Second
	cfg.Logging.Dir = filepath.Join(t.TempDir(), "logs")
	return New(cfg, gen)
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, ExperimentResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/experiment", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp ExperimentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestStatus(t *testing.T) {
	s := testServer(t, llm.NewScripted("x"))
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"running"}`, rec.Body.String())
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestExperiment_Success(t *testing.T) {
	gen := llm.NewScripted("[Decision]: Say hello.", "```python\necho hello\n```\n")
	s := testServer(t, gen)

	rec, resp := post(t, s.Handler(), `{"problem":"greet"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, experiment.SuccessPrefix+"hello\n", resp.Results)
	assert.Equal(t, string(experiment.StatusSucceeded), resp.Outcome)
	assert.NotEmpty(t, resp.RunID)
	assert.Empty(t, resp.Error)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestExperiment_BadRequests(t *testing.T) {
	s := testServer(t, llm.NewScripted("x"))

	for name, body := range map[string]string{
		"malformed":     `{"problem":`,
		"empty problem": `{"problem":""}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec, resp := post(t, s.Handler(), body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "error", resp.Status)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestExperiment_RunError(t *testing.T) {
	s := testServer(t, llm.NewScripted("x"))
	s.run = func(context.Context, *config.Config, llm.Generator, runner.Request) (runner.Report, error) {
		return runner.Report{RunID: "r1"}, errors.New("disk full")
	}

	rec, resp := post(t, s.Handler(), `{"problem":"p"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "disk full", resp.Error)
	assert.Equal(t, "r1", resp.RunID)
}

func TestExperiment_Busy(t *testing.T) {
	s := testServer(t, llm.NewScripted("x"))
	started := make(chan struct{})
	release := make(chan struct{})
	s.run = func(ctx context.Context, _ *config.Config, _ llm.Generator, req runner.Request) (runner.Report, error) {
		close(started)
		<-release
		return runner.Report{RunID: "first", Status: experiment.StatusSucceeded}, nil
	}

	h := s.Handler()
	done := make(chan ExperimentResponse, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/experiment", strings.NewReader(`{"problem":"a"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		var resp ExperimentResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		done <- resp
	}()
	<-started

	rec, resp := post(t, h, `{"problem":"b"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "error", resp.Status)

	close(release)
	first := <-done
	assert.Equal(t, "first", first.RunID)
}

func TestCORSPreflight(t *testing.T) {
	s := testServer(t, llm.NewScripted("x"))
	req := httptest.NewRequest(http.MethodOptions, "/api/experiment", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := testServer(t, llm.NewScripted("x"))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/api/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
