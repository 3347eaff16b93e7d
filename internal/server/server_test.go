package server_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixeleasel/easeld/internal/downloader"
	"github.com/pixeleasel/easeld/internal/progress"
	"github.com/pixeleasel/easeld/internal/server"
	"github.com/pixeleasel/easeld/internal/task"
	"github.com/pixeleasel/easeld/internal/testutils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type env struct {
	api *httptest.Server
	hub *progress.Broadcaster
	dir string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st := testutils.OpenTempStore(t)
	hub := progress.NewBroadcaster()
	dir := t.TempDir()

	srv := server.New(st, hub, server.Options{
		DownloadDir: dir,
		// Keep retry waits short so failure paths stay fast.
		Policy: downloader.Policy{MaxAttempts: 3, Backoff: 10 * time.Millisecond},
	})

	api := httptest.NewServer(srv.Router())
	t.Cleanup(api.Close)

	return &env{api: api, hub: hub, dir: dir}
}

func (e *env) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.api.URL+path, reader)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestSaveAndGetBatchTasks(t *testing.T) {
	e := newEnv(t)
	want := testutils.SampleTask("t1", time.Now())

	resp, _ := e.do(t, http.MethodPut, "/tasks", want)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := e.do(t, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []task.BatchTask
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 1)
	assert.Equal(t, want, got[0])
}

func TestSaveBatchTaskRequiresID(t *testing.T) {
	e := newEnv(t)

	tk := testutils.SampleTask("", time.Now())
	resp, body := e.do(t, http.MethodPut, "/tasks", tk)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "error")
}

func TestDeleteBatchTaskMissingIDSucceeds(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPut, "/tasks", testutils.SampleTask("t1", time.Now()))

	resp, _ := e.do(t, http.MethodDelete, "/tasks/no-such-id", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body := e.do(t, http.MethodGet, "/tasks/count", nil)
	assert.JSONEq(t, `{"count":1}`, string(body))
}

func TestClearBatchTasks(t *testing.T) {
	e := newEnv(t)
	for i, id := range []string{"a", "b"} {
		e.do(t, http.MethodPut, "/tasks", testutils.SampleTask(id, time.Now().Add(time.Duration(i)*time.Second)))
	}

	resp, _ := e.do(t, http.MethodDelete, "/tasks", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body := e.do(t, http.MethodGet, "/tasks/count", nil)
	assert.JSONEq(t, `{"count":0}`, string(body))
}

func TestCleanupOldTasksDefaultsAndExplicit(t *testing.T) {
	e := newEnv(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		e.do(t, http.MethodPut, "/tasks", testutils.SampleTask(id, base.Add(time.Duration(i)*time.Minute)))
	}

	// No body: default retention keeps everything at this scale.
	resp, body := e.do(t, http.MethodPost, "/tasks/cleanup", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"removed":0}`, string(body))

	resp, body = e.do(t, http.MethodPost, "/tasks/cleanup", map[string]int{"maxToKeep": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"removed":3}`, string(body))

	_, body = e.do(t, http.MethodGet, "/tasks/count", nil)
	assert.JSONEq(t, `{"count":2}`, string(body))
}

func TestDownloadFile(t *testing.T) {
	e := newEnv(t)
	payload := []byte("generated artifact bytes")
	origin := testutils.ServeBytes(t, payload)

	resp, body := e.do(t, http.MethodPost, "/download", map[string]string{
		"url":      origin.URL,
		"filename": "artifact.png",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, filepath.Join(e.dir, "artifact.png"), result.Path)

	written, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, written)
}

func TestDownloadFileRetriesThenFails(t *testing.T) {
	e := newEnv(t)
	origin := testutils.FlakyServer(t, 100, nil) // never recovers

	resp, body := e.do(t, http.MethodPost, "/download", map[string]string{
		"url":      origin.URL,
		"filename": "artifact.png",
	})

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(body), "500")
}

func TestDownloadFileRecoversFromTransientErrors(t *testing.T) {
	e := newEnv(t)
	origin := testutils.FlakyServer(t, 2, []byte("eventually"))

	resp, body := e.do(t, http.MethodPost, "/download", map[string]string{
		"url":      origin.URL,
		"filename": "artifact.bin",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	written, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, "eventually", string(written))
}

func TestDownloadPublishesProgress(t *testing.T) {
	e := newEnv(t)
	payload := make([]byte, 150*1024)
	origin := testutils.ServeBytes(t, payload)

	id, events := e.hub.Subscribe()
	defer e.hub.Unsubscribe(id)

	resp, _ := e.do(t, http.MethodPost, "/download", map[string]string{
		"url":      origin.URL,
		"filename": "big.bin",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var last progress.Event
	var seen int
	for {
		select {
		case ev := <-events:
			seen++
			last = ev
			if ev.Downloaded == int64(len(payload)) {
				if seen < 2 {
					t.Errorf("expected one event per chunk, got %d", seen)
				}
				if last.Total != int64(len(payload)) {
					t.Errorf("Total = %d, want %d", last.Total, len(payload))
				}
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("final progress event not observed (last %+v)", last)
		}
	}
}

func TestGetDownloadDir(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, http.MethodGet, "/download-dir", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, fmt.Sprintf(`{"path":%q}`, e.dir), string(body))
}

func TestGetMachineID(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, http.MethodGet, "/machine-id", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		MachineID string `json:"machineId"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{16}$`), result.MachineID)
}

func TestReadLocalFile(t *testing.T) {
	e := newEnv(t)

	path := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	resp, body := e.do(t, http.MethodPost, "/local-file", map[string]string{"path": path})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		DataURI string `json:"dataUri"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.True(t, strings.HasPrefix(result.DataURI, "data:image/png;base64,"))
}

func TestReadLocalFileMissing(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, http.MethodPost, "/local-file", map[string]string{"path": "/no/such/file.png"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "/no/such/file.png")
}

func TestEventsStream(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.api.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	// Handshake comment arrives first.
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, ": connected"))

	// Wait for the subscriber to register, then publish through the hub.
	require.Eventually(t, func() bool { return e.hub.SubscriberCount() > 0 },
		time.Second, 10*time.Millisecond)
	e.hub.Publish(progress.Event{URL: "http://x/y.png", Path: "/tmp/y.png", Downloaded: 10, Total: 20, BytesPerSec: 5})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			var ev progress.Event
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &ev))
			assert.Equal(t, int64(10), ev.Downloaded)
			assert.Equal(t, int64(20), ev.Total)
			return
		}
	}
	t.Fatal("no data frame received")
}
