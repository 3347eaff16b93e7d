// Package testutils provides shared fixtures for package tests.
package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pixeleasel/easeld/internal/store"
	"github.com/pixeleasel/easeld/internal/task"
)

// OpenTempStore opens a store backed by a fresh SQLite file under the test's
// temp directory.
func OpenTempStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "batch_tasks.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// SampleTask builds a fully populated batch task with nested items, results,
// and debug logs, created at the given instant.
func SampleTask(id string, createdAt time.Time) task.BatchTask {
	created := createdAt.UTC().Format(time.RFC3339)
	started := createdAt.Add(time.Second).UTC().Format(time.RFC3339)
	count := 4
	durationMS := 1500

	return task.BatchTask{
		ID:             id,
		Name:           "batch " + id,
		Type:           "text-to-image",
		Status:         task.StatusRunning,
		Progress:       50,
		TotalItems:     2,
		CompletedItems: 1,
		FailedItems:    0,
		CreatedAt:      created,
		StartedAt:      &started,
		Config: task.BatchTaskConfig{
			Model:           "sd-xl",
			ModelType:       "diffusion",
			ConcurrentLimit: 2,
			RetryAttempts:   3,
			RetryDelay:      1000,
			AutoDownload:    true,
			AspectRatio:     "1:1",
			Size:            "1024x1024",
			Quality:         "high",
			GenerateCount:   &count,
		},
		Items: []task.TaskItem{
			{
				ID:           id + "-item-1",
				Prompt:       "a lighthouse at dusk",
				Priority:     1,
				Status:       task.StatusCompleted,
				AttemptCount: 1,
				CreatedAt:    created,
				DebugLogs: []task.DebugLog{
					{
						ID:         id + "-log-1",
						TaskItemID: id + "-item-1",
						Timestamp:  created,
						Type:       "api_request",
						Data:       json.RawMessage(`{"endpoint":"/generate","status":200}`),
						Duration:   &durationMS,
					},
				},
			},
			{
				ID:           id + "-item-2",
				Prompt:       "a lighthouse at dawn",
				Priority:     2,
				Status:       task.StatusPending,
				AttemptCount: 0,
				CreatedAt:    created,
			},
		},
		Results: []task.TaskResult{
			{
				ID:         id + "-result-1",
				TaskItemID: id + "-item-1",
				ImageURL:   "https://images.example.com/" + id + ".png",
				Downloaded: false,
				CreatedAt:  created,
				DurationMS: &durationMS,
			},
		},
	}
}

// ServeBytes starts a server that responds to every request with data and a
// declared content length.
func ServeBytes(t *testing.T, data []byte) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

// FlakyServer starts a server that answers its first failures requests with
// HTTP 500, then serves data.
func FlakyServer(t *testing.T, failures int, data []byte) *httptest.Server {
	t.Helper()

	var served atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if int(served.Add(1)) <= failures {
			http.Error(w, "transient failure", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}
