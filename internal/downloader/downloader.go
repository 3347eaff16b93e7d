package downloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/pixeleasel/easeld/internal/httpclient"
	"github.com/pixeleasel/easeld/internal/progress"
)

// DefaultChunkSize is the read/write buffer size for the streaming writer.
const DefaultChunkSize = 64 * 1024

// Options configures a download.
type Options struct {
	// Policy is the retry policy.
	// Default: DefaultPolicy()
	Policy Policy

	// ChunkSize is the streaming copy buffer size.
	// Default: 64 KiB
	ChunkSize int

	// Client executes the HTTP transfer for each attempt.
	// Default: httpclient.New(httpclient.DefaultOptions())
	Client *httpclient.Client

	// Sink receives one progress event per chunk written. Optional; events
	// are dropped when nil, and publishing never fails the transfer.
	Sink progress.Sink

	// Logger for attempt-level diagnostics. Optional.
	Logger *zap.Logger
}

// Download fetches url into dest, creating parent directories as needed, and
// returns the final path written.
//
// Transport errors and non-success statuses are retried per the policy, with
// the last error surfaced after the budget is exhausted. Local I/O errors
// and mid-stream read errors are terminal immediately: a partial file may be
// left at dest, and the next attempt or invocation truncates it.
func Download(ctx context.Context, url, dest string, opts Options) (string, error) {
	if opts.Policy.MaxAttempts <= 0 {
		opts.Policy = DefaultPolicy()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Client == nil {
		opts.Client = httpclient.New(httpclient.DefaultOptions())
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := attemptOnce(ctx, url, dest, opts)
		if err == nil {
			return dest, nil
		}
		lastErr = err

		outcome := classify(err)
		step := opts.Policy.Next(attempt, outcome)

		switch step.State {
		case StateFailed:
			if fe, ok := lastErr.(*fatalError); ok {
				return "", fe.err
			}
			return "", fmt.Errorf("download failed after %d attempts: %w", attempt, lastErr)
		case StateRetrying:
			opts.Logger.Warn("download attempt failed, retrying",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", step.Delay),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(step.Delay):
			}
		}
	}
}

// fatalError marks errors that must not re-enter the retry loop.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// classify maps an attempt error to a retry outcome. Everything coming back
// from the transfer client is retryable; writer-side errors arrive wrapped
// as fatal.
func classify(err error) Outcome {
	if _, ok := err.(*fatalError); ok {
		return OutcomeFatal
	}
	return OutcomeRetryable
}

// attemptOnce performs one full transfer-and-write attempt.
func attemptOnce(ctx context.Context, url, dest string, opts Options) error {
	resp, err := opts.Client.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := writeStream(url, dest, resp, opts); err != nil {
		return &fatalError{err: err}
	}
	return nil
}

// writeStream copies the response body to dest in fixed-size chunks,
// publishing a progress event after each chunk.
func writeStream(url, dest string, resp *httpclient.Response, opts Options) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	var downloaded int64
	buf := make([]byte, opts.ChunkSize)
	start := time.Now()

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				return fmt.Errorf("write file: %w", err)
			}
			downloaded += int64(n)
			publish(opts.Sink, progress.Event{
				URL:         url,
				Path:        dest,
				Downloaded:  downloaded,
				Total:       resp.ContentLength,
				BytesPerSec: speed(downloaded, time.Since(start)),
			})
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read stream: %w", readErr)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// publish delivers an event, swallowing a missing sink and anything a
// misbehaving sink might do. Progress is best-effort and never fails the
// transfer.
func publish(sink progress.Sink, ev progress.Event) {
	if sink == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	sink.Publish(ev)
}

// speed is the cumulative throughput in bytes per second, 0 when no time has
// elapsed.
func speed(downloaded int64, elapsed time.Duration) int64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return int64(float64(downloaded) / secs)
}
