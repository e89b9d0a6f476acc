package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/runcenter/pkg/client"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) client.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	c, err := client.NewClient(log, client.Config{
		BaseURL: srv.URL + "/api",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	return c
}

func TestNewClient_DefaultsAPIPath(t *testing.T) {
	var gotPath atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true,"data":{}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := client.NewClient(logrus.New(), client.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/api/health", gotPath.Load())

	_, err = client.NewClient(logrus.New(), client.Config{BaseURL: "ftp://x"})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			_, _ = w.Write([]byte(`{"ok":true,"data":{"service":"runcenter-api"}}`))
		})

		res, err := c.Health(context.Background())
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.JSONEq(t, `{"ok":true,"data":{"service":"runcenter-api"}}`, string(res.Data))
	})

	t.Run("server error is not a failure", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"ok":false,"message":"down"}`))
		})

		res, err := c.Health(context.Background())
		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
		assert.NotNil(t, res.Data)
	})

	t.Run("non json body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("pong"))
		})

		res, err := c.Health(context.Background())
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.Nil(t, res.Data)
	})

	t.Run("transport failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		c, err := client.NewClient(logrus.New(), client.Config{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = c.Health(context.Background())
		assert.Error(t, err)
	})
}

func TestListRuns(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/runs", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("page_size"))

		_, _ = w.Write([]byte(`{"ok":true,"data":{"items":[{"run_id":"run-001","dt":"2025-02-28","status":"success","started_at":"2025-02-28T10:00:00Z","message":"done"}],"total":21,"page":2,"page_size":20}}`))
	})

	list, err := c.ListRuns(context.Background(), 2, 20)
	require.NoError(t, err)
	assert.Equal(t, 21, list.Total)
	require.Len(t, list.Items, 1)

	run := list.Items[0]
	assert.Equal(t, "run-001", run.RunID)
	require.NotNil(t, run.StartedAt)
	assert.True(t, run.StartedAt.Equal(time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC)))
	assert.Nil(t, run.FinishedAt)
	require.NotNil(t, run.Message)
	assert.Equal(t, "done", *run.Message)
}

func TestListRuns_TimestampShapes(t *testing.T) {
	tests := []struct {
		name      string
		startedAt string
		want      *time.Time
	}{
		{
			name:      "rfc3339 utc",
			startedAt: `"2025-02-28T10:00:00Z"`,
			want:      ptrTime(time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC)),
		},
		{
			name:      "without zone",
			startedAt: `"2025-02-28T10:00:00"`,
			want:      ptrTime(time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC)),
		},
		{
			name:      "fractional seconds without zone",
			startedAt: `"2025-02-28T10:00:00.123456"`,
			want:      ptrTime(time.Date(2025, 2, 28, 10, 0, 0, 123456000, time.UTC)),
		},
		{
			name:      "offset",
			startedAt: `"2025-02-28T18:00:00+08:00"`,
			want:      ptrTime(time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC)),
		},
		{
			name:      "space separated",
			startedAt: `"2025-02-28 10:00:00"`,
			want:      ptrTime(time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC)),
		},
		{
			name:      "null",
			startedAt: `null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"ok":true,"data":{"items":[{"run_id":"run-001","dt":"2025-02-28","status":"success","started_at":` +
				tt.startedAt + `,"finished_at":"2025-02-28T10:05:00","message":null}],"total":1,"page":1,"page_size":20}}`

			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			list, err := c.ListRuns(context.Background(), 1, 20)
			require.NoError(t, err)
			require.Len(t, list.Items, 1)

			run := list.Items[0]
			assert.Equal(t, "run-001", run.RunID)
			assert.Nil(t, run.Message)

			require.NotNil(t, run.FinishedAt)
			assert.True(t, run.FinishedAt.Equal(time.Date(2025, 2, 28, 10, 5, 0, 0, time.UTC)))

			if tt.want == nil {
				assert.Nil(t, run.StartedAt)

				return
			}

			require.NotNil(t, run.StartedAt)
			assert.True(t, run.StartedAt.Equal(*tt.want), "got %s", run.StartedAt)
		})
	}
}

func TestListRuns_InvalidTimestamp(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"data":{"items":[{"run_id":"run-001","dt":"2025-02-28","status":"success","started_at":"yesterday"}],"total":1,"page":1,"page_size":20}}`))
	})

	_, err := c.ListRuns(context.Background(), 1, 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestGetRun_TimestampWithoutZone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"data":{"run_id":"run-001","dt":"2025-02-28","status":"running","started_at":"2025-02-28T10:00:00","finished_at":null}}`))
	})

	run, err := c.GetRun(context.Background(), "run-001")
	require.NoError(t, err)
	require.NotNil(t, run.StartedAt)
	assert.True(t, run.StartedAt.Equal(time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC)))
	assert.Nil(t, run.FinishedAt)
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func TestListRuns_BarePayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[],"total":0,"page":1,"page_size":20}`))
	})

	list, err := c.ListRuns(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 0, list.Total)
	assert.NotNil(t, list.Items)
}

func TestListRuns_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"server message", http.StatusInternalServerError, `{"ok":false,"message":"db down"}`, "db down"},
		{"no message", http.StatusBadGateway, `{}`, "获取 Runs 失败"},
		{"malformed body", http.StatusBadGateway, `<html>`, "获取 Runs 失败"},
		{"ok false on 200", http.StatusOK, `{"ok":false,"message":"nope"}`, "nope"},
		{"ok false without message", http.StatusOK, `{"ok":false}`, "获取 Runs 失败"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.ListRuns(context.Background(), 1, 20)
			require.Error(t, err)

			var apiErr *client.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, client.Message(err))
		})
	}
}

func TestGetRun(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() == "/api/runs/run%2F001" {
			_, _ = w.Write([]byte(`{"ok":true,"data":{"run_id":"run/001","dt":"2025-02-28","status":"failed"}}`))

			return
		}

		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"message":"Run not found"}`))
	})

	run, err := c.GetRun(context.Background(), "run/001")
	require.NoError(t, err)
	assert.Equal(t, "failed", run.Status)

	_, err = c.GetRun(context.Background(), "missing")
	assert.Equal(t, "Run not found", client.Message(err))
}

func TestGetRun_Fallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.GetRun(context.Background(), "run-001")
	assert.Equal(t, "获取 Run 失败", client.Message(err))
}

func TestDownloadReport(t *testing.T) {
	content := []byte("PK-report")

	tests := []struct {
		name        string
		disposition string
		want        string
	}{
		{"plain", "attachment; filename=daily_report_2025-02-28.xlsx", "daily_report_2025-02-28.xlsx"},
		{"quoted", `attachment; filename="custom.xlsx"`, "custom.xlsx"},
		{"single quoted", "attachment; filename='custom.xlsx'; size=3", "custom.xlsx"},
		{"absent", "", "daily_report_2025-02-28.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/reports/daily/download", r.URL.Path)
				assert.Equal(t, "2025-02-28", r.URL.Query().Get("dt"))

				if tt.disposition != "" {
					w.Header().Set("Content-Disposition", tt.disposition)
				}

				_, _ = w.Write(content)
			})

			saver := &client.FileSaver{Dir: t.TempDir()}

			name, err := c.DownloadReport(context.Background(), "2025-02-28", saver)
			require.NoError(t, err)
			assert.Equal(t, tt.want, name)
			assert.Equal(t, filepath.Join(saver.Dir, tt.want), saver.Written)

			data, err := os.ReadFile(saver.Written)
			require.NoError(t, err)
			assert.Equal(t, int64(len(data)), saver.Size)
			assert.Equal(t, content, data)
		})
	}
}

func TestDownloadReport_Errors(t *testing.T) {
	t.Run("not found fallback", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("gone"))
		})

		called := false
		saver := client.SaverFunc(func(context.Context, client.Download) error {
			called = true

			return nil
		})

		_, err := c.DownloadReport(context.Background(), "2025-02-28", saver)
		assert.Equal(t, "Report not found", client.Message(err))
		assert.False(t, called)
	})

	t.Run("server message", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"message":"Invalid date format, use YYYY-MM-DD"}`))
		})

		_, err := c.DownloadReport(context.Background(), "bad", &client.FileSaver{Dir: t.TempDir()})
		assert.Equal(t, "Invalid date format, use YYYY-MM-DD", client.Message(err))
	})

	t.Run("saver failure", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("data"))
		})

		saver := client.SaverFunc(func(_ context.Context, d client.Download) error {
			_, _ = io.Copy(io.Discard, d.Body)

			return errors.New("disk full")
		})

		_, err := c.DownloadReport(context.Background(), "2025-02-28", saver)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}
