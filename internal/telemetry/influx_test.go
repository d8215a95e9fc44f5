package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/cabin-monitor/internal/logic"
)

type influxRequest struct {
	path  string
	query map[string]string
	body  string
	user  string
	pass  string
}

func newInfluxServer(t *testing.T, status int) (*httptest.Server, *[]influxRequest) {
	t.Helper()
	var reqs []influxRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		user, pass, _ := r.BasicAuth()
		reqs = append(reqs, influxRequest{
			path: r.URL.Path,
			query: map[string]string{
				"db":        r.URL.Query().Get("db"),
				"precision": r.URL.Query().Get("precision"),
			},
			body: string(body),
			user: user,
			pass: pass,
		})
		if status >= 400 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"database not found: \"home\""}`))
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestInfluxSinkPublish(t *testing.T) {
	srv, reqs := newInfluxServer(t, http.StatusNoContent)
	sink := NewInfluxSink(InfluxOptions{URL: srv.URL + "/", Database: "home", Timeout: time.Second})

	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	err := sink.Publish(context.Background(), Points(2000, 30, 50, logic.DetectionCount{People: 1}, at))
	require.NoError(t, err)

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, "/write", req.path)
	assert.Equal(t, "home", req.query["db"])
	assert.Equal(t, "ns", req.query["precision"])
	lines := strings.Split(req.body, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "co2,animal_count=0,people_count=1 value=2000 1767268800000000000", lines[0])
	assert.Empty(t, req.user)
}

func TestInfluxSinkBasicAuth(t *testing.T) {
	srv, reqs := newInfluxServer(t, http.StatusNoContent)
	sink := NewInfluxSink(InfluxOptions{URL: srv.URL, Database: "home", Username: "car", Password: "secret", Timeout: time.Second})

	require.NoError(t, sink.Publish(context.Background(), []Point{{Measurement: "co2", Value: 1}}))
	require.Len(t, *reqs, 1)
	assert.Equal(t, "car", (*reqs)[0].user)
	assert.Equal(t, "secret", (*reqs)[0].pass)
}

func TestInfluxSinkEmptyBatch(t *testing.T) {
	srv, reqs := newInfluxServer(t, http.StatusNoContent)
	sink := NewInfluxSink(InfluxOptions{URL: srv.URL, Database: "home", Timeout: time.Second})

	require.NoError(t, sink.Publish(context.Background(), nil))
	assert.Empty(t, *reqs)
}

func TestInfluxSinkServerError(t *testing.T) {
	srv, _ := newInfluxServer(t, http.StatusNotFound)
	sink := NewInfluxSink(InfluxOptions{URL: srv.URL, Database: "home", Timeout: time.Second})

	err := sink.Publish(context.Background(), []Point{{Measurement: "co2", Value: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "database not found")
}
