package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probstack/btcpay-harness/internal/types/environments"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

func TestRunComplete_PostsEvent(t *testing.T) {
	var got Event
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(logger.New(environments.Test))
	c.RunComplete(context.Background(), srv.URL, Event{
		Event:       "invoices",
		Total:       100,
		Successful:  97,
		Failed:      3,
		DurationSec: 12.5,
	})

	assert.EqualValues(t, 1, calls)
	assert.Equal(t, "invoices", got.Event)
	assert.Equal(t, 100, got.Total)
	assert.Equal(t, 97, got.Successful)
	assert.Equal(t, 3, got.Failed)
	assert.InDelta(t, 12.5, got.DurationSec, 0.001)
	assert.WithinDuration(t, time.Now(), got.Timestamp, 5*time.Second)
}

func TestRunComplete_EmptyURLDoesNothing(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	defer srv.Close()

	c := New(logger.New(environments.Test))
	c.RunComplete(context.Background(), "", Event{Event: "invoices"})

	assert.EqualValues(t, 0, calls)
}

func TestRunComplete_SwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(logger.New(environments.Test))

	// Rejected event and unreachable host both only log.
	c.RunComplete(context.Background(), srv.URL, Event{Event: "addresses"})

	srv.Close()
	c.RunComplete(context.Background(), srv.URL, Event{Event: "addresses"})
}
