package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtlab-dashboard/internal/domain"
)

var testSession = &domain.Session{Username: "ops", Role: domain.RoleAdmin}

func TestForwardInjectsIdentityHeaders(t *testing.T) {
	var got http.Header
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	b := NewBackendBridge(upstream.URL, "shared-token", 5*time.Second)

	header := http.Header{}
	header.Set("Cookie", "rtlab_session=secret")
	header.Set("Connection", "keep-alive")
	header.Set("X-Request-Id", "abc-123")

	result, err := b.Forward(context.Background(), http.MethodGet, "/status", "", nil, header, testSession)
	require.NoError(t, err)

	assert.Equal(t, "ops", got.Get(HeaderUser))
	assert.Equal(t, domain.RoleAdmin, got.Get(HeaderRole))
	assert.Equal(t, "shared-token", got.Get(HeaderProxyToken))
	assert.Equal(t, "abc-123", got.Get("X-Request-Id"), "unrelated headers pass through")
	assert.Empty(t, got.Get("Cookie"))

	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.False(t, result.IsStream())
	assert.JSONEq(t, `{"ok":true}`, string(result.Body))
}

func TestForwardPreservesStatusAndQuery(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trades", r.URL.Path)
		assert.Equal(t, "limit=5", r.URL.RawQuery)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"nope"}`))
	}))
	defer upstream.Close()

	b := NewBackendBridge(upstream.URL, "", 5*time.Second)
	result, err := b.Forward(context.Background(), http.MethodGet, "/trades", "limit=5", nil, http.Header{}, testSession)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.JSONEq(t, `{"error":"nope"}`, string(result.Body))
}

func TestForwardHandsBackEventStreamLive(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "event: health\ndata: {}\n\n")
	}))
	defer upstream.Close()

	b := NewBackendBridge(upstream.URL, "", 5*time.Second)
	result, err := b.Forward(context.Background(), http.MethodGet, "/events", "", nil, http.Header{}, testSession)
	require.NoError(t, err)
	require.True(t, result.IsStream())
	defer result.Stream.Close()

	data, err := io.ReadAll(result.Stream)
	require.NoError(t, err)
	assert.Contains(t, string(data), "event: health")
}

func TestForwardTimesOutSlowUpstream(t *testing.T) {
	blocked := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer upstream.Close()
	defer close(blocked)

	b := NewBackendBridge(upstream.URL, "", 100*time.Millisecond)
	_, err := b.Forward(context.Background(), http.MethodGet, "/status", "", nil, http.Header{}, testSession)
	assert.Error(t, err)
}

func TestOpenEventStreamRefused(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer upstream.Close()

	b := NewBackendBridge(upstream.URL, "bad-token", 5*time.Second)
	_, err := b.OpenEventStream(context.Background(), testSession)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=403")
}

func TestOpenEventStreamClosesOnContextCancel(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer upstream.Close()

	ctx, cancel := context.WithCancel(context.Background())
	b := NewBackendBridge(upstream.URL, "tok", 5*time.Second)
	stream, err := b.OpenEventStream(ctx, testSession)
	require.NoError(t, err)
	defer stream.Close()

	cancel()
	_, err = stream.Read(make([]byte, 64))
	assert.Error(t, err)
}
