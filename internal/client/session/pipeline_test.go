package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_HooksRunInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Echo", r.Header.Get("X-Test"))
	}))
	defer server.Close()

	var order []string
	pipeline := NewPipeline(nil)
	pipeline.OnRequest(func(req *http.Request) error {
		order = append(order, "request-1")
		req.Header.Set("X-Test", "first")
		return nil
	})
	pipeline.OnRequest(func(req *http.Request) error {
		order = append(order, "request-2")
		req.Header.Set("X-Test", req.Header.Get("X-Test")+"+second")
		return nil
	})
	pipeline.OnResponse(func(*http.Response) error {
		order = append(order, "response")
		return nil
	})

	client := &http.Client{Transport: pipeline}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []string{"request-1", "request-2", "response"}, order)
	assert.Equal(t, "first+second", resp.Header.Get("X-Echo"))
}

func TestPipeline_DoesNotMutateCallerRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer server.Close()

	pipeline := NewPipeline(nil)
	pipeline.OnRequest(func(req *http.Request) error {
		req.Header.Set("Cookie", "injected")
		return nil
	})

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := pipeline.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get("Cookie"))
}

func TestPipeline_RequestHookErrorAbortsSend(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer server.Close()

	wantErr := errors.New("hook failed")
	pipeline := NewPipeline(nil)
	pipeline.OnRequest(func(*http.Request) error { return wantErr })

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = pipeline.RoundTrip(req)
	assert.ErrorIs(t, err, wantErr)
	assert.False(t, called, "request must not be sent when a request hook fails")
}
