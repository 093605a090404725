package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(Config{Host: url, Model: "test-model"})
}

func TestGenerate_StreamsFragmentsInOrder(t *testing.T) {
	var gotReq struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
		Stream bool   `json:"stream"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"response":"Hello","done":false}`)
		fmt.Fprintln(w, `{"response":" world","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true}`)
	}))
	defer srv.Close()

	stream, err := newTestClient(srv.URL).Generate(context.Background(), "prompt text", true)
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "test-model", gotReq.Model)
	assert.Equal(t, "prompt text", gotReq.Prompt)
	assert.True(t, gotReq.Stream)

	var fragments []string
	for {
		fragment, done, err := stream.Recv()
		require.NoError(t, err)
		if fragment != "" {
			fragments = append(fragments, fragment)
		}
		if done {
			break
		}
	}
	assert.Equal(t, []string{"Hello", " world"}, fragments)

	// pulling past the end keeps reporting done
	_, done, err := stream.Recv()
	require.NoError(t, err)
	assert.True(t, done)
}

func TestGenerate_FinalEventMayCarryText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"everything","done":true}`)
	}))
	defer srv.Close()

	stream, err := newTestClient(srv.URL).Generate(context.Background(), "p", true)
	require.NoError(t, err)
	defer stream.Close()

	fragment, done, err := stream.Recv()
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "everything", fragment)
}

func TestGenerate_NonStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream bool `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		fmt.Fprintln(w, `{"response":"complete answer","done":true}`)
	}))
	defer srv.Close()

	stream, err := newTestClient(srv.URL).Generate(context.Background(), "p", false)
	require.NoError(t, err)
	defer stream.Close()

	fragment, done, err := stream.Recv()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "complete answer", fragment)

	_, done, err = stream.Recv()
	require.NoError(t, err)
	assert.True(t, done)
}

func TestGenerate_HTTPErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), "p", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestGenerate_MidStreamErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"begin","done":false}`)
		fmt.Fprintln(w, `{"error":"out of memory"}`)
	}))
	defer srv.Close()

	stream, err := newTestClient(srv.URL).Generate(context.Background(), "p", true)
	require.NoError(t, err)
	defer stream.Close()

	fragment, done, err := stream.Recv()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "begin", fragment)

	_, done, err = stream.Recv()
	assert.True(t, done)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprintln(w, `{"models":[]}`)
	}))
	defer srv.Close()

	assert.NoError(t, newTestClient(srv.URL).Ping(context.Background()))

	srv.Close()
	assert.Error(t, newTestClient(srv.URL).Ping(context.Background()))
}
