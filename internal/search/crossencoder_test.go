package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCrossEncoderScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rerank", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req scoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bge-reranker-v2-m3", req.Model)
		assert.Equal(t, "teklif tutarı", req.Query)
		require.Len(t, req.Documents, 2)

		json.NewEncoder(w).Encode(scoreResponse{Scores: []float64{0.92, 0.13}})
	}))
	defer server.Close()

	enc := NewHTTPCrossEncoder(HTTPCrossEncoderConfig{
		Endpoint: server.URL,
		Model:    "bge-reranker-v2-m3",
	})

	scores, err := enc.Score(context.Background(), "teklif tutarı", []string{"doc a", "doc b"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.92, 0.13}, scores)
}

func TestHTTPCrossEncoderScoreEmptyInput(t *testing.T) {
	enc := NewHTTPCrossEncoder(HTTPCrossEncoderConfig{Endpoint: "http://unused"})

	scores, err := enc.Score(context.Background(), "soru", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestHTTPCrossEncoderScoreCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scoreResponse{Scores: []float64{0.5}})
	}))
	defer server.Close()

	enc := NewHTTPCrossEncoder(HTTPCrossEncoderConfig{Endpoint: server.URL})

	_, err := enc.Score(context.Background(), "soru", []string{"a", "b"})
	assert.ErrorContains(t, err, "1 scores for 2 documents")
}

func TestHTTPCrossEncoderScoreServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	enc := NewHTTPCrossEncoder(HTTPCrossEncoderConfig{Endpoint: server.URL})

	_, err := enc.Score(context.Background(), "soru", []string{"a"})
	assert.ErrorContains(t, err, "status 503")
}

func TestHTTPCrossEncoderHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/health", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		enc := NewHTTPCrossEncoder(HTTPCrossEncoderConfig{Endpoint: server.URL})
		assert.NoError(t, enc.HealthCheck(context.Background()))
	})

	t.Run("unhealthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		enc := NewHTTPCrossEncoder(HTTPCrossEncoderConfig{Endpoint: server.URL})
		assert.Error(t, enc.HealthCheck(context.Background()))
	})
}
