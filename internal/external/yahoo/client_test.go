package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/xray/pkg/logger"
)

func TestLookupByTicker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/finance/search", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"quotes":[{"symbol":"SXR8.DE","longname":"iShares Core S&P 500","isin":"IE00B5BMR087"}]}`))
	}))
	defer server.Close()

	c := NewWithBaseURL(server.URL, logger.NewNop())
	id, ok, err := c.Lookup(context.Background(), "SXR8", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "IE00B5BMR087", id)
}

func TestLookupFallsBackToName(t *testing.T) {
	queries := []string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		queries = append(queries, q)
		if q == "iShares Core MSCI World" {
			w.Write([]byte(`{"quotes":[{"symbol":"IWDA.AS","isin":"IE00B4L5Y983"}]}`))
			return
		}
		w.Write([]byte(`{"quotes":[]}`))
	}))
	defer server.Close()

	c := NewWithBaseURL(server.URL, logger.NewNop())
	id, ok, err := c.Lookup(context.Background(), "IWDA", "iShares Core MSCI World")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "IE00B4L5Y983", id)
	assert.Equal(t, []string{"IWDA", "iShares Core MSCI World"}, queries)
}

func TestLookupNoISINIsMiss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quotes":[{"symbol":"AAPL","longname":"Apple Inc."}]}`))
	}))
	defer server.Close()

	c := NewWithBaseURL(server.URL, logger.NewNop())
	_, ok, err := c.Lookup(context.Background(), "AAPL", "")
	require.NoError(t, err)
	assert.False(t, ok)
}
