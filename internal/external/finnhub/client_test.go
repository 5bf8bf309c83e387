package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/config"
	"github.com/wonny/xray/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := New(config.FinnhubConfig{APIKey: "test-token", BaseURL: server.URL}, nil, logger.NewNop())
	require.NotNil(t, c)
	c.http.DisableRetry()
	return c
}

func TestNewWithoutAPIKey(t *testing.T) {
	assert.Nil(t, New(config.FinnhubConfig{}, nil, logger.NewNop()))
	assert.Nil(t, (*Client)(nil).Metadata())
}

func TestLookupResolvesTicker(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/profile2", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		w.Write([]byte(`{"isin":"US0378331005","name":"Apple Inc","finnhubIndustry":"Technology","country":"US"}`))
	}))

	assert.Equal(t, contracts.SourceFinnhub, c.Source())

	id, ok, err := c.Lookup(context.Background(), "AAPL", "Apple Inc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "US0378331005", id)
}

func TestLookupUnknownSymbolIsMiss(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	_, ok, err := c.Lookup(context.Background(), "NOPE", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookupWithoutISINIsMiss(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Some Private Co"}`))
	}))

	_, ok, err := c.Lookup(context.Background(), "PRIV", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMetadataLookup(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "US0378331005", r.URL.Query().Get("isin"))
		w.Write([]byte(`{"isin":"US0378331005","name":"Apple Inc","finnhubIndustry":"Technology","country":"US"}`))
	}))

	meta, ok, err := c.Metadata().Lookup(context.Background(), "US0378331005")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Technology", meta.Sector)
	assert.Equal(t, "US", meta.Geography)
}

func TestMetadataLookupEmptyProfileIsMiss(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	_, ok, err := c.Metadata().Lookup(context.Background(), "US0378331005")
	require.NoError(t, err)
	assert.False(t, ok)
}
