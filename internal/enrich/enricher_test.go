package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/logger"
)

type fakeMetaCache struct {
	metadata map[string]contracts.Metadata
	puts     int
}

func (f *fakeMetaCache) GetByTicker(ctx context.Context, ticker string) (string, bool, error) {
	return "", false, nil
}

func (f *fakeMetaCache) GetByName(ctx context.Context, name string) (string, bool, error) {
	return "", false, nil
}

func (f *fakeMetaCache) Put(ctx context.Context, ticker, name, id string, source contracts.ResolutionSource) error {
	return nil
}

func (f *fakeMetaCache) GetMetadata(ctx context.Context, id string) (*contracts.Metadata, bool, error) {
	meta, ok := f.metadata[id]
	if !ok {
		return nil, false, nil
	}
	return &meta, true, nil
}

func (f *fakeMetaCache) PutMetadata(ctx context.Context, id string, meta contracts.Metadata) error {
	if f.metadata == nil {
		f.metadata = map[string]contracts.Metadata{}
	}
	f.metadata[id] = meta
	f.puts++
	return nil
}

type fakeMetaCommunity struct {
	contracts.CommunityService
	batch map[string]contracts.Metadata
	calls int
	err   error
}

func (f *fakeMetaCommunity) GetMetadataBatch(ctx context.Context, ids []string) (map[string]contracts.Metadata, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

type fakeMetaAPI struct {
	name    string
	entries map[string]contracts.Metadata
	calls   int
}

func (f *fakeMetaAPI) Name() string { return f.name }

func (f *fakeMetaAPI) Lookup(ctx context.Context, id string) (*contracts.Metadata, bool, error) {
	f.calls++
	meta, ok := f.entries[id]
	if !ok {
		return nil, false, nil
	}
	return &meta, true, nil
}

func TestEnrichCacheFirst(t *testing.T) {
	cache := &fakeMetaCache{metadata: map[string]contracts.Metadata{
		"US0378331005": {Sector: "Technology", Geography: "United States"},
	}}
	community := &fakeMetaCommunity{}
	e := New(cache, community, nil, logger.NewNop())

	got := e.Enrich(context.Background(), []string{"US0378331005"})

	require.Contains(t, got, "US0378331005")
	assert.Equal(t, "Technology", got["US0378331005"].Sector)
	assert.Zero(t, community.calls, "cache hit must not reach the community")
	assert.Equal(t, 1, e.Stats().CacheHits)
}

func TestEnrichCommunityBatchWritesThrough(t *testing.T) {
	cache := &fakeMetaCache{}
	community := &fakeMetaCommunity{batch: map[string]contracts.Metadata{
		"CH0038863350": {Sector: "Consumer Staples", Geography: "Switzerland"},
	}}
	e := New(cache, community, nil, logger.NewNop())

	got := e.Enrich(context.Background(), []string{"CH0038863350"})

	assert.Equal(t, "Switzerland", got["CH0038863350"].Geography)
	assert.Equal(t, 1, cache.puts, "community hit must be cached")
	assert.Equal(t, 1, e.Stats().CommunityHits)
}

func TestEnrichFallsBackToAPIs(t *testing.T) {
	cache := &fakeMetaCache{}
	community := &fakeMetaCommunity{}
	primary := &fakeMetaAPI{name: "primary"}
	secondary := &fakeMetaAPI{name: "secondary", entries: map[string]contracts.Metadata{
		"DE0007164600": {Sector: "Technology", Geography: "Germany"},
	}}
	e := New(cache, community, []contracts.MetadataAPI{primary, secondary}, logger.NewNop())

	got := e.Enrich(context.Background(), []string{"DE0007164600"})

	assert.Equal(t, "Germany", got["DE0007164600"].Geography)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, 1, e.Stats().APIHits)
	assert.Equal(t, 2, e.Stats().APICalls)
}

func TestEnrichCommunityErrorFallsThrough(t *testing.T) {
	community := &fakeMetaCommunity{err: errors.New("network down")}
	api := &fakeMetaAPI{name: "api", entries: map[string]contracts.Metadata{
		"US5949181045": {Sector: "Technology"},
	}}
	e := New(&fakeMetaCache{}, community, []contracts.MetadataAPI{api}, logger.NewNop())

	got := e.Enrich(context.Background(), []string{"US5949181045"})

	assert.Equal(t, "Technology", got["US5949181045"].Sector)
}

func TestEnrichSkipsPlaceholdersAndDuplicates(t *testing.T) {
	community := &fakeMetaCommunity{}
	e := New(&fakeMetaCache{}, community, nil, logger.NewNop())

	got := e.Enrich(context.Background(), []string{
		"UNRESOLVED:OBSCURE",
		"US0378331005",
		"US0378331005",
		"",
	})

	assert.Empty(t, got)
	assert.Equal(t, 1, community.calls)
	assert.Equal(t, 1, e.Stats().Missing)
}

func TestCoverage(t *testing.T) {
	ids := []string{"A1", "B2", "C3", "C3"}
	metadata := map[string]contracts.Metadata{
		"A1": {Sector: "Technology", Geography: "United States"},
		"B2": {Sector: "Industrials"},
	}

	total, withSector, withGeography := Coverage(ids, metadata)
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, withSector)
	assert.Equal(t, 1, withGeography)
}
