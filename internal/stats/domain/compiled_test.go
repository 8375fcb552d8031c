package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_StableAcrossMapOrder(t *testing.T) {
	a := &CompiledRequest{
		ProviderParams: map[string]any{"season": "2024", "team_id": "BOS", "date_from": "2023-10-01"},
		Meta:           RequestMeta{Dataset: DatasetSchedule, League: LeagueNBA},
	}
	b := &CompiledRequest{
		ProviderParams: map[string]any{"date_from": "2023-10-01", "team_id": "BOS", "season": "2024"},
		Meta:           RequestMeta{Dataset: DatasetSchedule, League: LeagueNBA},
	}
	ka, err := a.CacheKey()
	require.NoError(t, err)
	kb, err := b.CacheKey()
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
}

func TestCacheKey_ExcludesCallerOnlyConcerns(t *testing.T) {
	// Limit and column projection are applied after retrieval; two calls
	// differing only in those must share one cache entry.
	a := &CompiledRequest{
		ProviderParams: map[string]any{"season": "2024"},
		Meta:           RequestMeta{Dataset: DatasetSchedule, League: LeagueNBA, Limit: 10, Columns: []string{ColGameID}},
	}
	b := &CompiledRequest{
		ProviderParams: map[string]any{"season": "2024"},
		Meta:           RequestMeta{Dataset: DatasetSchedule, League: LeagueNBA, Limit: 500},
	}
	ka, err := a.CacheKey()
	require.NoError(t, err)
	kb, err := b.CacheKey()
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
}

func TestCacheKey_DistinguishesDatasetAndParams(t *testing.T) {
	base := &CompiledRequest{
		ProviderParams: map[string]any{"season": "2024"},
		Meta:           RequestMeta{Dataset: DatasetSchedule, League: LeagueNBA},
	}
	otherDataset := &CompiledRequest{
		ProviderParams: map[string]any{"season": "2024"},
		Meta:           RequestMeta{Dataset: DatasetBoxScore, League: LeagueNBA},
	}
	otherParams := &CompiledRequest{
		ProviderParams: map[string]any{"season": "2025"},
		Meta:           RequestMeta{Dataset: DatasetSchedule, League: LeagueNBA},
	}
	otherResidual := &CompiledRequest{
		ProviderParams: map[string]any{"season": "2024"},
		Residual:       map[string]any{FieldVenue: "TD Garden"},
		Meta:           RequestMeta{Dataset: DatasetSchedule, League: LeagueNBA},
	}
	k0, err := base.CacheKey()
	require.NoError(t, err)
	k1, err := otherDataset.CacheKey()
	require.NoError(t, err)
	k2, err := otherParams.CacheKey()
	require.NoError(t, err)
	k3, err := otherResidual.CacheKey()
	require.NoError(t, err)
	assert.NotEqual(t, k0, k1)
	assert.NotEqual(t, k0, k2)
	assert.NotEqual(t, k0, k3, "the cached value is masked, so residual filters are key-relevant")
}

func TestPartitionKey(t *testing.T) {
	c := &CompiledRequest{Meta: RequestMeta{Dataset: DatasetSchedule, League: LeagueWNBA, Season: "2024"}}
	assert.Equal(t, "schedule_wnba_2024", c.PartitionKey())

	c.Meta.Season = ""
	assert.Equal(t, "schedule_wnba_any", c.PartitionKey())
}

func TestErrorTaxonomy(t *testing.T) {
	te := Transient("espn", assert.AnError)
	pe := Permanent("espn", assert.AnError)
	assert.True(t, IsTransient(te))
	assert.False(t, IsPermanent(te))
	assert.True(t, IsPermanent(pe))
	assert.False(t, IsTransient(pe))
	assert.Contains(t, pe.Error(), "espn")
	assert.ErrorIs(t, pe, assert.AnError)
}
