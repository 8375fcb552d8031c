package aliasdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statlinehq/statline/internal/stats/domain"
)

func openResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "alias.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestResolver_ExactAndAlias(t *testing.T) {
	r := openResolver(t)
	require.NoError(t, r.Seed(domain.LeagueNBA, KindTeam, map[string]string{
		"Boston Celtics": "BOS",
		"Celtics":        "BOS",
		"BOS":            "BOS",
	}))

	id, ok := r.Resolve(domain.LeagueNBA, KindTeam, "Boston Celtics")
	require.True(t, ok)
	assert.Equal(t, "BOS", id)

	id, ok = r.Resolve(domain.LeagueNBA, KindTeam, "Celtics")
	require.True(t, ok)
	assert.Equal(t, "BOS", id)
}

func TestResolver_NormalizesCaseAndWhitespace(t *testing.T) {
	r := openResolver(t)
	require.NoError(t, r.Seed(domain.LeagueWNBA, KindTeam, map[string]string{
		"Las Vegas Aces": "LVA",
	}))

	id, ok := r.Resolve(domain.LeagueWNBA, KindTeam, "  las   VEGAS aces ")
	require.True(t, ok)
	assert.Equal(t, "LVA", id)
}

func TestResolver_NoFuzzyMatching(t *testing.T) {
	r := openResolver(t)
	require.NoError(t, r.Seed(domain.LeagueNBA, KindTeam, map[string]string{
		"Boston Celtics": "BOS",
	}))

	_, ok := r.Resolve(domain.LeagueNBA, KindTeam, "Boston Celtic")
	assert.False(t, ok, "near-miss names must not resolve")
}

func TestResolver_NamespacesAreIsolated(t *testing.T) {
	r := openResolver(t)
	require.NoError(t, r.Seed(domain.LeagueNBA, KindTeam, map[string]string{"Sky": "CHI"}))

	_, ok := r.Resolve(domain.LeagueWNBA, KindTeam, "Sky")
	assert.False(t, ok, "league namespaces must not leak")
	_, ok = r.Resolve(domain.LeagueNBA, KindPlayer, "Sky")
	assert.False(t, ok, "kind namespaces must not leak")
}

func TestResolver_SeedReplacesNamespace(t *testing.T) {
	r := openResolver(t)
	require.NoError(t, r.Seed(domain.LeagueNBA, KindTeam, map[string]string{"Old Name": "OLD"}))
	require.NoError(t, r.Seed(domain.LeagueNBA, KindTeam, map[string]string{"New Name": "NEW"}))

	_, ok := r.Resolve(domain.LeagueNBA, KindTeam, "Old Name")
	assert.False(t, ok)
	id, ok := r.Resolve(domain.LeagueNBA, KindTeam, "New Name")
	require.True(t, ok)
	assert.Equal(t, "NEW", id)
}

func TestResolver_CachedDecisionInvalidatedBySeed(t *testing.T) {
	r := openResolver(t)
	require.NoError(t, r.Seed(domain.LeagueNBA, KindPlayer, map[string]string{}))

	// Prime a negative decision, then seed the name.
	_, ok := r.Resolve(domain.LeagueNBA, KindPlayer, "Caitlin Clark")
	require.False(t, ok)
	require.NoError(t, r.Seed(domain.LeagueNBA, KindPlayer, map[string]string{"Caitlin Clark": "p22"}))

	id, ok := r.Resolve(domain.LeagueNBA, KindPlayer, "Caitlin Clark")
	require.True(t, ok)
	assert.Equal(t, "p22", id)
}
