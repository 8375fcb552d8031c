package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statlinehq/statline/internal/stats/domain"
)

var noopAdapter = domain.ProviderFunc(func(context.Context, map[string]any) (domain.Outcome, error) {
	return domain.Empty(), nil
})

func descriptor(provider string) *domain.ProviderDescriptor {
	return &domain.ProviderDescriptor{
		ProviderID: provider,
		Dataset:    domain.DatasetSchedule,
		League:     domain.LeagueNBA,
		Adapter:    noopAdapter,
	}
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(descriptor("espn")))

	d, ok := r.Resolve(domain.DatasetSchedule, domain.LeagueNBA)
	require.True(t, ok)
	assert.Equal(t, "espn", d.ProviderID)

	_, ok = r.Resolve(domain.DatasetShotChart, domain.LeagueNBA)
	assert.False(t, ok, "unregistered pair resolves to explicit absence, not error")
}

func TestRegistry_RejectsInvalidDescriptors(t *testing.T) {
	r := New()
	assert.Error(t, r.Register(nil))

	d := descriptor("espn")
	d.Dataset = "nonsense"
	assert.Error(t, r.Register(d))

	d = descriptor("espn")
	d.League = "xfl"
	assert.Error(t, r.Register(d))

	d = descriptor("")
	assert.Error(t, r.Register(d))

	d = descriptor("espn")
	d.Adapter = nil
	assert.Error(t, r.Register(d))
}

func TestRegistry_Reregistration(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(descriptor("espn")))
	require.NoError(t, r.Register(descriptor("sportsref")))

	d, ok := r.Resolve(domain.DatasetSchedule, domain.LeagueNBA)
	require.True(t, ok)
	assert.Equal(t, "sportsref", d.ProviderID, "re-registration replaces the entry")
	assert.Len(t, r.Pairs(), 1)
}
