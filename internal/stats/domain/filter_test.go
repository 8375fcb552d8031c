package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters_Normalizes(t *testing.T) {
	f, warnings, err := ParseFilters(map[string]any{
		FieldLeague:   "NBA",
		FieldSeason:   "2023-24",
		FieldTeam:     "Boston Celtics",
		FieldDateFrom: "2024-01-01",
		FieldDateTo:   "2024-01-31",
		FieldLimit:    50,
	}, false)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, LeagueNBA, f.League)
	assert.Equal(t, "2023-24", f.Season)
	assert.Equal(t, []string{"Boston Celtics"}, f.Teams)
	assert.Equal(t, 50, f.Limit)
	assert.True(t, f.DateFrom.Before(f.DateTo))
}

func TestParseFilters_DateOrdering(t *testing.T) {
	// An inverted date range invalidates the query in both modes.
	for _, strict := range []bool{false, true} {
		_, _, err := ParseFilters(map[string]any{
			FieldDateFrom: "2024-03-01",
			FieldDateTo:   "2024-01-01",
		}, strict)
		require.Error(t, err, "strict=%v", strict)
		assert.True(t, IsValidation(err))
	}
}

func TestParseFilters_UnknownField(t *testing.T) {
	f, warnings, err := ParseFilters(map[string]any{"jersey_color": "green"}, false)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "jersey_color")
	assert.NotNil(t, f)

	_, _, err = ParseFilters(map[string]any{"jersey_color": "green"}, true)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestParseFilters_BadValueDroppedInWarnMode(t *testing.T) {
	f, warnings, err := ParseFilters(map[string]any{
		FieldLastNGames: -3,
		FieldTeam:       "Aces",
	}, false)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Zero(t, f.LastNGames)
	assert.Equal(t, []string{"Aces"}, f.Teams)
}

func TestParseFilters_ValueCoercion(t *testing.T) {
	f, _, err := ParseFilters(map[string]any{
		FieldGameIDs:    []any{"g1", "g2"},
		FieldLimit:      float64(10), // decoded JSON numbers arrive as float64
		FieldMinMinutes: "12.5",
	}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, f.GameIDs)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 12.5, f.MinMinutes)
}

func TestParseFilters_DefaultAggregate(t *testing.T) {
	f, _, err := ParseFilters(map[string]any{}, true)
	require.NoError(t, err)
	assert.Equal(t, AggregateTotal, f.Aggregate)
}
