package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statlinehq/statline/internal/stats/domain"
)

func boxRow(game, player, team string, minutes float64) domain.Row {
	return domain.Row{
		"game_id": game, "player_id": player, "team_id": team, "minutes": minutes,
	}
}

func TestMaskIdentifierPhase(t *testing.T) {
	var tb domain.Table
	tb.Append(
		boxRow("g1", "p1", "t1", 30),
		boxRow("g1", "p2", "t1", 12),
		boxRow("g2", "p1", "t1", 28),
	)
	mk := newMasker(map[string]any{
		domain.FieldPlayerID: []string{"p1"},
	}, domain.LeagueNBA, nil)
	out := mk.apply(tb, domain.DatasetBoxScore)
	require.Equal(t, 2, out.Len())
	for _, r := range out.Rows {
		assert.Equal(t, "p1", r.String("player_id"))
	}
}

func TestMaskShortCircuitsAfterEmptyPhase(t *testing.T) {
	var tb domain.Table
	tb.Append(boxRow("g1", "p1", "t1", 30))
	mk := newMasker(map[string]any{
		domain.FieldPlayerID:   []string{"nobody"},
		domain.FieldMinMinutes: 20,
		domain.FieldTeam:       []string{"Celtics"},
	}, domain.LeagueNBA, nil)
	out := mk.apply(tb, domain.DatasetBoxScore)
	assert.True(t, out.IsEmpty())
	assert.Equal(t, []string{phaseIdentifier}, mk.phasesRun,
		"phases after an empty result must not run")
}

func TestMaskAllPhasesRunOnSurvivingRows(t *testing.T) {
	var tb domain.Table
	tb.Append(boxRow("g1", "p1", "t1", 30))
	mk := newMasker(map[string]any{
		domain.FieldPlayerID:   []string{"p1"},
		domain.FieldMinMinutes: 20,
	}, domain.LeagueNBA, nil)
	out := mk.apply(tb, domain.DatasetBoxScore)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, []string{
		phaseIdentifier, phaseCategorical, phaseNumeric, phaseString, phaseCompleteness,
	}, mk.phasesRun)
}

func TestMaskSegmentBeyondRegulationYieldsEmpty(t *testing.T) {
	var tb domain.Table
	for p := 1; p <= 4; p++ {
		tb.Append(domain.Row{
			"game_id": "g1", "event_id": "e" + string(rune('0'+p)),
			"period": p, "clock": "5:00", "event_type": "shot",
		})
	}
	mk := newMasker(map[string]any{domain.FieldSegment: 5}, domain.LeagueNBA, nil)
	out := mk.apply(tb, domain.DatasetPlayByPlay)
	assert.True(t, out.IsEmpty())
}

func TestMaskClockWindowWithinSegment(t *testing.T) {
	var tb domain.Table
	tb.Append(
		domain.Row{"game_id": "g1", "event_id": "e1", "period": 2, "clock": "11:30", "event_type": "shot"},
		domain.Row{"game_id": "g1", "event_id": "e2", "period": 2, "clock": "7:45", "event_type": "foul"},
		domain.Row{"game_id": "g1", "event_id": "e3", "period": 2, "clock": "1:02", "event_type": "shot"},
		domain.Row{"game_id": "g1", "event_id": "e4", "period": 3, "clock": "8:00", "event_type": "shot"},
	)
	mk := newMasker(map[string]any{
		domain.FieldSegment:   2,
		domain.FieldClockFrom: "10:00",
		domain.FieldClockTo:   "5:00",
	}, domain.LeagueNBA, nil)
	out := mk.apply(tb, domain.DatasetPlayByPlay)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "e2", out.Rows[0].String("event_id"))
}

func TestMaskStringPhaseToleratesProviderSpellings(t *testing.T) {
	var tb domain.Table
	tb.Append(
		domain.Row{"game_id": "g1", "player_id": "p1", "team_id": "t1", "minutes": 30.0, "teamName": "Boston  Celtics"},
		domain.Row{"game_id": "g1", "player_id": "p2", "team_id": "t2", "minutes": 30.0, "franchise": "New York Knicks"},
	)
	mk := newMasker(map[string]any{
		domain.FieldTeam: []string{"boston celtics"},
	}, domain.LeagueNBA, nil)
	out := mk.apply(tb, domain.DatasetBoxScore)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "p1", out.Rows[0].String("player_id"))
}

func TestMaskMinutesStringForm(t *testing.T) {
	var tb domain.Table
	tb.Append(
		domain.Row{"game_id": "g1", "player_id": "p1", "team_id": "t1", "minutes": "34:30"},
		domain.Row{"game_id": "g1", "player_id": "p2", "team_id": "t1", "minutes": "08:15"},
	)
	mk := newMasker(map[string]any{domain.FieldMinMinutes: 20}, domain.LeagueNBA, nil)
	out := mk.apply(tb, domain.DatasetBoxScore)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "p1", out.Rows[0].String("player_id"))
}

func TestMaskLastNGames(t *testing.T) {
	var tb domain.Table
	for i, date := range []string{"2024-01-01", "2024-01-05", "2024-01-09", "2024-01-12"} {
		tb.Append(domain.Row{
			"game_id": "g" + string(rune('1'+i)), "player_id": "p1", "team_id": "t1",
			"minutes": 30.0, "date": date,
		})
	}
	mk := newMasker(map[string]any{domain.FieldLastNGames: 2}, domain.LeagueNBA, nil)
	out := mk.apply(tb, domain.DatasetBoxScore)
	require.Equal(t, 2, out.Len())
	got := map[string]bool{}
	for _, r := range out.Rows {
		got[r.String("game_id")] = true
	}
	assert.True(t, got["g3"])
	assert.True(t, got["g4"])
}

func TestMaskCompletenessDropsPartialRecords(t *testing.T) {
	var tb domain.Table
	tb.Append(
		domain.Row{"game_id": "g1", "date": "2024-01-01", "home_team": "BOS", "away_team": "NYK"},
		domain.Row{"game_id": "g2", "date": "2024-01-02", "home_team": "", "away_team": "NYK"},
		domain.Row{"game_id": "g3", "date": "2024-01-03", "away_team": "NYK"},
	)
	mk := newMasker(map[string]any{}, domain.LeagueNBA, nil)
	out := mk.apply(tb, domain.DatasetSchedule)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "g1", out.Rows[0].String("game_id"))
}

func TestMaskDateResidualBounds(t *testing.T) {
	var tb domain.Table
	tb.Append(
		domain.Row{"game_id": "g1", "date": "2024-01-01", "home_team": "BOS", "away_team": "NYK"},
		domain.Row{"game_id": "g2", "gameDate": "2024-02-10", "home_team": "BOS", "away_team": "PHI"},
		domain.Row{"game_id": "g3", "date": "2024-03-20", "home_team": "BOS", "away_team": "MIA"},
	)
	mk := newMasker(map[string]any{
		domain.FieldDateFrom: "2024-02-01",
		domain.FieldDateTo:   "2024-02-28",
	}, domain.LeagueNBA, nil)
	out := mk.apply(tb, domain.DatasetSchedule)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "g2", out.Rows[0].String("game_id"))
}

func TestMaskSeasonWindowDropsOutOfWindowDates(t *testing.T) {
	var tb domain.Table
	tb.Append(
		domain.Row{"game_id": "pre", "date": "2023-09-15", "home_team": "BOS", "away_team": "NYK"},
		domain.Row{"game_id": "opener", "date": "2023-10-01", "home_team": "BOS", "away_team": "NYK"},
		domain.Row{"game_id": "finals", "date": "2024-06-30", "home_team": "BOS", "away_team": "DAL"},
		domain.Row{"game_id": "summer", "date": "2024-07-05", "home_team": "BOS", "away_team": "NYK"},
	)
	mk := newMasker(map[string]any{
		domain.FieldSeason: "2023-24",
	}, domain.LeagueNBA, nil)
	out := mk.apply(tb, domain.DatasetSchedule)
	require.Equal(t, 2, out.Len())
	var ids []string
	for _, r := range out.Rows {
		ids = append(ids, r.String("game_id"))
	}
	assert.ElementsMatch(t, []string{"opener", "finals"}, ids)
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in  string
		sec int
		ok  bool
	}{
		{"10:00", 600, true},
		{"0:05", 5, true},
		{"34", 34, true},
		{"", 0, false},
		{"10:61", 0, false},
		{"abc", 0, false},
	}
	for _, c := range cases {
		sec, ok := parseClock(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		if ok {
			assert.Equal(t, c.sec, sec, c.in)
		}
	}
}
