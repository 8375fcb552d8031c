package engine

import (
	"fmt"
	"time"

	"github.com/statlinehq/statline/internal/stats/domain"
)

var zeroTime time.Time

// datasetFields is the dataset-support matrix: which filter fields each
// dataset type recognizes. League, columns, and limit are universal and not
// listed. A filter outside its dataset's set is dropped with a warning in
// warn mode and rejected in strict mode.
var datasetFields = map[domain.Dataset]map[string]bool{
	domain.DatasetSchedule: set(
		domain.FieldSeason, domain.FieldSeasonType, domain.FieldDateFrom, domain.FieldDateTo,
		domain.FieldTeam, domain.FieldTeamID, domain.FieldOpponent, domain.FieldOpponentID,
		domain.FieldGameIDs, domain.FieldHomeAway, domain.FieldLastNGames,
		domain.FieldVenue, domain.FieldConference, domain.FieldDivision, domain.FieldTournament,
	),
	domain.DatasetBoxScore: set(
		domain.FieldSeason, domain.FieldSeasonType, domain.FieldDateFrom, domain.FieldDateTo,
		domain.FieldTeam, domain.FieldTeamID, domain.FieldOpponent, domain.FieldOpponentID,
		domain.FieldPlayer, domain.FieldPlayerID, domain.FieldGameIDs, domain.FieldHomeAway,
		domain.FieldLastNGames, domain.FieldMinMinutes, domain.FieldVenue,
	),
	domain.DatasetPlayByPlay: set(
		domain.FieldSeason, domain.FieldSeasonType, domain.FieldDateFrom, domain.FieldDateTo,
		domain.FieldTeam, domain.FieldTeamID, domain.FieldPlayer, domain.FieldPlayerID,
		domain.FieldGameIDs, domain.FieldSegment, domain.FieldClockFrom, domain.FieldClockTo,
	),
	domain.DatasetShotChart: set(
		domain.FieldSeason, domain.FieldSeasonType, domain.FieldDateFrom, domain.FieldDateTo,
		domain.FieldTeam, domain.FieldTeamID, domain.FieldPlayer, domain.FieldPlayerID,
		domain.FieldGameIDs, domain.FieldSegment,
	),
	domain.DatasetSeasonTotals: set(
		domain.FieldSeason, domain.FieldSeasonType,
		domain.FieldTeam, domain.FieldTeamID, domain.FieldPlayer, domain.FieldPlayerID,
		domain.FieldAggregate, domain.FieldMinMinutes, domain.FieldHomeAway,
		domain.FieldConference, domain.FieldDivision,
	),
}

func set(fields ...string) map[string]bool {
	m := make(map[string]bool, len(fields))
	for _, f := range fields {
		m[f] = true
	}
	return m
}

// validate applies the dataset-support matrix, dependency rules, conflict
// rules, and name resolution to an already shape-checked filter model. In
// warn mode offending filters are dropped and reported; in strict mode the
// same condition is an error. The model is mutated in place.
func (e *Engine) validate(f *domain.FilterModel, dataset domain.Dataset, strict bool) ([]string, error) {
	var warnings []string

	if !f.League.IsValid() {
		return nil, domain.NewValidationError(domain.FieldLeague, "league is required")
	}

	// (b) dataset-support matrix.
	supported := datasetFields[dataset]
	for _, check := range []struct {
		field string
		clear func()
		isSet bool
	}{
		{domain.FieldSeason, func() { f.Season = "" }, f.Season != ""},
		{domain.FieldSeasonType, func() { f.SeasonType = "" }, f.SeasonType != ""},
		{domain.FieldDateFrom, func() { f.DateFrom = zeroTime }, !f.DateFrom.IsZero()},
		{domain.FieldDateTo, func() { f.DateTo = zeroTime }, !f.DateTo.IsZero()},
		{domain.FieldTeam, func() { f.Teams = nil }, len(f.Teams) > 0},
		{domain.FieldTeamID, func() { f.TeamIDs = nil }, len(f.TeamIDs) > 0},
		{domain.FieldOpponent, func() { f.Opponents = nil }, len(f.Opponents) > 0},
		{domain.FieldOpponentID, func() { f.OpponentIDs = nil }, len(f.OpponentIDs) > 0},
		{domain.FieldPlayer, func() { f.Players = nil }, len(f.Players) > 0},
		{domain.FieldPlayerID, func() { f.PlayerIDs = nil }, len(f.PlayerIDs) > 0},
		{domain.FieldGameIDs, func() { f.GameIDs = nil }, len(f.GameIDs) > 0},
		{domain.FieldAggregate, func() { f.Aggregate = domain.AggregateTotal }, f.Aggregate != domain.AggregateTotal},
		{domain.FieldHomeAway, func() { f.HomeAway = "" }, f.HomeAway != ""},
		{domain.FieldLastNGames, func() { f.LastNGames = 0 }, f.LastNGames > 0},
		{domain.FieldMinMinutes, func() { f.MinMinutes = 0 }, f.MinMinutes > 0},
		{domain.FieldSegment, func() { f.Segment = 0 }, f.Segment > 0},
		{domain.FieldClockFrom, func() { f.ClockFrom = "" }, f.ClockFrom != ""},
		{domain.FieldClockTo, func() { f.ClockTo = "" }, f.ClockTo != ""},
		{domain.FieldVenue, func() { f.Venue = "" }, f.Venue != ""},
		{domain.FieldConference, func() { f.Conference = "" }, f.Conference != ""},
		{domain.FieldDivision, func() { f.Division = "" }, f.Division != ""},
		{domain.FieldTournament, func() { f.Tournament = "" }, f.Tournament != ""},
	} {
		if !check.isSet || supported[check.field] {
			continue
		}
		if strict {
			return nil, domain.NewValidationError(check.field, "not supported by dataset %q", dataset)
		}
		check.clear()
		warnings = append(warnings, fmt.Sprintf("filter %q is not supported by dataset %q and was dropped", check.field, dataset))
	}

	// (c) dependency rules.
	if f.LastNGames > 0 && len(f.Teams) == 0 && len(f.TeamIDs) == 0 {
		if strict {
			return nil, domain.NewValidationError(domain.FieldLastNGames, "requires a team filter")
		}
		f.LastNGames = 0
		warnings = append(warnings, "last_n_games requires a team filter and was dropped")
	}

	// (d) conflict rules. Explicit game ids and a date range may coexist,
	// but game ids drive provider dispatch; the date range demotes to a
	// residual filter.
	if len(f.GameIDs) > 0 && f.HasDateRange() {
		warnings = append(warnings, "both game_ids and a date range supplied; game identifiers take precedence for dispatch")
	}

	nameWarnings, err := e.resolveNames(f, strict)
	if err != nil {
		return nil, err
	}
	return append(warnings, nameWarnings...), nil
}

// resolveNames canonicalizes name-based team/player filters through the
// alias tables. Resolution is exact and alias-table only. An unresolved
// name errors in strict mode; in warn mode the name stays behind as a
// best-effort string residual filter.
func (e *Engine) resolveNames(f *domain.FilterModel, strict bool) ([]string, error) {
	var warnings []string

	resolveList := func(field string, names []string, resolve func(domain.League, string) (string, bool)) ([]string, []string, error) {
		var leftover, ids []string
		for _, name := range names {
			if id, ok := resolve(f.League, name); ok {
				ids = append(ids, id)
				continue
			}
			if strict {
				return nil, nil, domain.NewValidationError(field, "unresolved name %q", name)
			}
			leftover = append(leftover, name)
			warnings = append(warnings, fmt.Sprintf("name %q did not resolve; kept as a best-effort string filter", name))
		}
		return ids, leftover, nil
	}

	ids, leftover, err := resolveList(domain.FieldTeam, f.Teams, e.names.ResolveTeam)
	if err != nil {
		return nil, err
	}
	f.TeamIDs = append(f.TeamIDs, ids...)
	f.Teams = leftover

	ids, leftover, err = resolveList(domain.FieldOpponent, f.Opponents, e.names.ResolveTeam)
	if err != nil {
		return nil, err
	}
	f.OpponentIDs = append(f.OpponentIDs, ids...)
	f.Opponents = leftover

	ids, leftover, err = resolveList(domain.FieldPlayer, f.Players, e.names.ResolvePlayer)
	if err != nil {
		return nil, err
	}
	f.PlayerIDs = append(f.PlayerIDs, ids...)
	f.Players = leftover

	return warnings, nil
}
