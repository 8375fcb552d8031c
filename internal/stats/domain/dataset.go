package domain

import "fmt"

// Dataset identifies one of the tabular dataset types the engine serves.
type Dataset string

const (
	DatasetSchedule     Dataset = "schedule"
	DatasetBoxScore     Dataset = "box_score"
	DatasetPlayByPlay   Dataset = "play_by_play"
	DatasetShotChart    Dataset = "shot_chart"
	DatasetSeasonTotals Dataset = "season_totals"
)

// IsValid reports whether d names a known dataset type.
func (d Dataset) IsValid() bool {
	switch d {
	case DatasetSchedule, DatasetBoxScore, DatasetPlayByPlay, DatasetShotChart, DatasetSeasonTotals:
		return true
	}
	return false
}

// ParseDataset validates a dataset identifier supplied by a caller.
func ParseDataset(s string) (Dataset, error) {
	d := Dataset(s)
	if !d.IsValid() {
		return "", fmt.Errorf("unknown dataset %q", s)
	}
	return d, nil
}

// League identifies a supported league.
type League string

const (
	LeagueNBA     League = "nba"
	LeagueWNBA    League = "wnba"
	LeagueNCAAB   League = "ncaab"
	LeagueGLeague League = "gleague"
)

// IsValid reports whether l names a known league.
func (l League) IsValid() bool {
	switch l {
	case LeagueNBA, LeagueWNBA, LeagueNCAAB, LeagueGLeague:
		return true
	}
	return false
}

// ParseLeague validates a league identifier supplied by a caller.
func ParseLeague(s string) (League, error) {
	l := League(s)
	if !l.IsValid() {
		return "", fmt.Errorf("unknown league %q", s)
	}
	return l, nil
}

// Periods returns the number of regulation periods in a game for the league.
// Segment filters beyond this bound produce an empty result, not an error.
func (l League) Periods() int {
	switch l {
	case LeagueNCAAB:
		return 2 // halves
	default:
		return 4 // quarters
	}
}

// RequiredColumns returns the minimum column set an adapter must produce for
// each dataset type. Adapters returning fewer columns are malformed.
func RequiredColumns(d Dataset) []string {
	switch d {
	case DatasetSchedule:
		return []string{ColGameID, ColDate, ColHomeTeam, ColAwayTeam}
	case DatasetBoxScore:
		return []string{ColGameID, ColTeamID, ColPlayerID, ColMinutes}
	case DatasetPlayByPlay:
		return []string{ColGameID, ColEventID, ColPeriod, ColClock, ColEventType}
	case DatasetShotChart:
		return []string{ColGameID, ColShotX, ColShotY, ColMade}
	case DatasetSeasonTotals:
		return []string{ColTeamID, ColSeason}
	}
	return nil
}

// Canonical column names used across the engine. Providers that spell these
// differently are normalized through the mask applier's alias table.
const (
	ColGameID    = "game_id"
	ColEventID   = "event_id"
	ColTeamID    = "team_id"
	ColPlayerID  = "player_id"
	ColDate      = "date"
	ColHomeTeam  = "home_team"
	ColAwayTeam  = "away_team"
	ColTeamName  = "team_name"
	ColVenue     = "venue"
	ColPeriod    = "period"
	ColClock     = "clock"
	ColEventType = "event_type"
	ColShotX     = "shot_x"
	ColShotY     = "shot_y"
	ColMade      = "made"
	ColMinutes   = "minutes"
	ColSeason    = "season"
	ColHomeAway  = "home_away"
	ColLeague    = "league"
)
