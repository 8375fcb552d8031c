package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Filter field vocabulary. These are the keys accepted in the raw filter map
// handed to the engine's entry point.
const (
	FieldLeague     = "league"
	FieldSeason     = "season"
	FieldSeasonType = "season_type"
	FieldDateFrom   = "date_from"
	FieldDateTo     = "date_to"
	FieldTeam       = "team"
	FieldTeamID     = "team_id"
	FieldOpponent   = "opponent"
	FieldOpponentID = "opponent_id"
	FieldPlayer     = "player"
	FieldPlayerID   = "player_id"
	FieldGameIDs    = "game_ids"
	FieldAggregate  = "aggregate"
	FieldHomeAway   = "home_away"
	FieldLastNGames = "last_n_games"
	FieldMinMinutes = "min_minutes"
	FieldSegment    = "segment"
	FieldClockFrom  = "clock_from"
	FieldClockTo    = "clock_to"
	FieldVenue      = "venue"
	FieldConference = "conference"
	FieldDivision   = "division"
	FieldTournament = "tournament"
	FieldColumns    = "columns"
	FieldLimit      = "limit"
)

// DateLayout is the on-the-wire date format for filter values and rows.
const DateLayout = "2006-01-02"

// Aggregate selects how per-game numbers are rolled up.
type Aggregate string

const (
	AggregateTotal   Aggregate = "total"
	AggregatePerGame Aggregate = "per_game"
	AggregatePer40   Aggregate = "per40"
)

// FilterModel is the validated, normalized description of a query. It is
// owned exclusively by the call that created it.
type FilterModel struct {
	League      League
	Season      string
	SeasonType  string
	DateFrom    time.Time
	DateTo      time.Time
	Teams       []string
	TeamIDs     []string
	Opponents   []string
	OpponentIDs []string
	Players     []string
	PlayerIDs   []string
	GameIDs     []string
	Aggregate   Aggregate
	HomeAway    string
	LastNGames  int
	MinMinutes  float64
	Segment     int
	ClockFrom   string
	ClockTo     string
	Venue       string
	Conference  string
	Division    string
	Tournament  string
	Columns     []string
	Limit       int
}

// HasDateRange reports whether either date bound is set.
func (f *FilterModel) HasDateRange() bool {
	return !f.DateFrom.IsZero() || !f.DateTo.IsZero()
}

// knownFields is the accepted raw-filter vocabulary.
var knownFields = map[string]bool{
	FieldLeague: true, FieldSeason: true, FieldSeasonType: true,
	FieldDateFrom: true, FieldDateTo: true,
	FieldTeam: true, FieldTeamID: true, FieldOpponent: true, FieldOpponentID: true,
	FieldPlayer: true, FieldPlayerID: true, FieldGameIDs: true,
	FieldAggregate: true, FieldHomeAway: true, FieldLastNGames: true,
	FieldMinMinutes: true, FieldSegment: true, FieldClockFrom: true, FieldClockTo: true,
	FieldVenue: true, FieldConference: true, FieldDivision: true, FieldTournament: true,
	FieldColumns: true, FieldLimit: true,
}

// ParseFilters performs field-level shape validation and normalization of a
// raw filter map. Unknown fields are dropped with a warning in non-strict
// mode and rejected in strict mode. Dataset-level compatibility, dependency,
// and conflict rules are the validator's job, not this function's.
func ParseFilters(raw map[string]any, strict bool) (*FilterModel, []string, error) {
	f := &FilterModel{Aggregate: AggregateTotal}
	var warnings []string

	// Deterministic field order keeps warning output stable.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !knownFields[key] {
			if strict {
				return nil, nil, NewValidationError(key, "unknown filter field")
			}
			warnings = append(warnings, fmt.Sprintf("unknown filter field %q dropped", key))
			continue
		}
		if err := f.setField(key, raw[key]); err != nil {
			if strict {
				return nil, nil, err
			}
			warnings = append(warnings, fmt.Sprintf("filter %q dropped: %v", key, err))
		}
	}

	if err := f.checkShape(); err != nil {
		// Shape violations (like an inverted date range) are never
		// droppable; they invalidate the query in both modes.
		return nil, nil, err
	}
	return f, warnings, nil
}

// setField parses and assigns one raw filter value.
func (f *FilterModel) setField(key string, val any) error {
	switch key {
	case FieldLeague:
		s, err := asString(key, val)
		if err != nil {
			return err
		}
		league, err := ParseLeague(strings.ToLower(s))
		if err != nil {
			return NewValidationError(key, "%v", err)
		}
		f.League = league
	case FieldSeason:
		s, err := asString(key, val)
		if err != nil {
			return err
		}
		if _, err := ParseSeason(s); err != nil {
			return NewValidationError(key, "%v", err)
		}
		f.Season = s
	case FieldSeasonType:
		s, err := asString(key, val)
		if err != nil {
			return err
		}
		switch strings.ToLower(s) {
		case "regular", "playoffs", "preseason":
			f.SeasonType = strings.ToLower(s)
		default:
			return NewValidationError(key, "want one of regular, playoffs, preseason")
		}
	case FieldDateFrom, FieldDateTo:
		s, err := asString(key, val)
		if err != nil {
			return err
		}
		t, err := time.ParseInLocation(DateLayout, s, time.UTC)
		if err != nil {
			return NewValidationError(key, "want %s date", DateLayout)
		}
		if key == FieldDateFrom {
			f.DateFrom = t
		} else {
			f.DateTo = t
		}
	case FieldTeam:
		v, err := asStrings(key, val)
		if err != nil {
			return err
		}
		f.Teams = v
	case FieldTeamID:
		v, err := asStrings(key, val)
		if err != nil {
			return err
		}
		f.TeamIDs = v
	case FieldOpponent:
		v, err := asStrings(key, val)
		if err != nil {
			return err
		}
		f.Opponents = v
	case FieldOpponentID:
		v, err := asStrings(key, val)
		if err != nil {
			return err
		}
		f.OpponentIDs = v
	case FieldPlayer:
		v, err := asStrings(key, val)
		if err != nil {
			return err
		}
		f.Players = v
	case FieldPlayerID:
		v, err := asStrings(key, val)
		if err != nil {
			return err
		}
		f.PlayerIDs = v
	case FieldGameIDs:
		v, err := asStrings(key, val)
		if err != nil {
			return err
		}
		f.GameIDs = v
	case FieldAggregate:
		s, err := asString(key, val)
		if err != nil {
			return err
		}
		switch Aggregate(strings.ToLower(s)) {
		case AggregateTotal, AggregatePerGame, AggregatePer40:
			f.Aggregate = Aggregate(strings.ToLower(s))
		default:
			return NewValidationError(key, "want one of total, per_game, per40")
		}
	case FieldHomeAway:
		s, err := asString(key, val)
		if err != nil {
			return err
		}
		switch strings.ToLower(s) {
		case "home", "away":
			f.HomeAway = strings.ToLower(s)
		default:
			return NewValidationError(key, "want home or away")
		}
	case FieldLastNGames:
		n, err := asInt(key, val)
		if err != nil {
			return err
		}
		if n <= 0 {
			return NewValidationError(key, "must be positive")
		}
		f.LastNGames = n
	case FieldMinMinutes:
		v, err := asFloat(key, val)
		if err != nil {
			return err
		}
		if v < 0 {
			return NewValidationError(key, "must not be negative")
		}
		f.MinMinutes = v
	case FieldSegment:
		n, err := asInt(key, val)
		if err != nil {
			return err
		}
		if n <= 0 {
			return NewValidationError(key, "must be positive")
		}
		f.Segment = n
	case FieldClockFrom:
		s, err := asString(key, val)
		if err != nil {
			return err
		}
		f.ClockFrom = s
	case FieldClockTo:
		s, err := asString(key, val)
		if err != nil {
			return err
		}
		f.ClockTo = s
	case FieldVenue:
		s, err := asString(key, val)
		if err != nil {
			return err
		}
		f.Venue = s
	case FieldConference:
		s, err := asString(key, val)
		if err != nil {
			return err
		}
		f.Conference = s
	case FieldDivision:
		s, err := asString(key, val)
		if err != nil {
			return err
		}
		f.Division = s
	case FieldTournament:
		s, err := asString(key, val)
		if err != nil {
			return err
		}
		f.Tournament = s
	case FieldColumns:
		v, err := asStrings(key, val)
		if err != nil {
			return err
		}
		f.Columns = v
	case FieldLimit:
		n, err := asInt(key, val)
		if err != nil {
			return err
		}
		if n < 0 {
			return NewValidationError(key, "must not be negative")
		}
		f.Limit = n
	}
	return nil
}

// checkShape enforces cross-field structural invariants that hold regardless
// of dataset or mode.
func (f *FilterModel) checkShape() error {
	if !f.DateFrom.IsZero() && !f.DateTo.IsZero() && f.DateFrom.After(f.DateTo) {
		return NewValidationError(FieldDateFrom, "date range start %s is after end %s",
			f.DateFrom.Format(DateLayout), f.DateTo.Format(DateLayout))
	}
	return nil
}

func asString(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", NewValidationError(field, "want a non-empty string, got %T", v)
	}
	return s, nil
}

// asStrings accepts a single string or a slice of strings.
func asStrings(field string, v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil, NewValidationError(field, "want a non-empty string")
		}
		return []string{t}, nil
	case []string:
		if len(t) == 0 {
			return nil, NewValidationError(field, "want at least one value")
		}
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, NewValidationError(field, "want strings, got %T", e)
			}
			out = append(out, s)
		}
		if len(out) == 0 {
			return nil, NewValidationError(field, "want at least one value")
		}
		return out, nil
	}
	return nil, NewValidationError(field, "want a string or list of strings, got %T", v)
}

func asInt(field string, v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		if t != float64(int(t)) {
			return 0, NewValidationError(field, "want an integer, got %v", t)
		}
		return int(t), nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, NewValidationError(field, "want an integer, got %q", t)
		}
		return n, nil
	}
	return 0, NewValidationError(field, "want an integer, got %T", v)
}

func asFloat(field string, v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, NewValidationError(field, "want a number, got %q", t)
		}
		return f, nil
	}
	return 0, NewValidationError(field, "want a number, got %T", v)
}
