package engine

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/statlinehq/statline/internal/stats/common/metrics"
	"github.com/statlinehq/statline/internal/stats/domain"
)

// Mask phases in execution order, most selective first.
const (
	phaseIdentifier   = "identifier"
	phaseCategorical  = "categorical"
	phaseNumeric      = "numeric"
	phaseString       = "string"
	phaseCompleteness = "completeness"
)

// columnAliases maps canonical column names to the spellings different
// providers use for the same concept. Bump aliasVersion whenever the table
// changes so cached diagnostics can attribute a mask decision to the table
// that produced it.
const aliasVersion = 3

var columnAliases = map[string][]string{
	domain.ColGameID:   {"game_id", "gameId", "gid", "game"},
	domain.ColTeamID:   {"team_id", "teamId", "tid"},
	domain.ColPlayerID: {"player_id", "playerId", "pid", "person_id"},
	domain.ColEventID:  {"event_id", "eventId", "play_id"},
	domain.ColTeamName: {"team_name", "team", "teamName", "team_full_name", "franchise"},
	"opponent_id":      {"opponent_id", "opp_id", "opponent_team_id"},
	"opponent_name":    {"opponent_name", "opponent", "opp", "opp_name"},
	"player_name":      {"player_name", "player", "athlete", "athlete_name"},
	domain.ColVenue:    {"venue", "arena", "stadium", "venue_name"},
	domain.ColDate:     {"date", "game_date", "gameDate"},
	domain.ColHomeAway: {"home_away", "homeAway", "location", "site"},
	domain.ColPeriod:   {"period", "quarter", "half", "qtr"},
	domain.ColClock:    {"clock", "game_clock", "time_remaining", "pctimestring"},
	domain.ColMinutes:  {"minutes", "min", "mp", "minutes_played"},
	domain.ColSeason:   {"season", "season_year"},
	domain.ColLeague:   {"league"},
	"conference":       {"conference", "conf", "conference_name"},
	"division":         {"division", "div", "division_name"},
	"tournament":       {"tournament", "tourney", "tournament_name"},
	"season_type":      {"season_type", "seasonType", "game_type"},
	domain.ColHomeTeam: {"home_team", "homeTeam", "home"},
	domain.ColAwayTeam: {"away_team", "awayTeam", "away", "visitor"},
}

// lookup returns the row value under the canonical column, trying each
// provider spelling in table order.
func lookup(r domain.Row, canonical string) (any, bool) {
	for _, name := range columnAliases[canonical] {
		if v, ok := r[name]; ok {
			return v, true
		}
	}
	if v, ok := r[canonical]; ok {
		return v, true
	}
	return nil, false
}

func lookupString(r domain.Row, canonical string) string {
	v, ok := lookup(r, canonical)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return r.String(firstPresent(r, canonical))
}

func firstPresent(r domain.Row, canonical string) string {
	for _, name := range columnAliases[canonical] {
		if _, ok := r[name]; ok {
			return name
		}
	}
	return canonical
}

// masker applies the residual filter set to fetched rows. Phases run in a
// fixed order and short-circuit as soon as the row set is empty; phasesRun
// records which phases actually executed.
type masker struct {
	residual map[string]any
	league   domain.League
	metrics  *metrics.Metrics

	phasesRun []string
}

func newMasker(residual map[string]any, league domain.League, m *metrics.Metrics) *masker {
	if m == nil {
		m = metrics.NewNop()
	}
	return &masker{residual: residual, league: league, metrics: m}
}

func (mk *masker) apply(t domain.Table, dataset domain.Dataset) domain.Table {
	phases := []struct {
		name string
		fn   func(domain.Table, domain.Dataset) domain.Table
	}{
		{phaseIdentifier, mk.identifierPhase},
		{phaseCategorical, mk.categoricalPhase},
		{phaseNumeric, mk.numericPhase},
		{phaseString, mk.stringPhase},
		{phaseCompleteness, mk.completenessPhase},
	}
	for _, p := range phases {
		if t.IsEmpty() {
			return t
		}
		before := t.Len()
		mk.phasesRun = append(mk.phasesRun, p.name)
		t = p.fn(t, dataset)
		if dropped := before - t.Len(); dropped > 0 {
			mk.metrics.MaskRowsDropped.WithLabelValues(p.name).Add(float64(dropped))
		}
	}
	return t
}

func (mk *masker) keep(t domain.Table, pred func(domain.Row) bool) domain.Table {
	out := domain.Table{Columns: t.Columns, Rows: make([]domain.Row, 0, len(t.Rows))}
	for _, r := range t.Rows {
		if pred(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// stringSet reads a residual value that may be a single string or a slice.
func stringSet(v any) map[string]bool {
	set := make(map[string]bool)
	switch x := v.(type) {
	case string:
		set[x] = true
	case []string:
		for _, s := range x {
			set[s] = true
		}
	case []any:
		for _, e := range x {
			if s, ok := e.(string); ok {
				set[s] = true
			}
		}
	}
	return set
}

func (mk *masker) identifierPhase(t domain.Table, dataset domain.Dataset) domain.Table {
	if ids, ok := mk.residual[domain.FieldGameIDs]; ok {
		set := stringSet(ids)
		t = mk.keep(t, func(r domain.Row) bool {
			v := lookupString(r, domain.ColGameID)
			return v == "" || set[v]
		})
	}
	if ids, ok := mk.residual[domain.FieldTeamID]; ok {
		set := stringSet(ids)
		t = mk.keep(t, func(r domain.Row) bool {
			if v := lookupString(r, domain.ColTeamID); v != "" {
				return set[v]
			}
			// Schedule rows carry both sides instead of one team column.
			if dataset == domain.DatasetSchedule {
				return set[lookupString(r, domain.ColHomeTeam)] || set[lookupString(r, domain.ColAwayTeam)]
			}
			return true
		})
	}
	if ids, ok := mk.residual[domain.FieldOpponentID]; ok {
		set := stringSet(ids)
		t = mk.keep(t, func(r domain.Row) bool {
			v := lookupString(r, "opponent_id")
			return v == "" || set[v]
		})
	}
	if ids, ok := mk.residual[domain.FieldPlayerID]; ok {
		set := stringSet(ids)
		t = mk.keep(t, func(r domain.Row) bool {
			v := lookupString(r, domain.ColPlayerID)
			return v == "" || set[v]
		})
	}
	return t
}

func (mk *masker) categoricalPhase(t domain.Table, _ domain.Dataset) domain.Table {
	if v, ok := mk.residual[domain.FieldHomeAway]; ok {
		want := normalizeText(asResidualString(v))
		t = mk.keep(t, func(r domain.Row) bool {
			have := normalizeText(lookupString(r, domain.ColHomeAway))
			return have == "" || have == want
		})
	}
	if v, ok := mk.residual[domain.FieldSeasonType]; ok {
		want := normalizeText(asResidualString(v))
		t = mk.keep(t, func(r domain.Row) bool {
			have := normalizeText(lookupString(r, "season_type"))
			return have == "" || have == want
		})
	}
	if v, ok := mk.residual[domain.FieldSeason]; ok {
		season := asResidualString(v)
		want, err := domain.ParseSeason(season)
		if err == nil {
			t = mk.keep(t, func(r domain.Row) bool {
				if s := lookupString(r, domain.ColSeason); s != "" {
					have, err := domain.ParseSeason(s)
					if err == nil && have != want {
						return false
					}
				}
				// Rows dated outside the league's season window do not
				// belong to the season, whatever the provider claims.
				if ds := lookupString(r, domain.ColDate); ds != "" {
					if d, err := time.Parse(domain.DateLayout, ds); err == nil {
						in, err := domain.InSeason(mk.league, season, d)
						if err == nil && !in {
							return false
						}
					}
				}
				return true
			})
		}
	}
	if v, ok := mk.residual[domain.FieldSegment]; ok {
		want, _ := v.(int)
		t = mk.keep(t, func(r domain.Row) bool {
			p, ok := rowPeriod(r)
			return ok && p == want
		})
	}
	if from, ok := mk.residual[domain.FieldDateFrom]; ok {
		t = mk.filterDates(t, asResidualString(from), true)
	}
	if to, ok := mk.residual[domain.FieldDateTo]; ok {
		t = mk.filterDates(t, asResidualString(to), false)
	}
	return t
}

func (mk *masker) filterDates(t domain.Table, bound string, lower bool) domain.Table {
	limit, err := time.Parse(domain.DateLayout, bound)
	if err != nil {
		return t
	}
	return mk.keep(t, func(r domain.Row) bool {
		s := lookupString(r, domain.ColDate)
		if s == "" {
			return true
		}
		d, err := time.Parse(domain.DateLayout, s)
		if err != nil {
			return true
		}
		if lower {
			return !d.Before(limit)
		}
		return !d.After(limit)
	})
}

func (mk *masker) numericPhase(t domain.Table, _ domain.Dataset) domain.Table {
	if v, ok := mk.residual[domain.FieldMinMinutes]; ok {
		min := asResidualFloat(v)
		t = mk.keep(t, func(r domain.Row) bool {
			m, ok := rowMinutes(r)
			return !ok || m >= min
		})
	}
	from, hasFrom := mk.residual[domain.FieldClockFrom]
	to, hasTo := mk.residual[domain.FieldClockTo]
	if hasFrom || hasTo {
		fromSec, okFrom := parseClock(asResidualString(from))
		toSec, okTo := parseClock(asResidualString(to))
		t = mk.keep(t, func(r domain.Row) bool {
			sec, ok := parseClock(lookupString(r, domain.ColClock))
			if !ok {
				return false
			}
			// Clock counts down, so "from 10:00 to 5:00" keeps the window
			// between those remaining-time marks.
			if hasFrom && okFrom && sec > fromSec {
				return false
			}
			if hasTo && okTo && sec < toSec {
				return false
			}
			return true
		})
	}
	if v, ok := mk.residual[domain.FieldLastNGames]; ok {
		n, _ := v.(int)
		if n > 0 {
			t = lastNGames(t, n)
		}
	}
	return t
}

// lastNGames keeps rows belonging to the n most recent game dates present in
// the table. Rows without a parseable date are dropped, since they cannot be
// placed in the recency ordering.
func lastNGames(t domain.Table, n int) domain.Table {
	type dated struct {
		date   time.Time
		gameID string
	}
	seen := make(map[string]dated)
	for _, r := range t.Rows {
		gid := lookupString(r, domain.ColGameID)
		ds := lookupString(r, domain.ColDate)
		d, err := time.Parse(domain.DateLayout, ds)
		if err != nil || gid == "" {
			continue
		}
		seen[gid] = dated{date: d, gameID: gid}
	}
	games := make([]dated, 0, len(seen))
	for _, g := range seen {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].date.After(games[j].date) })
	if len(games) > n {
		games = games[:n]
	}
	keep := make(map[string]bool, len(games))
	for _, g := range games {
		keep[g.gameID] = true
	}
	out := domain.Table{Columns: t.Columns, Rows: make([]domain.Row, 0, len(t.Rows))}
	for _, r := range t.Rows {
		if keep[lookupString(r, domain.ColGameID)] {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

func (mk *masker) stringPhase(t domain.Table, dataset domain.Dataset) domain.Table {
	if v, ok := mk.residual[domain.FieldTeam]; ok {
		set := normalizedSet(v)
		t = mk.keep(t, func(r domain.Row) bool {
			if name := normalizeText(lookupString(r, domain.ColTeamName)); name != "" {
				return set[name]
			}
			if dataset == domain.DatasetSchedule {
				return set[normalizeText(lookupString(r, domain.ColHomeTeam))] ||
					set[normalizeText(lookupString(r, domain.ColAwayTeam))]
			}
			return true
		})
	}
	if v, ok := mk.residual[domain.FieldOpponent]; ok {
		set := normalizedSet(v)
		t = mk.keep(t, func(r domain.Row) bool {
			name := normalizeText(lookupString(r, "opponent_name"))
			return name == "" || set[name]
		})
	}
	if v, ok := mk.residual[domain.FieldPlayer]; ok {
		set := normalizedSet(v)
		t = mk.keep(t, func(r domain.Row) bool {
			name := normalizeText(lookupString(r, "player_name"))
			return name == "" || set[name]
		})
	}
	for field, canonical := range map[string]string{
		domain.FieldVenue:      domain.ColVenue,
		domain.FieldConference: "conference",
		domain.FieldDivision:   "division",
		domain.FieldTournament: "tournament",
	} {
		if v, ok := mk.residual[field]; ok {
			want := normalizeText(asResidualString(v))
			col := canonical
			t = mk.keep(t, func(r domain.Row) bool {
				have := normalizeText(lookupString(r, col))
				return have == "" || have == want
			})
		}
	}
	return t
}

// completenessPhase drops rows missing any column the dataset requires for a
// record to be usable downstream.
func (mk *masker) completenessPhase(t domain.Table, dataset domain.Dataset) domain.Table {
	required := domain.RequiredColumns(dataset)
	return mk.keep(t, func(r domain.Row) bool {
		for _, c := range required {
			if v, ok := lookup(r, c); !ok || v == nil || v == "" {
				return false
			}
		}
		return true
	})
}

func normalizedSet(v any) map[string]bool {
	out := make(map[string]bool)
	for s := range stringSet(v) {
		out[normalizeText(s)] = true
	}
	return out
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func asResidualString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asResidualFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	}
	return 0
}

func rowPeriod(r domain.Row) (int, bool) {
	v, ok := lookup(r, domain.ColPeriod)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// rowMinutes reads a minutes column that providers emit either as a float or
// as "MM:SS".
func rowMinutes(r domain.Row) (float64, bool) {
	v, ok := lookup(r, domain.ColMinutes)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		if sec, ok := parseClock(x); ok {
			return float64(sec) / 60.0, true
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// parseClock converts "MM:SS" (or a bare seconds count) to seconds remaining.
func parseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		m, err1 := strconv.Atoi(s[:i])
		sec, err2 := strconv.Atoi(s[i+1:])
		if err1 != nil || err2 != nil || sec < 0 || sec > 59 {
			return 0, false
		}
		return m*60 + sec, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
