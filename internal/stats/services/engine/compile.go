package engine

import (
	"fmt"
	"strings"

	"github.com/statlinehq/statline/internal/stats/domain"
)

// compile turns a validated filter model into a compiled request against one
// provider's declared capabilities. Each filter field lands in exactly one
// of three places: a provider-native parameter, the residual client-side
// set, or nowhere (dropped with a warning when neither side can honor it).
func compile(f *domain.FilterModel, d *domain.ProviderDescriptor) (*domain.CompiledRequest, []string) {
	req := &domain.CompiledRequest{
		ProviderParams: make(map[string]any),
		Residual:       make(map[string]any),
		Meta: domain.RequestMeta{
			Dataset:    d.Dataset,
			League:     d.League,
			Season:     f.Season,
			ProviderID: d.ProviderID,
			Limit:      f.Limit,
			Columns:    f.Columns,
		},
	}
	var warnings []string
	caps := d.Capabilities

	// Season and dates. When the caller supplied only a season but the
	// provider speaks date ranges, derive the concrete season boundary:
	// several providers silently default to "today" without an explicit
	// range, which turns season-wide queries into wrong or empty answers.
	dateFrom, dateTo := f.DateFrom, f.DateTo
	if f.Season != "" {
		if caps.Season {
			req.ProviderParams[domain.FieldSeason] = f.Season
		} else if caps.DateRange && !f.HasDateRange() {
			start, end, err := domain.SeasonDateRange(f.League, f.Season)
			if err == nil {
				dateFrom, dateTo = start, end
			} else {
				warnings = append(warnings, fmt.Sprintf("season %q has no inferable date range: %v", f.Season, err))
			}
		}
		// The season always stays available as a residual so masked rows
		// carrying a season column agree with the request.
		req.Residual[domain.FieldSeason] = f.Season
	}

	if !dateFrom.IsZero() || !dateTo.IsZero() {
		if caps.DateRange {
			if !dateFrom.IsZero() {
				req.ProviderParams[domain.FieldDateFrom] = dateFrom.Format(domain.DateLayout)
			}
			if !dateTo.IsZero() {
				req.ProviderParams[domain.FieldDateTo] = dateTo.Format(domain.DateLayout)
			}
		} else {
			if !dateFrom.IsZero() {
				req.Residual[domain.FieldDateFrom] = dateFrom.Format(domain.DateLayout)
			}
			if !dateTo.IsZero() {
				req.Residual[domain.FieldDateTo] = dateTo.Format(domain.DateLayout)
			}
		}
	}

	if f.SeasonType != "" {
		if caps.SeasonType {
			req.ProviderParams[domain.FieldSeasonType] = f.SeasonType
		} else {
			req.Residual[domain.FieldSeasonType] = f.SeasonType
		}
	}

	// Identifier filters push down only when single-valued; providers take
	// one id per call, multi-value stays residual.
	pushIDs(req, domain.FieldTeamID, f.TeamIDs, caps.TeamID)
	pushIDs(req, domain.FieldPlayerID, f.PlayerIDs, caps.PlayerID)

	if len(f.GameIDs) > 0 {
		if caps.GameID && len(f.GameIDs) == 1 {
			req.ProviderParams[domain.FieldGameIDs] = f.GameIDs[0]
		}
		// Always residual too: dispatch may fan out over the ids, and the
		// mask guarantees no foreign rows leak through.
		req.Residual[domain.FieldGameIDs] = f.GameIDs
	}

	if f.HomeAway != "" {
		if caps.HomeAway {
			req.ProviderParams[domain.FieldHomeAway] = f.HomeAway
		} else {
			req.Residual[domain.FieldHomeAway] = f.HomeAway
		}
	}

	// Residual-only concerns: no provider in the registry takes these
	// server-side, and the mask applier handles them all.
	if len(f.OpponentIDs) > 0 {
		req.Residual[domain.FieldOpponentID] = f.OpponentIDs
	}
	if len(f.Teams) > 0 {
		req.Residual[domain.FieldTeam] = f.Teams
	}
	if len(f.Opponents) > 0 {
		req.Residual[domain.FieldOpponent] = f.Opponents
	}
	if len(f.Players) > 0 {
		req.Residual[domain.FieldPlayer] = f.Players
	}
	if f.MinMinutes > 0 {
		req.Residual[domain.FieldMinMinutes] = f.MinMinutes
	}
	if f.Segment > 0 {
		req.Residual[domain.FieldSegment] = f.Segment
		if f.Segment > f.League.Periods() {
			warnings = append(warnings, fmt.Sprintf("segment %d is past regulation for %s (%d periods); only overtime rows can match",
				f.Segment, f.League, f.League.Periods()))
		}
	}
	if f.LastNGames > 0 {
		req.Residual[domain.FieldLastNGames] = f.LastNGames
	}
	if f.Venue != "" {
		req.Residual[domain.FieldVenue] = f.Venue
	}
	if f.Conference != "" {
		req.Residual[domain.FieldConference] = f.Conference
	}
	if f.Division != "" {
		req.Residual[domain.FieldDivision] = f.Division
	}
	if f.Tournament != "" {
		req.Residual[domain.FieldTournament] = f.Tournament
	}

	// Clock windows need provider support or a parseable clock column;
	// neither is guaranteed, so an unparseable combination is dropped
	// loudly rather than silently misfiltered.
	if f.ClockFrom != "" || f.ClockTo != "" {
		if f.Segment > 0 {
			if f.ClockFrom != "" {
				req.Residual[domain.FieldClockFrom] = f.ClockFrom
			}
			if f.ClockTo != "" {
				req.Residual[domain.FieldClockTo] = f.ClockTo
			}
		} else {
			warnings = append(warnings, "clock window without a segment cannot be applied and was dropped")
		}
	}

	if f.Aggregate != domain.AggregateTotal {
		req.Residual[domain.FieldAggregate] = string(f.Aggregate)
	}

	return req, warnings
}

func pushIDs(req *domain.CompiledRequest, field string, ids []string, capable bool) {
	if len(ids) == 0 {
		return
	}
	if capable && len(ids) == 1 {
		req.ProviderParams[field] = ids[0]
		return
	}
	req.Residual[field] = ids
}

// describeParams renders provider params for debug logs.
func describeParams(params map[string]any) string {
	parts := make([]string, 0, len(params))
	for k, v := range params {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, " ")
}
