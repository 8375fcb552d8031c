package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/statlinehq/statline/internal/stats/domain"
)

// mergeIDColumns gives the row-identity tuple used when per-game fetches are
// merged as an order-independent set.
func mergeIDColumns(dataset domain.Dataset) []string {
	switch dataset {
	case domain.DatasetSchedule:
		return []string{domain.ColGameID}
	case domain.DatasetBoxScore:
		return []string{domain.ColGameID, domain.ColPlayerID}
	case domain.DatasetPlayByPlay, domain.DatasetShotChart:
		return []string{domain.ColGameID, domain.ColEventID}
	case domain.DatasetSeasonTotals:
		return []string{domain.ColPlayerID, domain.ColTeamID}
	}
	return nil
}

// dispatch executes a compiled request against its provider, going through
// the schedule-then-fetch path when the provider only answers per-game
// queries, and fanning out when multiple game ids are in play. The returned
// table is already masked, so it is safe to cache as-is.
func (e *Engine) dispatch(ctx context.Context, d *domain.ProviderDescriptor, req *domain.CompiledRequest, f *domain.FilterModel) (domain.Table, error) {
	gameIDs := f.GameIDs
	if d.RequiresGameID && len(gameIDs) == 0 {
		ids, err := e.scheduleGameIDs(ctx, f)
		if err != nil {
			return domain.Table{}, err
		}
		if len(ids) == 0 {
			return maskedEmpty(req), nil
		}
		gameIDs = ids
	}

	e.logger.Debug(map[string]any{
		"provider": d.ProviderID,
		"dataset":  string(d.Dataset),
		"params":   describeParams(req.ProviderParams),
		"games":    len(gameIDs),
	}, "dispatching provider call")

	var (
		out domain.Outcome
		err error
	)
	switch {
	case len(gameIDs) > 1:
		var t domain.Table
		t, err = e.fanOut(ctx, d, req.ProviderParams, gameIDs, mergeIDColumns(d.Dataset))
		if err != nil {
			return domain.Table{}, err
		}
		out = domain.OK(t)
	case len(gameIDs) == 1:
		params := cloneParams(req.ProviderParams)
		params[domain.FieldGameIDs] = gameIDs[0]
		out, err = e.guard.Call(ctx, d.ProviderID, func(ctx context.Context) (domain.Outcome, error) {
			return d.Adapter.Fetch(ctx, params)
		})
	default:
		out, err = e.guard.Call(ctx, d.ProviderID, func(ctx context.Context) (domain.Outcome, error) {
			return d.Adapter.Fetch(ctx, req.ProviderParams)
		})
	}
	if err != nil {
		return domain.Table{}, err
	}

	switch out.Status {
	case domain.StatusNotSupported:
		return domain.Table{}, fmt.Errorf("provider %s: %w", d.ProviderID, domain.ErrNotSupported)
	case domain.StatusEmpty:
		return maskedEmpty(req), nil
	}

	mk := newMasker(req.Residual, d.League, e.metrics)
	t := mk.apply(out.Table, d.Dataset)
	e.logger.Debug(map[string]any{
		"provider":      d.ProviderID,
		"alias_version": aliasVersion,
		"phases":        mk.phasesRun,
		"rows":          t.Len(),
	}, "mask applied")
	return t, nil
}

// scheduleGameIDs resolves the game identifiers a season- or range-level
// request covers, by running the schedule dataset through the same pipeline
// (cache included) and reading game ids off the rows.
func (e *Engine) scheduleGameIDs(ctx context.Context, f *domain.FilterModel) ([]string, error) {
	sched := &domain.FilterModel{
		League:     f.League,
		Season:     f.Season,
		SeasonType: f.SeasonType,
		DateFrom:   f.DateFrom,
		DateTo:     f.DateTo,
		TeamIDs:    append([]string(nil), f.TeamIDs...),
		Teams:      append([]string(nil), f.Teams...),
	}
	d, ok := e.registry.Resolve(domain.DatasetSchedule, f.League)
	if !ok {
		return nil, fmt.Errorf("no schedule source for league %s: %w", f.League, domain.ErrNotSupported)
	}
	t, err := e.execute(ctx, domain.DatasetSchedule, d, sched, false)
	if err != nil {
		return nil, err
	}
	var ids []string
	seen := make(map[string]bool, t.Len())
	for _, r := range t.Rows {
		id := lookupString(r, domain.ColGameID)
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// maskedEmpty shapes a zero-row result with the columns the caller can rely
// on for the dataset. Empty is a valid answer and must carry the schema.
func maskedEmpty(req *domain.CompiledRequest) domain.Table {
	return domain.NewTable(domain.RequiredColumns(req.Meta.Dataset)...)
}

func cloneParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	return out
}

// notSupportedOutcome reports whether err marks a query type the resolved
// provider cannot answer, as opposed to a provider fault.
func notSupportedOutcome(err error) bool {
	return errors.Is(err, domain.ErrNotSupported)
}
