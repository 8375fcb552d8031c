package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/statlinehq/statline/internal/stats/domain"
)

const defaultFanOutWorkers = 6

// fanOut issues one guarded per-game call per id through a fixed-size worker
// pool and merges the results as an order-independent set. Every requested
// id is accounted for before return: it either contributed rows (possibly
// zero) or shows up in the failure report. The call fails only when every
// id failed; partial failures are logged and counted but do not discard the
// games that succeeded.
func (e *Engine) fanOut(ctx context.Context, d *domain.ProviderDescriptor, base map[string]any, gameIDs []string, idColumns []string) (domain.Table, error) {
	type result struct {
		gameID string
		table  domain.Table
		err    error
	}

	jobs := make(chan string)
	results := make(chan result, len(gameIDs))

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				params := cloneParams(base)
				params[domain.FieldGameIDs] = id
				out, err := e.guard.Call(ctx, d.ProviderID, func(ctx context.Context) (domain.Outcome, error) {
					return d.Adapter.Fetch(ctx, params)
				})
				if err != nil {
					results <- result{gameID: id, err: err}
					continue
				}
				results <- result{gameID: id, table: out.Table}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, id := range gameIDs {
			select {
			case jobs <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	merged := domain.Table{Rows: []domain.Row{}}
	var failed []string
	for r := range results {
		if r.err != nil {
			failed = append(failed, r.gameID)
			e.logger.Warn(map[string]any{
				"provider": d.ProviderID,
				"game_id":  r.gameID,
				"error":    r.err.Error(),
			}, "per-game fetch failed")
			continue
		}
		merged.Merge(r.table, idColumns...)
	}
	if err := ctx.Err(); err != nil {
		return domain.Table{}, err
	}
	if len(failed) == len(gameIDs) && len(gameIDs) > 0 {
		return domain.Table{}, domain.Permanent(d.ProviderID,
			fmt.Errorf("all %d per-game fetches failed", len(gameIDs)))
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		e.logger.Warn(map[string]any{
			"provider": d.ProviderID,
			"failed":   failed,
			"total":    len(gameIDs),
		}, "fan-out completed with partial failures")
	}
	return merged, nil
}

// deriveSeasonTotals assembles season totals for leagues whose provider has
// no bulk totals endpoint: the schedule supplies the game list, box scores
// are fetched per game through the pool, and the per-game lines are grouped
// and summed client-side.
func (e *Engine) deriveSeasonTotals(ctx context.Context, f *domain.FilterModel) (domain.Table, error) {
	box, ok := e.registry.Resolve(domain.DatasetBoxScore, f.League)
	if !ok {
		return domain.Table{}, fmt.Errorf("season totals for league %s cannot be derived: %w", f.League, domain.ErrNotSupported)
	}

	ids, err := e.scheduleGameIDs(ctx, f)
	if err != nil {
		return domain.Table{}, err
	}
	if len(ids) == 0 {
		return domain.NewTable(domain.RequiredColumns(domain.DatasetSeasonTotals)...), nil
	}

	boxFilter := &domain.FilterModel{
		Aggregate:  domain.AggregateTotal,
		League:     f.League,
		Season:     f.Season,
		SeasonType: f.SeasonType,
		TeamIDs:    append([]string(nil), f.TeamIDs...),
		PlayerIDs:  append([]string(nil), f.PlayerIDs...),
		Teams:      append([]string(nil), f.Teams...),
		Players:    append([]string(nil), f.Players...),
		MinMinutes: f.MinMinutes,
		HomeAway:   f.HomeAway,
	}
	req, _ := compile(boxFilter, box)

	lines, err := e.fanOut(ctx, box, req.ProviderParams, ids, mergeIDColumns(domain.DatasetBoxScore))
	if err != nil {
		return domain.Table{}, err
	}

	mk := newMasker(req.Residual, f.League, e.metrics)
	lines = mk.apply(lines, domain.DatasetBoxScore)

	return aggregateLines(lines, f), nil
}

func numericValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// aggregateLines groups per-game box score lines by player and team, sums
// every numeric column, and applies the requested aggregate mode.
func aggregateLines(lines domain.Table, f *domain.FilterModel) domain.Table {
	type group struct {
		row   domain.Row
		sums  map[string]float64
		games int
	}
	groups := make(map[string]*group)
	var order []string

	for _, r := range lines.Rows {
		pid := lookupString(r, domain.ColPlayerID)
		tid := lookupString(r, domain.ColTeamID)
		key := pid + "\x1f" + tid
		g, ok := groups[key]
		if !ok {
			g = &group{
				row: domain.Row{
					domain.ColPlayerID: pid,
					domain.ColTeamID:   tid,
					domain.ColSeason:   f.Season,
					domain.ColLeague:   string(f.League),
				},
				sums: make(map[string]float64),
			}
			if name := lookupString(r, "player_name"); name != "" {
				g.row["player_name"] = name
			}
			if name := lookupString(r, domain.ColTeamName); name != "" {
				g.row[domain.ColTeamName] = name
			}
			groups[key] = g
			order = append(order, key)
		}
		g.games++
		for col, v := range r {
			if col == domain.ColPlayerID || col == domain.ColTeamID || col == domain.ColMinutes {
				continue
			}
			if fv, ok := numericValue(v); ok {
				g.sums[col] += fv
			}
		}
		// Minutes may arrive as "MM:SS"; parse rather than sum raw.
		if m, ok := rowMinutes(r); ok {
			g.sums[domain.ColMinutes] += m
		}
	}

	out := domain.Table{Rows: make([]domain.Row, 0, len(groups))}
	for _, key := range order {
		g := groups[key]
		row := g.row
		row["games_played"] = g.games
		minutes := g.sums[domain.ColMinutes]
		for col, sum := range g.sums {
			switch f.Aggregate {
			case domain.AggregatePerGame:
				if g.games > 0 {
					row[col] = sum / float64(g.games)
				}
			case domain.AggregatePer40:
				if col == domain.ColMinutes {
					row[col] = sum
				} else if minutes > 0 {
					row[col] = sum / minutes * 40.0
				}
			default:
				row[col] = sum
			}
		}
		out.Append(row)
	}
	return out
}
