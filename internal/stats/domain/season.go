package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var seasonRe = regexp.MustCompile(`^(\d{4})(?:-(\d{2}))?$`)

// ParseSeason normalizes a season label to the calendar year the season ends
// in. Accepted forms are "2024" and "2023-24"; both normalize to 2024 for a
// league whose season crosses the year boundary, and "2024" means the 2024
// calendar season for leagues that play within one year.
func ParseSeason(label string) (int, error) {
	m := seasonRe.FindStringSubmatch(label)
	if m == nil {
		return 0, fmt.Errorf("invalid season %q: want YYYY or YYYY-YY", label)
	}
	year, err := strconv.Atoi(m[1])
	if err != nil || year < 1900 || year > 2100 {
		return 0, fmt.Errorf("invalid season year %q", m[1])
	}
	if m[2] == "" {
		return year, nil
	}
	// "2023-24" names the span start year first; the canonical year is the
	// ending one.
	suffix, _ := strconv.Atoi(m[2])
	end := (year/100)*100 + suffix
	if end < year {
		end += 100 // 1999-00
	}
	if end != year+1 {
		return 0, fmt.Errorf("invalid season span %q: years must be consecutive", label)
	}
	return end, nil
}

// seasonWindow describes a league's calendar convention for one season.
type seasonWindow struct {
	startMonth time.Month
	startDay   int
	endMonth   time.Month
	endDay     int
	crossYear  bool // season starts in the calendar year before it ends
}

var seasonWindows = map[League]seasonWindow{
	LeagueNBA:     {time.October, 1, time.June, 30, true},
	LeagueWNBA:    {time.May, 1, time.October, 31, false},
	LeagueNCAAB:   {time.November, 1, time.April, 30, true},
	LeagueGLeague: {time.November, 1, time.April, 30, true},
}

// SeasonDateRange maps a season label to the concrete inclusive start/end
// dates for the league. Several providers silently default to "today" when no
// date range is supplied, so every season-wide provider call must carry the
// boundary this produces.
//
// Both boundary dates are inclusive: a game on the start or end date belongs
// to the season.
func SeasonDateRange(league League, season string) (time.Time, time.Time, error) {
	endYear, err := ParseSeason(season)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	w, ok := seasonWindows[league]
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("no season calendar for league %q", league)
	}
	startYear := endYear
	if w.crossYear {
		startYear = endYear - 1
	}
	start := time.Date(startYear, w.startMonth, w.startDay, 0, 0, 0, 0, time.UTC)
	end := time.Date(endYear, w.endMonth, w.endDay, 0, 0, 0, 0, time.UTC)
	return start, end, nil
}

// InSeason reports whether date falls within the league's inferred season
// window, inclusive on both ends.
func InSeason(league League, season string, date time.Time) (bool, error) {
	start, end, err := SeasonDateRange(league, season)
	if err != nil {
		return false, err
	}
	d := date.Truncate(24 * time.Hour)
	return !d.Before(start) && !d.After(end), nil
}
