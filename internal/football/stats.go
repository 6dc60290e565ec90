package football

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

var (
	// ErrTeamNotFound is returned when no team matches the given name.
	ErrTeamNotFound = errors.New("football: team not found")

	// ErrNoMatches is returned when a team has no recent finished matches.
	ErrNoMatches = errors.New("football: no recent matches")
)

// recentMatchLimit bounds how many finished matches feed the form stats.
const recentMatchLimit = 10

// FindTeam resolves a free-text team name to an API team by
// case-insensitive substring match, mirroring how users type team names
// into chat commands.
func (c *Client) FindTeam(ctx context.Context, name string) (*APITeam, error) {
	var resp TeamsResponse
	if err := c.get(ctx, "/teams", nil, &resp); err != nil {
		return nil, fmt.Errorf("find team: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(name))
	for i := range resp.Teams {
		t := &resp.Teams[i]
		if strings.Contains(strings.ToLower(t.Name), needle) ||
			strings.Contains(strings.ToLower(t.ShortName), needle) ||
			strings.EqualFold(t.TLA, needle) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTeamNotFound, name)
}

// TeamStats aggregates the team's last finished matches into form
// features: goal averages and win rate.
func (c *Client) TeamStats(ctx context.Context, name string) (*TeamStats, error) {
	team, err := c.FindTeam(ctx, name)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("status", "FINISHED")
	query.Set("limit", strconv.Itoa(recentMatchLimit))

	var resp MatchesResponse
	path := fmt.Sprintf("/teams/%d/matches", team.ID)
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("team matches: %w", err)
	}
	if len(resp.Matches) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatches, name)
	}

	stats := &TeamStats{Team: name, Matches: len(resp.Matches)}
	goalsFor, goalsAgainst := 0, 0

	for _, m := range resp.Matches {
		home := m.HomeTeam.ID == team.ID
		hg, ag := 0, 0
		if m.Score.FullTime.Home != nil {
			hg = *m.Score.FullTime.Home
		}
		if m.Score.FullTime.Away != nil {
			ag = *m.Score.FullTime.Away
		}

		if home {
			goalsFor += hg
			goalsAgainst += ag
		} else {
			goalsFor += ag
			goalsAgainst += hg
		}

		switch {
		case m.Score.Winner == WinnerDraw:
			stats.Draws++
		case (home && m.Score.Winner == WinnerHome) || (!home && m.Score.Winner == WinnerAway):
			stats.Wins++
		default:
			stats.Losses++
		}
	}

	n := float64(stats.Matches)
	stats.GoalsForAvg = round2(float64(goalsFor) / n)
	stats.GoalsAgainst = round2(float64(goalsAgainst) / n)
	stats.WinRate = round2(float64(stats.Wins) / n * 100)

	c.logger.Info("team stats fetched",
		"team", name,
		"matches", stats.Matches,
		"goals_for_avg", stats.GoalsForAvg,
		"win_rate", stats.WinRate,
	)
	return stats, nil
}

// FinishedMatches returns recent finished results for the evaluation
// cycle, most recent first per the API's default ordering.
func (c *Client) FinishedMatches(ctx context.Context, limit int) ([]Result, error) {
	query := url.Values{}
	query.Set("status", "FINISHED")
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp MatchesResponse
	if err := c.get(ctx, "/matches", query, &resp); err != nil {
		return nil, fmt.Errorf("finished matches: %w", err)
	}

	results := make([]Result, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m.Score.FullTime.Home == nil || m.Score.FullTime.Away == nil {
			continue
		}
		r := Result{
			HomeTeam:  m.HomeTeam.Name,
			AwayTeam:  m.AwayTeam.Name,
			HomeGoals: *m.Score.FullTime.Home,
			AwayGoals: *m.Score.FullTime.Away,
			PlayedAt:  m.UTCDate,
		}
		switch {
		case r.HomeGoals > r.AwayGoals:
			r.Winner = "home"
		case r.HomeGoals < r.AwayGoals:
			r.Winner = "away"
		default:
			r.Winner = "draw"
		}
		results = append(results, r)
	}
	return results, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
