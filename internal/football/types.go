package football

import "time"

// APITeam is a team as returned by /teams.
type APITeam struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	TLA       string `json:"tla"`
}

// TeamsResponse is the envelope for GET /teams.
type TeamsResponse struct {
	Count int       `json:"count"`
	Teams []APITeam `json:"teams"`
}

// Winner values used by the API.
const (
	WinnerHome = "HOME_TEAM"
	WinnerAway = "AWAY_TEAM"
	WinnerDraw = "DRAW"
)

// APIScore holds the full-time score and declared winner of a match.
type APIScore struct {
	Winner   string `json:"winner"`
	FullTime struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"fullTime"`
}

// APIMatch is a match as returned by /matches endpoints.
type APIMatch struct {
	ID       int64     `json:"id"`
	UTCDate  time.Time `json:"utcDate"`
	Status   string    `json:"status"`
	HomeTeam APITeam   `json:"homeTeam"`
	AwayTeam APITeam   `json:"awayTeam"`
	Score    APIScore  `json:"score"`
}

// MatchesResponse is the envelope for GET /matches and
// GET /teams/{id}/matches.
type MatchesResponse struct {
	Matches []APIMatch `json:"matches"`
}

// TeamStats aggregates a team's recent finished matches into the form
// features the predictor consumes.
type TeamStats struct {
	Team         string  `json:"team"`
	Matches      int     `json:"matches"`
	GoalsForAvg  float64 `json:"goals_for_avg"`
	GoalsAgainst float64 `json:"goals_against_avg"`
	Wins         int     `json:"wins"`
	Draws        int     `json:"draws"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"` // percent
}

// Result is one finished match outcome used by the evaluation cycle.
type Result struct {
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	HomeGoals int       `json:"home_goals"`
	AwayGoals int       `json:"away_goals"`
	Winner    string    `json:"winner"` // "home", "draw", "away"
	PlayedAt  time.Time `json:"played_at"`
}
