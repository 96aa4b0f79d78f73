package ranking

import (
	"sort"
	"time"

	"trivia-rank-service/internal/domain"
)

// Tally is the per-user aggregate every policy ranks on.
type Tally struct {
	UserID          string
	Score           int
	Answered        int
	Correct         int
	FirstCorrect    int
	EarliestCorrect time.Time
	EarliestAnswer  time.Time
	LatestAnswer    time.Time
}

// Standing is a tally with its 1-based position.
type Standing struct {
	Tally
	Rank int
}

// Tabulate aggregates responses per user. Score is the sum of awarded points.
// A question's first-correct credit goes to the earliest correct response;
// simultaneous correct responses are credited to the lowest user id.
func Tabulate(responses []domain.Response) map[string]*Tally {
	type first struct {
		userID string
		at     time.Time
	}
	firsts := make(map[string]first)
	for _, r := range responses {
		if !r.Correct {
			continue
		}
		cur, ok := firsts[r.QuestionID]
		if !ok || r.AnsweredAt.Before(cur.at) || (r.AnsweredAt.Equal(cur.at) && r.UserID < cur.userID) {
			firsts[r.QuestionID] = first{userID: r.UserID, at: r.AnsweredAt}
		}
	}

	tallies := make(map[string]*Tally)
	for _, r := range responses {
		t, ok := tallies[r.UserID]
		if !ok {
			t = &Tally{UserID: r.UserID}
			tallies[r.UserID] = t
		}
		t.Score += r.Points
		t.Answered++
		if t.EarliestAnswer.IsZero() || r.AnsweredAt.Before(t.EarliestAnswer) {
			t.EarliestAnswer = r.AnsweredAt
		}
		if r.AnsweredAt.After(t.LatestAnswer) {
			t.LatestAnswer = r.AnsweredAt
		}
		if !r.Correct {
			continue
		}
		t.Correct++
		if firsts[r.QuestionID].userID == r.UserID {
			t.FirstCorrect++
		}
		if t.EarliestCorrect.IsZero() || r.AnsweredAt.Before(t.EarliestCorrect) {
			t.EarliestCorrect = r.AnsweredAt
		}
	}
	return tallies
}

// Rank orders the eligible tallies by the policy and assigns 1-based ranks.
// Ties the policy leaves open are broken by user id so the order is total.
func Rank(p Policy, tallies []Tally) []Standing {
	eligible := make([]Tally, 0, len(tallies))
	for _, t := range tallies {
		if p.Eligible(t) {
			eligible = append(eligible, t)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if p.Less(a, b) {
			return true
		}
		if p.Less(b, a) {
			return false
		}
		return a.UserID < b.UserID
	})

	standings := make([]Standing, len(eligible))
	for i, t := range eligible {
		standings[i] = Standing{Tally: t, Rank: i + 1}
	}
	return standings
}

// Standings ranks every known user against the full history. Each user's score
// is the materialized TotalScore rather than the response sum, so an admin
// reset that keeps history is honoured.
func Standings(p Policy, users []domain.User, responses []domain.Response) []Standing {
	byUser := Tabulate(responses)
	tallies := make([]Tally, 0, len(users))
	for _, u := range users {
		t := Tally{UserID: u.ID}
		if agg, ok := byUser[u.ID]; ok {
			t = *agg
		}
		t.Score = u.TotalScore
		tallies = append(tallies, t)
	}
	return Rank(p, tallies)
}

// WindowStandings ranks the users that responded within responses, scored on
// the points earned in that window.
func WindowStandings(p Policy, responses []domain.Response) []Standing {
	byUser := Tabulate(responses)
	tallies := make([]Tally, 0, len(byUser))
	for _, t := range byUser {
		tallies = append(tallies, *t)
	}
	return Rank(p, tallies)
}
