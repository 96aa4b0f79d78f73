package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trivia-rank-service/internal/domain"
)

func TestParsePolicy(t *testing.T) {
	for name, want := range map[string]string{
		"":                 PolicyFirstCorrect,
		PolicyFirstCorrect: PolicyFirstCorrect,
		PolicyCumulative:   PolicyCumulative,
		PolicyFirstAnswer:  PolicyFirstAnswer,
	} {
		p, err := ParsePolicy(name)
		require.NoError(t, err)
		assert.Equal(t, want, p.Name())
	}
	_, err := ParsePolicy("fastest-fingers")
	assert.Error(t, err)
}

func TestCumulativeMonotonicInScore(t *testing.T) {
	users := []domain.User{
		{ID: "u1", TotalScore: 45},
		{ID: "u2", TotalScore: 10},
		{ID: "u3", TotalScore: 0},
		{ID: "u4", TotalScore: 30},
	}
	standings := Standings(Cumulative(), users, nil)
	require.Len(t, standings, 4, "cumulative ranks every user")

	rank := map[string]int{}
	score := map[string]int{}
	for _, s := range standings {
		rank[s.UserID] = s.Rank
		score[s.UserID] = s.Score
	}
	for _, a := range users {
		for _, b := range users {
			if score[a.ID] > score[b.ID] {
				assert.Less(t, rank[a.ID], rank[b.ID], "%s outscores %s", a.ID, b.ID)
			}
		}
	}
}

func TestFirstCorrectOrdering(t *testing.T) {
	responses := []domain.Response{
		// q1: early wins
		resp("early", "q1", true, 15, t0),
		resp("late", "q1", true, 14, t0.Add(2*time.Second)),
		// both answer q2 correctly, late first
		resp("late", "q2", true, 15, t0.Add(time.Minute)),
		resp("early", "q2", true, 10, t0.Add(2*time.Minute)),
		// busy is late everywhere but alone on q3
		resp("busy", "q1", true, 10, t0.Add(time.Hour)),
		resp("busy", "q2", true, 10, t0.Add(time.Hour)),
		resp("busy", "q3", true, 10, t0.Add(time.Hour)),
		resp("wrong", "q1", false, 0, t0.Add(-time.Hour)),
	}
	users := []domain.User{{ID: "early"}, {ID: "late"}, {ID: "busy"}, {ID: "wrong"}}

	standings := Standings(FirstCorrect(), users, responses)
	ids := make([]string, len(standings))
	for i, s := range standings {
		ids[i] = s.UserID
	}
	// busy: 1 first, 3 correct; early: 1 first, 2 correct, t0; late: 1 first, 2 correct, t0+2s
	assert.Equal(t, []string{"busy", "early", "late"}, ids)
}

func TestFirstCorrectTieBreakOnEarliestCorrect(t *testing.T) {
	responses := []domain.Response{
		resp("a", "q1", true, 15, t0.Add(2*time.Second)),
		resp("b", "q2", true, 15, t0),
	}
	standings := Rank(FirstCorrect(), tallySlice(Tabulate(responses)))
	require.Len(t, standings, 2)
	assert.Equal(t, "b", standings[0].UserID)
}

func TestFirstCorrectExcludesUsersWithoutCorrectAnswers(t *testing.T) {
	responses := []domain.Response{
		resp("a", "q1", true, 15, t0),
		resp("b", "q1", false, 0, t0),
	}
	standings := Standings(FirstCorrect(), []domain.User{{ID: "a"}, {ID: "b"}, {ID: "c"}}, responses)
	require.Len(t, standings, 1)
	assert.Equal(t, "a", standings[0].UserID)
}

func TestFirstAnswerOrdering(t *testing.T) {
	responses := []domain.Response{
		resp("slow", "q1", true, 15, t0.Add(time.Minute)),
		resp("fast", "q1", false, 0, t0),
	}
	standings := Standings(FirstAnswer(), []domain.User{{ID: "slow"}, {ID: "fast"}, {ID: "idle"}}, responses)
	require.Len(t, standings, 2)
	assert.Equal(t, "fast", standings[0].UserID)
	assert.Equal(t, t0, FirstAnswer().Timestamp(standings[0].Tally))
}

func tallySlice(m map[string]*Tally) []Tally {
	out := make([]Tally, 0, len(m))
	for _, t := range m {
		out = append(out, *t)
	}
	return out
}
