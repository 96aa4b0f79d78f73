package ranking

import (
	"fmt"
	"time"
)

// Policy names accepted in configuration.
const (
	PolicyCumulative   = "cumulative"
	PolicyFirstCorrect = "first-correct"
	PolicyFirstAnswer  = "first-answer"
)

// Policy decides who is ranked and in which order. A deployment fixes exactly
// one policy; the recomputation engine and the leaderboard share it.
type Policy interface {
	Name() string
	// Eligible reports whether the user receives a rank at all.
	Eligible(t Tally) bool
	// Less reports whether a ranks strictly above b.
	Less(a, b Tally) bool
	// Timestamp is the time shown next to the user on the leaderboard.
	Timestamp(t Tally) time.Time
}

// ParsePolicy returns the policy registered under name. Empty selects first-correct.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", PolicyFirstCorrect:
		return FirstCorrect(), nil
	case PolicyCumulative:
		return Cumulative(), nil
	case PolicyFirstAnswer:
		return FirstAnswer(), nil
	}
	return nil, fmt.Errorf("unknown ranking policy %q", name)
}

type cumulative struct{}

// Cumulative ranks every user by score, highest first.
func Cumulative() Policy { return cumulative{} }

func (cumulative) Name() string { return PolicyCumulative }
func (cumulative) Eligible(Tally) bool { return true }
func (cumulative) Less(a, b Tally) bool { return a.Score > b.Score }
func (cumulative) Timestamp(t Tally) time.Time { return t.LatestAnswer }

type firstCorrect struct{}

// FirstCorrect ranks by questions won (first correct answer overall), then by
// correct answers, then by whoever answered correctly first. Users without a
// correct answer are unranked.
func FirstCorrect() Policy { return firstCorrect{} }

func (firstCorrect) Name() string { return PolicyFirstCorrect }
func (firstCorrect) Eligible(t Tally) bool { return t.Correct > 0 }

func (firstCorrect) Less(a, b Tally) bool {
	if a.FirstCorrect != b.FirstCorrect {
		return a.FirstCorrect > b.FirstCorrect
	}
	if a.Correct != b.Correct {
		return a.Correct > b.Correct
	}
	return a.EarliestCorrect.Before(b.EarliestCorrect)
}

func (firstCorrect) Timestamp(t Tally) time.Time { return t.EarliestCorrect }

type firstAnswer struct{}

// FirstAnswer ranks by the time of each user's first response of any kind.
// Users who never answered are unranked.
func FirstAnswer() Policy { return firstAnswer{} }

func (firstAnswer) Name() string { return PolicyFirstAnswer }
func (firstAnswer) Eligible(t Tally) bool { return t.Answered > 0 }
func (firstAnswer) Less(a, b Tally) bool { return a.EarliestAnswer.Before(b.EarliestAnswer) }

func (firstAnswer) Timestamp(t Tally) time.Time { return t.EarliestAnswer }
