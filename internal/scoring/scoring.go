// Package scoring converts a single answer into points.
package scoring

import "time"

const (
	// BasePoints is awarded for any correct answer.
	BasePoints = 10
	// BonusMultiplier scales the fraction of time left into bonus points.
	BonusMultiplier = 5
	// QuestionDurationMs is how long a question stays open.
	QuestionDurationMs int64 = 30_000
)

// QuestionDuration is QuestionDurationMs as a time.Duration.
const QuestionDuration = time.Duration(QuestionDurationMs) * time.Millisecond

// ClampLatency bounds a client-reported latency to [0, QuestionDurationMs].
func ClampLatency(latencyMs int64) int64 {
	if latencyMs < 0 {
		return 0
	}
	if latencyMs > QuestionDurationMs {
		return QuestionDurationMs
	}
	return latencyMs
}

// Score returns the points for an answer. Incorrect answers score 0; correct
// answers score BasePoints plus a bonus proportional to the time remaining.
func Score(correct bool, latencyMs int64) int {
	if !correct {
		return 0
	}
	remaining := QuestionDurationMs - ClampLatency(latencyMs)
	// integer division is floor here since both operands are non-negative
	bonus := remaining * BonusMultiplier / QuestionDurationMs
	return BasePoints + int(bonus)
}
