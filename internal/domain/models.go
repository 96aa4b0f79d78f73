package domain

import "time"

// Difficulty labels accepted for questions.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// DefaultDisplayName is shown when neither the user nor the identity provider has a label.
const DefaultDisplayName = "Player"

// Identity is the authenticated caller as asserted by the identity provider.
type Identity struct {
	ExternalID string
	Email      string
	Username   string
}

// IsZero reports whether no identity is present.
func (i Identity) IsZero() bool {
	return i.ExternalID == ""
}

// User mirrors an external identity and carries the materialized score state.
type User struct {
	ID          string    `json:"id"`
	ExternalID  string    `json:"externalId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	TotalScore  int       `json:"totalScore"`
	Rank        *int      `json:"rank"` // derived; valid as of the last recomputation
	CreatedAt   time.Time `json:"createdAt"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID         string    `json:"id"`
	Prompt     string    `json:"prompt"`
	Options    []Option  `json:"options"`
	Difficulty string    `json:"difficulty"`
	Points     int       `json:"points"`
	Category   string    `json:"category,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CorrectOption returns the option flagged as correct.
func (q Question) CorrectOption() (Option, bool) {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt, true
		}
	}
	return Option{}, false
}

// CorrectAnswer returns the text of the correct option, or "" if none is flagged.
func (q Question) CorrectAnswer() string {
	opt, _ := q.CorrectOption()
	return opt.Text
}

// Option looks up an option by its stable id.
func (q Question) Option(id string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// PublicQuestion is what a player sees before answering; correctness is withheld.
type PublicQuestion struct {
	ID         string         `json:"id"`
	Prompt     string         `json:"prompt"`
	Options    []PublicOption `json:"options"`
	Difficulty string         `json:"difficulty"`
	Points     int            `json:"points"`
	Category   string         `json:"category,omitempty"`
	DurationMs int64          `json:"durationMs"`
}

// PublicOption is an option without its correctness flag.
type PublicOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Response records one user's single attempt at one question. Immutable once stored.
type Response struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	QuestionID string    `json:"questionId"`
	Answer     string    `json:"answer"`
	Correct    bool      `json:"correct"`
	LatencyMs  int64     `json:"latencyMs"`
	Points     int       `json:"points"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// UserAggregate summarises a user's responses within some window.
type UserAggregate struct {
	UserID   string
	Points   int
	Answered int
	Earliest time.Time
}

// AnswerSubmission models the scoring signal from clients. Exactly one of
// OptionID or Answer identifies the chosen option.
type AnswerSubmission struct {
	QuestionID string `json:"questionId" validate:"required"`
	OptionID   string `json:"optionId" validate:"required_without=Answer,excluded_with=Answer"`
	Answer     string `json:"answer" validate:"required_without=OptionID"`
	LatencyMs  int64  `json:"responseTime"`
}

// AnswerResult summarizes the outcome of a submission for a single user.
type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	Points        int    `json:"points"`
	CorrectAnswer string `json:"correctAnswer"`
	TotalScore    int    `json:"totalScore"`
}

// Range selects the time window of a leaderboard query.
type Range string

const (
	RangeAll     Range = "all"
	RangeWeekly  Range = "weekly"
	RangeMonthly Range = "monthly"
)

// ParseRange maps a query value to a Range; empty means all-time.
func ParseRange(raw string) (Range, error) {
	switch Range(raw) {
	case "", RangeAll:
		return RangeAll, nil
	case RangeWeekly:
		return RangeWeekly, nil
	case RangeMonthly:
		return RangeMonthly, nil
	}
	return "", ErrInvalidInput
}

// Since returns the inclusive lower bound of the window relative to now,
// or the zero time for the all-time range.
func (r Range) Since(now time.Time) time.Time {
	switch r {
	case RangeWeekly:
		return now.AddDate(0, 0, -7)
	case RangeMonthly:
		return now.AddDate(0, 0, -30)
	}
	return time.Time{}
}

// LeaderboardEntry is one ranked row of a leaderboard view.
type LeaderboardEntry struct {
	UserID            string    `json:"userId"`
	DisplayName       string    `json:"displayName"`
	TotalScore        int       `json:"totalScore"`
	QuestionsAnswered int       `json:"questionsAnswered"`
	Timestamp         time.Time `json:"timestamp"`
	AvatarURL         *string   `json:"avatarUrl"`
	Rank              int       `json:"rank"`
}

// Leaderboard captures an ordered, truncated view of standings.
type Leaderboard struct {
	Range     Range              `json:"range"`
	Policy    string             `json:"policy"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Profile is the display metadata the identity provider holds for a user.
type Profile struct {
	Label     string
	Email     string
	AvatarURL string
}

// Dashboard is a player's own view of their progress.
type Dashboard struct {
	User            User       `json:"user"`
	RecentResponses []Response `json:"recentResponses"`
	TotalResponses  int        `json:"totalResponses"`
	TotalQuestions  int        `json:"totalQuestions"`
}

// AdminStats are the headline counters shown to administrators.
type AdminStats struct {
	Questions      int `json:"questions"`
	Users          int `json:"users"`
	ResponsesToday int `json:"responsesToday"`
}
