package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-rank-service/internal/domain"
	"trivia-rank-service/internal/ranking"
)

func TestResetKeepsHistory(t *testing.T) {
	f := newFixture(t, ranking.Cumulative())
	ctx := context.Background()
	f.submit(t, alice, "q1", "q1-b", 0)

	if err := f.admin.Reset(ctx, admin, false); err != nil {
		t.Fatalf("reset: %v", err)
	}
	u := f.user(t, alice)
	if u.TotalScore != 0 || u.Rank != nil {
		t.Fatalf("expected zeroed user, got %+v", u)
	}
	if _, err := f.submissions.Submit(ctx, alice, domain.AnswerSubmission{QuestionID: "q1", OptionID: "q1-b"}); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("history kept means q1 stays answered, got %v", err)
	}
}

func TestResetClearsHistory(t *testing.T) {
	f := newFixture(t, ranking.Cumulative())
	ctx := context.Background()
	f.submit(t, alice, "q1", "q1-b", 0)

	if err := f.admin.Reset(ctx, admin, true); err != nil {
		t.Fatalf("reset: %v", err)
	}
	res := f.submit(t, alice, "q1", "q1-b", 0)
	if res.TotalScore != 15 {
		t.Fatalf("expected a fresh total of 15, got %d", res.TotalScore)
	}
}

func TestResetRequiresPrivilege(t *testing.T) {
	f := newFixture(t, ranking.Cumulative())
	if err := f.admin.Reset(context.Background(), alice, true); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAdminStats(t *testing.T) {
	f := newFixture(t, ranking.Cumulative())
	ctx := context.Background()
	f.submit(t, alice, "q1", "q1-b", 0)
	f.submit(t, bob, "q1", "q1-b", 0)

	stats, err := f.admin.Stats(ctx, admin)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	// the admin is mirrored only once they submit, so two users
	if stats.Questions != 3 || stats.Users != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.ResponsesToday != 2 {
		t.Fatalf("unexpected responses today %d", stats.ResponsesToday)
	}

	f.clock.Advance(24 * time.Hour)
	stats, err = f.admin.Stats(ctx, admin)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ResponsesToday != 0 {
		t.Fatalf("yesterday's responses counted: %d", stats.ResponsesToday)
	}
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, ranking.Cumulative())
	ctx := context.Background()
	f.submit(t, alice, "q1", "q1-b", 0)
	f.clock.Advance(time.Minute)
	f.submit(t, alice, "q2", "q2-b", 0)

	d, err := f.users.Dashboard(ctx, alice)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.TotalResponses != 2 || d.TotalQuestions != 2 || d.User.TotalScore != 15 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if len(d.RecentResponses) != 2 || d.RecentResponses[0].QuestionID != "q2" {
		t.Fatalf("recent responses should be newest first, got %+v", d.RecentResponses)
	}
}
