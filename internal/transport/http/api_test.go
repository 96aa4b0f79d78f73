package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-rank-service/internal/app"
	"trivia-rank-service/internal/auth"
	"trivia-rank-service/internal/domain"
	"trivia-rank-service/internal/infra/memory"
	"trivia-rank-service/internal/ranking"
)

const testSecret = "test-secret"

var (
	player = domain.Identity{ExternalID: "ext-player", Email: "player@example.com", Username: "player"}
	admin  = domain.Identity{ExternalID: "ext-admin", Email: "admin@example.com"}
)

type testServer struct {
	*httptest.Server
	hub      *app.Hub
	verifier *auth.TokenVerifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := memory.NewDB()
	for _, q := range sampleQuestions() {
		if err := db.Questions().Create(context.Background(), q); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	hub := app.NewHub()
	cache := memory.NewLeaderboardCache(time.Minute)
	engine := ranking.NewEngine(db.Responses(), db.Users(), ranking.FirstCorrect())
	engine.OnRecompute(func(ranking.Result) { cache.Invalidate(context.Background()) })
	engine.OnRecompute(hub.Publish)

	authz := auth.NewEmailAllowlist([]string{admin.Email})
	users := app.NewUserService(db.Users(), db.Responses(), db.Questions())
	api := NewAPI(Services{
		Users:       users,
		Submissions: app.NewSubmissionService(users, db.Questions(), db.Responses(), engine, nil),
		Questions:   app.NewQuestionService(db.Questions(), users, authz),
		Leaderboard: app.NewLeaderboardService(db.Users(), db.Responses(), nil, engine.Policy(), cache, nil),
		Admin:       app.NewAdminService(db.Users(), db.Responses(), db.Questions(), authz, cache, nil),
		Hub:         hub,
	}, auth.NewTokenVerifier(testSecret), nil)

	srv := httptest.NewServer(api.Routes())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, hub: hub, verifier: auth.NewTokenVerifier(testSecret)}
}

func (s *testServer) token(t *testing.T, id domain.Identity) string {
	t.Helper()
	tok, err := s.verifier.Issue(id, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, path string, id *domain.Identity, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if id != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(t, *id))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

func TestSubmitAnswerOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	var res domain.AnswerResult
	status := srv.do(t, http.MethodPost, "/api/answers", &player,
		map[string]any{"questionId": "q1", "optionId": "o2", "responseTime": 0}, &res)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !res.Correct || res.Points != 15 || res.TotalScore != 15 || res.CorrectAnswer != "4" {
		t.Fatalf("unexpected result %+v", res)
	}

	status = srv.do(t, http.MethodPost, "/api/answers", &player,
		map[string]any{"questionId": "q1", "optionId": "o2", "responseTime": 0}, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", status)
	}

	var lb domain.Leaderboard
	if status := srv.do(t, http.MethodGet, "/api/leaderboard?range=weekly&limit=10", nil, nil, &lb); status != http.StatusOK {
		t.Fatalf("leaderboard: %d", status)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].DisplayName != "player" || lb.Entries[0].Rank != 1 {
		t.Fatalf("unexpected leaderboard %+v", lb)
	}
}

func TestSubmitAnswerStatusCodes(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name string
		id   *domain.Identity
		body any
		want int
	}{
		{"no token", nil, map[string]any{"questionId": "q1", "optionId": "o2"}, http.StatusUnauthorized},
		{"unknown question", &player, map[string]any{"questionId": "nope", "optionId": "o2"}, http.StatusNotFound},
		{"non numeric latency", &player, `{"questionId":"q1","optionId":"o2","responseTime":"fast"}`, http.StatusBadRequest},
		{"malformed json", &player, `{"questionId":`, http.StatusBadRequest},
		{"no answer", &player, map[string]any{"questionId": "q1"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := srv.do(t, http.MethodPost, "/api/answers", tc.id, tc.body, nil); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestFractionalLatencyAccepted(t *testing.T) {
	srv := newTestServer(t)
	var res domain.AnswerResult
	status := srv.do(t, http.MethodPost, "/api/answers", &player,
		`{"questionId":"q1","answer":"4","responseTime":1234.9}`, &res)
	if status != http.StatusOK || res.Points != 14 {
		t.Fatalf("expected 14 points, got %d %+v", status, res)
	}
}

func TestHugeLatencyScoresAsSlowest(t *testing.T) {
	for _, raw := range []string{"99999", "1e20", "99999999999999999999", "-1e20"} {
		srv := newTestServer(t)
		var res domain.AnswerResult
		status := srv.do(t, http.MethodPost, "/api/answers", &player,
			`{"questionId":"q1","answer":"4","responseTime":`+raw+`}`, &res)
		want := 10
		if raw == "-1e20" {
			want = 15
		}
		if status != http.StatusOK || res.Points != want {
			t.Fatalf("responseTime %s: expected %d points, got %d %+v", raw, want, status, res)
		}
	}
}

func TestLeaderboardQueryValidation(t *testing.T) {
	srv := newTestServer(t)
	if got := srv.do(t, http.MethodGet, "/api/leaderboard?range=daily", nil, nil, nil); got != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown range, got %d", got)
	}
	if got := srv.do(t, http.MethodGet, "/api/leaderboard?limit=ten", nil, nil, nil); got != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", got)
	}
}

func TestNextQuestionAndDashboard(t *testing.T) {
	srv := newTestServer(t)

	var q domain.PublicQuestion
	if status := srv.do(t, http.MethodGet, "/api/questions/next", &player, nil, &q); status != http.StatusOK {
		t.Fatalf("next: %d", status)
	}
	if q.ID != "q1" {
		t.Fatalf("expected q1, got %+v", q)
	}
	srv.do(t, http.MethodPost, "/api/answers", &player, map[string]any{"questionId": "q1", "optionId": "o1"}, nil)

	var d domain.Dashboard
	if status := srv.do(t, http.MethodGet, "/api/dashboard", &player, nil, &d); status != http.StatusOK {
		t.Fatalf("dashboard: %d", status)
	}
	if d.TotalResponses != 1 || d.User.TotalScore != 0 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if status := srv.do(t, http.MethodGet, "/api/questions/next", &player, nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 once exhausted, got %d", status)
	}
}

func TestAdminRoutes(t *testing.T) {
	srv := newTestServer(t)

	input := map[string]any{
		"question":      "Largest ocean?",
		"options":       []string{"Atlantic", "Pacific"},
		"correctAnswer": "Pacific",
		"difficulty":    "easy",
		"points":        10,
		"isActive":      true,
	}
	if got := srv.do(t, http.MethodPost, "/api/admin/questions", &player, input, nil); got != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", got)
	}
	var created domain.Question
	if got := srv.do(t, http.MethodPost, "/api/admin/questions", &admin, input, &created); got != http.StatusCreated {
		t.Fatalf("expected 201, got %d", got)
	}

	input["points"] = 20
	var updated domain.Question
	if got := srv.do(t, http.MethodPut, "/api/admin/questions/"+created.ID, &admin, input, &updated); got != http.StatusOK {
		t.Fatalf("update: %d", got)
	}
	if updated.Points != 20 {
		t.Fatalf("unexpected update %+v", updated)
	}

	var list []domain.Question
	if got := srv.do(t, http.MethodGet, "/api/admin/questions", &admin, nil, &list); got != http.StatusOK || len(list) != 3 {
		t.Fatalf("list: %d %d", got, len(list))
	}

	srv.do(t, http.MethodPost, "/api/answers", &player, map[string]any{"questionId": "q1", "optionId": "o2"}, nil)
	if got := srv.do(t, http.MethodDelete, "/api/admin/questions/q1", &admin, nil, nil); got != http.StatusConflict {
		t.Fatalf("expected 409 deleting an answered question, got %d", got)
	}
	if got := srv.do(t, http.MethodDelete, "/api/admin/questions/"+created.ID, &admin, nil, nil); got != http.StatusNoContent {
		t.Fatalf("delete: %d", got)
	}

	var stats domain.AdminStats
	if got := srv.do(t, http.MethodGet, "/api/admin/stats", &admin, nil, &stats); got != http.StatusOK {
		t.Fatalf("stats: %d", got)
	}
	if stats.Questions != 2 || stats.Users != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if got := srv.do(t, http.MethodPost, "/api/admin/reset", &admin, map[string]any{"clearHistory": true}, nil); got != http.StatusNoContent {
		t.Fatalf("reset: %d", got)
	}
	var res domain.AnswerResult
	if got := srv.do(t, http.MethodPost, "/api/answers", &player, map[string]any{"questionId": "q1", "optionId": "o2"}, &res); got != http.StatusOK {
		t.Fatalf("answer after reset: %d", got)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrNoQuestions, http.StatusNotFound},
		{domain.ErrQuestionInUse, http.StatusConflict},
		{domain.InvalidInput("x"), http.StatusBadRequest},
		{domain.StoreError("op", context.Canceled), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func sampleQuestions() []domain.Question {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Question{
		{
			ID:     "q1",
			Prompt: "What is 2 + 2?",
			Options: []domain.Option{
				{ID: "o1", Text: "3"},
				{ID: "o2", Text: "4", Correct: true},
			},
			Difficulty: domain.DifficultyEasy,
			Points:     10,
			Active:     true,
			CreatedAt:  base,
		},
		{
			ID:     "q2",
			Prompt: "Retired",
			Options: []domain.Option{
				{ID: "o1", Text: "a", Correct: true},
				{ID: "o2", Text: "b"},
			},
			Difficulty: domain.DifficultyHard,
			Points:     10,
			CreatedAt:  base.Add(time.Minute),
		},
	}
}
