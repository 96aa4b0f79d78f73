package http

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"trivia-rank-service/internal/app"
	"trivia-rank-service/internal/domain"
	"trivia-rank-service/internal/scoring"
)

// API exposes the trivia use cases over JSON.
type API struct {
	users       *app.UserService
	submissions *app.SubmissionService
	questions   *app.QuestionService
	leaderboard *app.LeaderboardService
	admin       *app.AdminService
	ws          *WSHandler
	verifier    TokenVerifier
	logger      *slog.Logger
}

// Services bundles the use cases the API serves.
type Services struct {
	Users       *app.UserService
	Submissions *app.SubmissionService
	Questions   *app.QuestionService
	Leaderboard *app.LeaderboardService
	Admin       *app.AdminService
	Hub         *app.Hub
}

func NewAPI(s Services, verifier TokenVerifier, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		users:       s.Users,
		submissions: s.Submissions,
		questions:   s.Questions,
		leaderboard: s.Leaderboard,
		admin:       s.Admin,
		ws:          NewWSHandler(s.Hub, s.Leaderboard, logger),
		verifier:    verifier,
		logger:      logger,
	}
}

// Routes returns the full HTTP handler.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/answers", a.submitAnswer)
	mux.HandleFunc("GET /api/questions/next", a.nextQuestion)
	mux.HandleFunc("GET /api/leaderboard", a.getLeaderboard)
	mux.HandleFunc("GET /api/dashboard", a.dashboard)
	mux.HandleFunc("GET /api/admin/questions", a.listQuestions)
	mux.HandleFunc("POST /api/admin/questions", a.createQuestion)
	mux.HandleFunc("PUT /api/admin/questions/{id}", a.updateQuestion)
	mux.HandleFunc("DELETE /api/admin/questions/{id}", a.deleteQuestion)
	mux.HandleFunc("POST /api/admin/reset", a.reset)
	mux.HandleFunc("GET /api/admin/stats", a.stats)
	mux.HandleFunc("GET /ws/leaderboard", a.ws.ServeWS)
	return a.logRequests(withIdentity(a.verifier, mux))
}

type answerRequest struct {
	QuestionID   string      `json:"questionId"`
	OptionID     string      `json:"optionId"`
	Answer       string      `json:"answer"`
	ResponseTime json.Number `json:"responseTime"`
}

func (a *API) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	var latency int64
	if req.ResponseTime != "" {
		f, err := req.ResponseTime.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			a.writeError(w, r, domain.InvalidInput("responseTime must be numeric"))
			return
		}
		// clamp before converting; out-of-range floats have no defined int64 value
		f = math.Max(0, math.Min(f, float64(scoring.QuestionDurationMs)))
		latency = int64(math.Floor(f))
	}
	res, err := a.submissions.Submit(r.Context(), identityFrom(r.Context()), domain.AnswerSubmission{
		QuestionID: req.QuestionID,
		OptionID:   req.OptionID,
		Answer:     req.Answer,
		LatencyMs:  latency,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) nextQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := a.questions.Next(r.Context(), identityFrom(r.Context()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *API) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	q, err := parseLeaderboardQuery(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	lb, err := a.leaderboard.Query(r.Context(), q)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func parseLeaderboardQuery(r *http.Request) (app.LeaderboardQuery, error) {
	values := r.URL.Query()
	rng, err := domain.ParseRange(values.Get("range"))
	if err != nil {
		return app.LeaderboardQuery{}, domain.InvalidInput("unknown range %q", values.Get("range"))
	}
	q := app.LeaderboardQuery{Range: rng}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return app.LeaderboardQuery{}, domain.InvalidInput("limit must be an integer")
		}
		q.Limit = limit
	}
	return q, nil
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.users.Dashboard(r.Context(), identityFrom(r.Context()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) listQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := a.questions.List(r.Context(), identityFrom(r.Context()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if qs == nil {
		qs = []domain.Question{}
	}
	writeJSON(w, http.StatusOK, qs)
}

func (a *API) createQuestion(w http.ResponseWriter, r *http.Request) {
	var in app.QuestionInput
	if err := decodeJSON(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	q, err := a.questions.Create(r.Context(), identityFrom(r.Context()), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (a *API) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var in app.QuestionInput
	if err := decodeJSON(r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	q, err := a.questions.Update(r.Context(), identityFrom(r.Context()), r.PathValue("id"), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *API) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := a.questions.Delete(r.Context(), identityFrom(r.Context()), r.PathValue("id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetRequest struct {
	ClearHistory bool `json:"clearHistory"`
}

func (a *API) reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, r, err)
			return
		}
	}
	if err := a.admin.Reset(r.Context(), identityFrom(r.Context()), req.ClearHistory); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	s, err := a.admin.Stats(r.Context(), identityFrom(r.Context()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack passes through so websocket upgrades work behind the logger.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("took", time.Since(start)),
		)
	})
}
