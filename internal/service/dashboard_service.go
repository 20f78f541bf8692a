package service

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"github.com/selekta/portal-backend/internal/model"
)

const (
	podiumSize      = 3
	leaderboardSize = 10
)

// UsageStore reports invitation code usage totals.
type UsageStore interface {
	CountUsage(ctx context.Context) (total int, used int, err error)
}

// RankedSessionStore lists sessions ordered for the leaderboard.
type RankedSessionStore interface {
	ListRanked(ctx context.Context) ([]model.TestSession, error)
}

// DashboardStats aggregates the headline numbers for the admin dashboard.
type DashboardStats struct {
	TotalCodes     int `json:"total_codes"`
	UsedCodes      int `json:"used_codes"`
	UnusedCodes    int `json:"unused_codes"`
	CompletedTests int `json:"completed_tests"`
	ActiveTests    int `json:"active_tests"`
	ExpiredTests   int `json:"expired_tests"`
	AverageScore   int `json:"average_score"`
}

// DashboardData is the full admin dashboard payload.
type DashboardData struct {
	Stats       DashboardStats      `json:"stats"`
	Podium      []model.TestSession `json:"podium"`
	Leaderboard []model.TestSession `json:"leaderboard"`
}

// DashboardService assembles the admin overview: usage stats, the top-3
// podium, and the top-10 leaderboard. Ranking follows the store order
// (score descending, earlier start wins ties).
type DashboardService struct {
	codes    UsageStore
	sessions RankedSessionStore
	log      zerolog.Logger
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(codes UsageStore, sessions RankedSessionStore, log zerolog.Logger) *DashboardService {
	return &DashboardService{
		codes:    codes,
		sessions: sessions,
		log:      log.With().Str("component", "dashboard_service").Logger(),
	}
}

// GetDashboard builds the dashboard payload in one pass over the ranked
// session list. The average score covers completed tests only and is
// rounded to the nearest integer.
func (s *DashboardService) GetDashboard(ctx context.Context) (*DashboardData, error) {
	total, used, err := s.codes.CountUsage(ctx)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessions.ListRanked(ctx)
	if err != nil {
		return nil, err
	}

	stats := DashboardStats{
		TotalCodes:  total,
		UsedCodes:   used,
		UnusedCodes: total - used,
	}

	scoreSum := 0
	completed := make([]model.TestSession, 0, len(sessions))
	for _, sess := range sessions {
		switch sess.Status {
		case model.SessionStatusCompleted:
			stats.CompletedTests++
			if sess.Score != nil {
				scoreSum += *sess.Score
			}
			completed = append(completed, sess)
		case model.SessionStatusInProgress:
			stats.ActiveTests++
		case model.SessionStatusExpired:
			stats.ExpiredTests++
		}
	}
	if stats.CompletedTests > 0 {
		stats.AverageScore = int(math.Round(float64(scoreSum) / float64(stats.CompletedTests)))
	}

	return &DashboardData{
		Stats:       stats,
		Podium:      top(completed, podiumSize),
		Leaderboard: top(completed, leaderboardSize),
	}, nil
}

// ListSessions returns every session in leaderboard order.
func (s *DashboardService) ListSessions(ctx context.Context) ([]model.TestSession, error) {
	sessions, err := s.sessions.ListRanked(ctx)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []model.TestSession{}
	}
	return sessions, nil
}

func top(sessions []model.TestSession, n int) []model.TestSession {
	if len(sessions) < n {
		n = len(sessions)
	}
	out := make([]model.TestSession, n)
	copy(out, sessions[:n])
	return out
}
