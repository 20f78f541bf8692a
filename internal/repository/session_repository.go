package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selekta/portal-backend/internal/exam"
	"github.com/selekta/portal-backend/internal/model"
)

// SessionRepository handles test session and answer record data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, invitation_code, participant_name, start_time, end_time,
	duration_seconds, score, total_questions, status, created_at`

func scanSession(row pgx.Row) (*model.TestSession, error) {
	s := &model.TestSession{}
	err := row.Scan(&s.ID, &s.InvitationCode, &s.ParticipantName, &s.StartTime,
		&s.EndTime, &s.DurationSeconds, &s.Score, &s.TotalQuestions, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a session by its UUID.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TestSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM test_sessions WHERE id = $1`, id))
}

// SubmitResult writes one answer record per drawn question and finalizes the
// session row in a single transaction. The UPDATE is guarded on
// status = 'in_progress' so a completed or expired session can never be
// mutated again; in that case the whole transaction rolls back with
// model.ErrSessionNotActive.
func (r *SessionRepository) SubmitResult(ctx context.Context, sessionID uuid.UUID, res *exam.Result) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin submit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE test_sessions
		 SET end_time = $2, duration_seconds = $3, score = $4,
		     total_questions = $5, status = $6
		 WHERE id = $1 AND status = $7`,
		sessionID, res.SubmittedAt, res.DurationSeconds, res.Score,
		len(res.Records), model.SessionStatusCompleted, model.SessionStatusInProgress)
	if err != nil {
		return fmt.Errorf("finalize session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrSessionNotActive
	}

	batch := &pgx.Batch{}
	for _, rec := range res.Records {
		batch.Queue(
			`INSERT INTO test_answers (session_id, question_id, selected_answer, is_correct)
			 VALUES ($1, $2, $3, $4)`,
			sessionID, rec.QuestionID, rec.Selected, rec.Correct)
	}
	results := tx.SendBatch(ctx, batch)
	for range res.Records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert answer record: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close answer batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit submit tx: %w", err)
	}
	return nil
}

// ListRanked retrieves all sessions ordered by score descending. Unscored
// sessions sort last; ties keep a stable start-time order so leaderboard
// slices are deterministic.
func (r *SessionRepository) ListRanked(ctx context.Context) ([]model.TestSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM test_sessions
		 ORDER BY score DESC NULLS LAST, start_time ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.TestSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// ListOverdue retrieves in_progress sessions whose start time is older than
// the given cutoff (deadline plus grace, computed by the caller).
func (r *SessionRepository) ListOverdue(ctx context.Context, startedBefore time.Time) ([]model.TestSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM test_sessions
		 WHERE status = $1 AND start_time < $2`,
		model.SessionStatusInProgress, startedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.TestSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// MarkExpired moves an in_progress session to expired. Returns
// model.ErrSessionNotActive if the session was finalized in the meantime,
// so the sweep never clobbers a race-winning submission.
func (r *SessionRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE test_sessions SET status = $2, end_time = NOW()
		 WHERE id = $1 AND status = $3`,
		id, model.SessionStatusExpired, model.SessionStatusInProgress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrSessionNotActive
	}
	return nil
}
