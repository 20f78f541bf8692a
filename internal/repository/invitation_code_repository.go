package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selekta/portal-backend/internal/model"
)

// InvitationCodeRepository handles invitation code data access.
type InvitationCodeRepository struct {
	pool *pgxpool.Pool
}

// NewInvitationCodeRepository creates a new InvitationCodeRepository.
func NewInvitationCodeRepository(pool *pgxpool.Pool) *InvitationCodeRepository {
	return &InvitationCodeRepository{pool: pool}
}

// Redeem consumes an unused invitation code and opens an in_progress test
// session in a single transaction, so a failure after the code is marked
// used can never strand the participant without a session. The code is
// expected to be normalized (trimmed, upper-cased) by the caller.
//
// Returns model.ErrCodeNotFound or model.ErrCodeAlreadyUsed as appropriate.
func (r *InvitationCodeRepository) Redeem(ctx context.Context, code, participantName string) (*model.TestSession, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin redeem tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var isUsed bool
	err = tx.QueryRow(ctx,
		`SELECT is_used FROM invitation_codes WHERE code = $1 FOR UPDATE`, code,
	).Scan(&isUsed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCodeNotFound
		}
		return nil, fmt.Errorf("lookup code: %w", err)
	}
	if isUsed {
		return nil, model.ErrCodeAlreadyUsed
	}

	_, err = tx.Exec(ctx,
		`UPDATE invitation_codes
		 SET is_used = TRUE, used_at = NOW(), participant_name = $2
		 WHERE code = $1`, code, participantName)
	if err != nil {
		return nil, fmt.Errorf("consume code: %w", err)
	}

	session := &model.TestSession{
		InvitationCode:  code,
		ParticipantName: participantName,
		Status:          model.SessionStatusInProgress,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO test_sessions (invitation_code, participant_name, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, start_time, created_at`,
		code, participantName, model.SessionStatusInProgress,
	).Scan(&session.ID, &session.StartTime, &session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit redeem tx: %w", err)
	}
	return session, nil
}

// CreateBatch inserts provisioned codes, skipping duplicates. Returns the
// number of codes actually inserted.
func (r *InvitationCodeRepository) CreateBatch(ctx context.Context, codes []string) (int, error) {
	batch := &pgx.Batch{}
	for _, code := range codes {
		batch.Queue(
			`INSERT INTO invitation_codes (code) VALUES ($1)
			 ON CONFLICT (code) DO NOTHING`, code)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range codes {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert code: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// List retrieves all invitation codes, newest first.
func (r *InvitationCodeRepository) List(ctx context.Context) ([]model.InvitationCode, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, participant_name, is_used, used_at, created_at
		 FROM invitation_codes
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []model.InvitationCode
	for rows.Next() {
		var c model.InvitationCode
		if err := rows.Scan(&c.ID, &c.Code, &c.ParticipantName, &c.IsUsed, &c.UsedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// CountUsage returns the total number of codes and how many are consumed.
func (r *InvitationCodeRepository) CountUsage(ctx context.Context) (total, used int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_used) FROM invitation_codes`,
	).Scan(&total, &used)
	return
}
