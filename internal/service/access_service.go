package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/selekta/portal-backend/internal/config"
	"github.com/selekta/portal-backend/internal/model"
)

// CodeStore is the persistence surface the access gate needs.
type CodeStore interface {
	Redeem(ctx context.Context, code, participantName string) (*model.TestSession, error)
	CreateBatch(ctx context.Context, codes []string) (int, error)
	List(ctx context.Context) ([]model.InvitationCode, error)
}

// AccessService validates and consumes invitation codes and opens test
// sessions. It also provisions new codes for the admin side.
type AccessService struct {
	codes   CodeStore
	auth    *AuthService
	rdb     *goredis.Client
	monitor *Monitor
	log     zerolog.Logger
}

// NewAccessService creates a new AccessService.
func NewAccessService(codes CodeStore, auth *AuthService, rdb *goredis.Client, monitor *Monitor, log zerolog.Logger) *AccessService {
	return &AccessService{
		codes:   codes,
		auth:    auth,
		rdb:     rdb,
		monitor: monitor,
		log:     log.With().Str("component", "access_service").Logger(),
	}
}

// NormalizeCode applies the canonical code form: trimmed and upper-cased.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Redeem consumes an invitation code and returns the new session together
// with a participant token. The code mutation and the session creation are
// one transaction at the store; redeeming the same code twice yields
// model.ErrCodeAlreadyUsed on the second call with no new session.
func (s *AccessService) Redeem(ctx context.Context, code, participantName string) (*model.RedeemResponse, error) {
	code = NormalizeCode(code)
	participantName = strings.TrimSpace(participantName)

	session, err := s.codes.Redeem(ctx, code, participantName)
	if err != nil {
		return nil, err
	}

	token, err := s.auth.GenerateParticipantToken(session)
	if err != nil {
		return nil, fmt.Errorf("issue participant token: %w", err)
	}

	// Cache the start time so an engine can be rebuilt after a restart.
	startKey := config.CacheKey.SessionStartKey(session.ID.String())
	if err := s.rdb.Set(ctx, startKey, session.StartTime.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Cache session start failed")
	}

	s.monitor.Publish(ctx, MonitorEvent{
		Type:            MonitorSessionStarted,
		SessionID:       session.ID.String(),
		InvitationCode:  session.InvitationCode,
		ParticipantName: session.ParticipantName,
	})

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("code", session.InvitationCode).
		Msg("Invitation code redeemed")

	return &model.RedeemResponse{Token: token, Session: *session}, nil
}

// codeAlphabet deliberately omits easily confused characters (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 8

// GenerateCodes provisions count random invitation codes with an optional
// prefix. The store skips colliding codes; with an 8-character random
// suffix a collision means fewer codes than requested, which is reported
// in the returned count.
func (s *AccessService) GenerateCodes(ctx context.Context, count int, prefix string) ([]string, int, error) {
	prefix = NormalizeCode(prefix)

	batch := make([]string, 0, count)
	for i := 0; i < count; i++ {
		code, err := randomCode(prefix)
		if err != nil {
			return nil, 0, err
		}
		batch = append(batch, code)
	}

	inserted, err := s.codes.CreateBatch(ctx, batch)
	if err != nil {
		return nil, 0, fmt.Errorf("create codes: %w", err)
	}
	if inserted < len(batch) {
		s.log.Warn().Int("requested", count).Int("inserted", inserted).Msg("Some generated codes collided")
	}

	s.log.Info().Int("count", inserted).Msg("Invitation codes generated")
	return batch, inserted, nil
}

// ListCodes retrieves all invitation codes with their usage state.
func (s *AccessService) ListCodes(ctx context.Context) ([]model.InvitationCode, error) {
	codes, err := s.codes.List(ctx)
	if err != nil {
		return nil, err
	}
	if codes == nil {
		codes = []model.InvitationCode{}
	}
	return codes, nil
}

func randomCode(prefix string) (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte('-')
	}
	for _, c := range buf {
		b.WriteByte(codeAlphabet[int(c)%len(codeAlphabet)])
	}
	return b.String(), nil
}
