package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/selekta/portal-backend/internal/config"
	"github.com/selekta/portal-backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when an admin login fails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AdminStore is the admin account lookup surface.
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*model.AdminUser, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.AdminUser, error)
}

// TokenType distinguishes participant vs admin tokens.
type TokenType string

const (
	TokenTypeParticipant TokenType = "participant"
	TokenTypeAdmin       TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	// Participant only
	SessionID       string `json:"session_id,omitempty"`
	InvitationCode  string `json:"invitation_code,omitempty"`
	ParticipantName string `json:"participant_name,omitempty"`
	// Admin only
	Email string `json:"email,omitempty"`
}

// AuthService handles password hashing, admin login, and JWT issuing/validation.
type AuthService struct {
	cfg    *config.Config
	admins AdminStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, admins AdminStore) *AuthService {
	return &AuthService{cfg: cfg, admins: admins}
}

// AdminLogin verifies admin credentials and issues a token. A missing
// account and a wrong password both yield ErrInvalidCredentials so a login
// probe cannot enumerate accounts.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*model.AdminLoginResponse, error) {
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.CheckPassword(admin.PasswordHash, password); err != nil {
		return nil, err
	}

	token, err := s.GenerateAdminToken(admin)
	if err != nil {
		return nil, fmt.Errorf("issue admin token: %w", err)
	}
	return &model.AdminLoginResponse{Token: token, Admin: *admin}, nil
}

// GetAdminByID loads an admin account by ID.
func (s *AuthService) GetAdminByID(ctx context.Context, id uuid.UUID) (*model.AdminUser, error) {
	return s.admins.GetByID(ctx, id)
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
// Raw secrets are never compared directly.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateParticipantToken creates a JWT bound to one test session. The
// token outlives the exam deadline slightly so a timeout submission can
// still authenticate.
func (s *AuthService) GenerateParticipantToken(session *model.TestSession) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   session.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ExamDuration + s.cfg.JWTExpiry)),
		},
		TokenType:       TokenTypeParticipant,
		SessionID:       session.ID.String(),
		InvitationCode:  session.InvitationCode,
		ParticipantName: session.ParticipantName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// GenerateAdminToken creates a JWT for an admin user.
func (s *AuthService) GenerateAdminToken(admin *model.AdminUser) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   admin.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeAdmin,
		Email:     admin.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
