package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for a wrong email/password pair and
	// for tokens that fail verification.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken is returned when registering an email that already has
	// an identity.
	ErrEmailTaken = errors.New("email already registered")

	// ErrValidation marks a rejected registration payload.
	ErrValidation = errors.New("validation failed")
)

// Service defines session and identity business logic.
type Service interface {
	// SignInAnonymously creates a fresh anonymous identity and issues a token.
	SignInAnonymously(ctx context.Context) (*Session, error)

	// Register creates a credentialed identity and issues a token.
	Register(ctx context.Context, req RegisterRequest) (*Session, error)

	// Login verifies email/password and issues a token.
	Login(ctx context.Context, req LoginRequest) (*Session, error)

	// VerifyToken resolves a pre-issued token back to its identity.
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}

type service struct {
	repo   Repository
	secret []byte
	ttl    time.Duration
}

// NewService creates a new auth service. secret signs session tokens.
func NewService(repo Repository, secret []byte, ttl time.Duration) Service {
	return &service{repo: repo, secret: secret, ttl: ttl}
}

func (s *service) SignInAnonymously(ctx context.Context) (*Session, error) {
	id := &Identity{
		ID:          uuid.New(),
		DisplayName: "Guest",
		Anonymous:   true,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, id); err != nil {
		return nil, fmt.Errorf("create anonymous identity: %w", err)
	}
	return s.session(id)
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if req.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	id := &Identity{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, id); err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return s.session(id)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	id, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(id.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(id)
}

func (s *service) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	claims := &jwt.StandardClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidCredentials
	}
	id, err := s.repo.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return id, nil
}

func (s *service) session(id *Identity) (*Session, error) {
	claims := &jwt.StandardClaims{
		Subject:   id.ID.String(),
		ExpiresAt: time.Now().Add(s.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &Session{Identity: id, Token: token}, nil
}
