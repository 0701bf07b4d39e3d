package user

import (
	"context"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/shop-api/internal/domain/apperr"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6
	// bcrypt ignores input past 72 bytes.
	maxPasswordLen = 72
	maxEmailLen    = 100
)

// RegisterRequest holds the input for creating an account.
type RegisterRequest struct {
	Username string
	Password string
	Email    string
}

// Service implements registration, login and profile lookup.
type Service struct {
	users  Repository
	tokens TokenIssuer
	cost   int
}

// NewService creates a user Service.
func NewService(users Repository, tokens TokenIssuer) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
	}
}

// Register validates the request, hashes the password and creates the user.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return nil, apperr.Validation("username", "must be between 3 and 50 characters")
	}
	if len(req.Password) < minPasswordLen {
		return nil, apperr.Validation("password", "must be at least 6 characters")
	}
	if len(req.Password) > maxPasswordLen {
		return nil, apperr.Validation("password", "must be at most 72 bytes")
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// Login checks the credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", errors.Wrap(err, "get user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return "", errors.Wrap(err, "issue token")
	}
	return token, nil
}

// Profile returns the user's public data.
func (s *Service) Profile(ctx context.Context, id int64) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// normalizeEmail accepts a bare address ("a@b.c"), rejecting display-name
// forms like "Alice <a@b.c>".
func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw || len(raw) > maxEmailLen {
		return "", apperr.Validation("email", "must be a valid email address")
	}
	return raw, nil
}
