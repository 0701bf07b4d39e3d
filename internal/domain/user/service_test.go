package user

import (
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/shop-api/internal/domain/apperr"
)

// --- Mock implementations ---

type mockUserRepo struct {
	byID      map[int64]*User
	nextID    int64
	createErr error
	getErr    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: map[int64]*User{}, nextID: 1}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.byID {
		if existing.Username == u.Username || existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	u.ID = m.nextID
	m.nextID++
	stored := *u
	m.byID[u.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

type mockIssuer struct {
	userID   int64
	username string
	err      error
}

func (m *mockIssuer) Issue(userID int64, username string) (string, error) {
	m.userID, m.username = userID, username
	if m.err != nil {
		return "", m.err
	}
	return "token-for-" + username, nil
}

func newTestService(repo Repository, issuer TokenIssuer) *Service {
	svc := NewService(repo, issuer)
	svc.cost = bcrypt.MinCost
	return svc
}

// --- Tests ---

func TestRegister(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &mockIssuer{})

	u, err := svc.Register(context.Background(), RegisterRequest{
		Username: "  alice ",
		Password: "secret1",
		Email:    "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")))
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   RegisterRequest
		field string
	}{
		{"short username", RegisterRequest{Username: "al", Password: "secret1", Email: "a@example.com"}, "username"},
		{"long username", RegisterRequest{Username: strings.Repeat("a", 51), Password: "secret1", Email: "a@example.com"}, "username"},
		{"short password", RegisterRequest{Username: "alice", Password: "12345", Email: "a@example.com"}, "password"},
		{"long password", RegisterRequest{Username: "alice", Password: strings.Repeat("p", 73), Email: "a@example.com"}, "password"},
		{"missing email", RegisterRequest{Username: "alice", Password: "secret1"}, "email"},
		{"malformed email", RegisterRequest{Username: "alice", Password: "secret1", Email: "not-an-email"}, "email"},
		{"display name email", RegisterRequest{Username: "alice", Password: "secret1", Email: "Alice <a@example.com>"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockUserRepo()
			_, err := newTestService(repo, &mockIssuer{}).Register(context.Background(), tt.req)

			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			assert.Equal(t, tt.field, appErr.Field)
			assert.Empty(t, repo.byID)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	svc := newTestService(newMockUserRepo(), &mockIssuer{})
	req := RegisterRequest{Username: "alice", Password: "secret1", Email: "alice@example.com"}

	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	req.Username = "alice2"
	_, err = svc.Register(context.Background(), req)
	require.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestRegister_RepoError(t *testing.T) {
	repo := newMockUserRepo()
	repo.createErr = errors.New("connection reset")

	_, err := newTestService(repo, &mockIssuer{}).Register(context.Background(), RegisterRequest{
		Username: "alice", Password: "secret1", Email: "alice@example.com",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create user")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestLogin(t *testing.T) {
	repo := newMockUserRepo()
	issuer := &mockIssuer{}
	svc := newTestService(repo, issuer)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice", Password: "secret1", Email: "alice@example.com",
	})
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		token, err := svc.Login(context.Background(), "alice", "secret1")
		require.NoError(t, err)
		assert.Equal(t, "token-for-alice", token)
		assert.Equal(t, int64(1), issuer.userID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "alice", "secret2")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "bob", "secret1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("repository failure is not masked", func(t *testing.T) {
		repo.getErr = errors.New("db down")
		defer func() { repo.getErr = nil }()

		_, err := svc.Login(context.Background(), "alice", "secret1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestProfile(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &mockIssuer{})

	created, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice", Password: "secret1", Email: "alice@example.com",
	})
	require.NoError(t, err)

	u, err := svc.Profile(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)

	_, err = svc.Profile(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}
