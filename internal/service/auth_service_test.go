package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chatcore/internal/domain"
	"chatcore/internal/security"
	"chatcore/internal/service"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) Search(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	return nil, nil // Not used in auth tests
}

func (m *MockUserRepo) SetOnlineStatus(ctx context.Context, id string, online bool) error {
	return nil
}

func newAuthService(repo domain.UserRepository) *service.AuthService {
	tokenSvc := security.NewTokenService("secret", time.Hour)
	hasher := security.NewPasswordHasher(4) // low cost for tests
	return service.NewAuthService(repo, tokenSvc, hasher)
}

func TestRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := newAuthService(mockRepo)

		mockRepo.On("GetByUsername", mock.Anything, "newuser").Return(nil, domain.ErrNotFound)
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Username == "newuser" && u.ID != "" && u.HashedPassword != "Password1!"
		})).Return(nil)

		user, token, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "newuser",
			Password: "Password1!",
		})
		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.NotEmpty(t, token)
		assert.Equal(t, "newuser", user.Username)
		mockRepo.AssertExpectations(t)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := newAuthService(mockRepo)

		existing := &domain.User{ID: "u1", Username: "existing"}
		mockRepo.On("GetByUsername", mock.Anything, "existing").Return(existing, nil)

		user, _, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "existing",
			Password: "Password1!",
		})
		assert.Nil(t, user)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("ShortPassword", func(t *testing.T) {
		svc := newAuthService(new(MockUserRepo))

		_, _, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "newuser",
			Password: "short",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestLogin(t *testing.T) {
	hasher := security.NewPasswordHasher(4)
	hashed, _ := hasher.Hash("Password1!")

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := newAuthService(mockRepo)

		stored := &domain.User{ID: "u1", Username: "alice", HashedPassword: hashed}
		mockRepo.On("GetByUsername", mock.Anything, "alice").Return(stored, nil)

		user, token, err := svc.Login(context.Background(), "alice", "Password1!")
		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "u1", user.ID)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := newAuthService(mockRepo)

		stored := &domain.User{ID: "u1", Username: "alice", HashedPassword: hashed}
		mockRepo.On("GetByUsername", mock.Anything, "alice").Return(stored, nil)

		_, _, err := svc.Login(context.Background(), "alice", "nope")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := newAuthService(mockRepo)

		mockRepo.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

		_, _, err := svc.Login(context.Background(), "ghost", "Password1!")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}
