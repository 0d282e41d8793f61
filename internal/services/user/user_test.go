package services_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/carpool/internal/lib/password"
	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
	services "github.com/magabrotheeeer/carpool/internal/services/user"
)

type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) GetUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *RepoMock) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) DeleteUser(ctx context.Context, id int64) ([]int64, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *RepoMock) ReservedTripIDs(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type AvatarsMock struct {
	mock.Mock
}

func (m *AvatarsMock) Upload(ctx context.Context, r io.Reader) (string, error) {
	args := m.Called(ctx, r)
	return args.String(0), args.Error(1)
}

func (m *AvatarsMock) Remove(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func strPtr(s string) *string { return &s }

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()
	avatarFile := strings.NewReader("img")

	tests := []struct {
		name    string
		in      models.NewUser
		setup   func(r *RepoMock, a *AvatarsMock)
		wantErr error
	}{
		{
			name: "defaults role and hashes password",
			in:   models.NewUser{LastName: "Doe", FirstName: "John", Email: "j@d.io", Password: "secret1"},
			setup: func(r *RepoMock, _ *AvatarsMock) {
				r.On("CreateUser", ctx, mock.MatchedBy(func(u models.User) bool {
					return u.Role == models.RoleUser && u.Avatar == nil &&
						password.CompareHash(u.PasswordHash, "secret1") == nil
				})).Return(&models.User{ID: 1}, nil).Once()
			},
		},
		{
			name: "stores avatar",
			in:   models.NewUser{Email: "j@d.io", Password: "secret1", Role: models.RoleAdmin, Avatar: avatarFile},
			setup: func(r *RepoMock, a *AvatarsMock) {
				a.On("Upload", ctx, avatarFile).Return("avatars/x.png", nil).Once()
				r.On("CreateUser", ctx, mock.MatchedBy(func(u models.User) bool {
					return u.Role == models.RoleAdmin && u.Avatar != nil && *u.Avatar == "avatars/x.png"
				})).Return(&models.User{ID: 1}, nil).Once()
			},
		},
		{
			name: "removes avatar when email is taken",
			in:   models.NewUser{Email: "dup@d.io", Password: "secret1", Avatar: avatarFile},
			setup: func(r *RepoMock, a *AvatarsMock) {
				a.On("Upload", ctx, avatarFile).Return("avatars/x.png", nil).Once()
				r.On("CreateUser", ctx, mock.Anything).Return(nil, models.ErrEmailTaken).Once()
				a.On("Remove", ctx, "avatars/x.png").Return(nil).Once()
			},
			wantErr: models.ErrEmailTaken,
		},
		{
			name:    "password too long",
			in:      models.NewUser{Email: "j@d.io", Password: strings.Repeat("x", 73)},
			setup:   func(*RepoMock, *AvatarsMock) {},
			wantErr: password.ErrTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, avatars := new(RepoMock), new(AvatarsMock)
			tt.setup(repo, avatars)
			svc := services.NewUserService(repo, avatars, new(CacheMock), sl.Discard())

			user, err := svc.Create(ctx, tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
			}
			repo.AssertExpectations(t)
			avatars.AssertExpectations(t)
		})
	}
}

func TestUserService_Profile(t *testing.T) {
	ctx := context.Background()
	repo := new(RepoMock)
	repo.On("GetUser", ctx, int64(3)).Return(&models.User{ID: 3}, nil)
	repo.On("ReservedTripIDs", ctx, int64(3)).Return([]int64{4, 9}, nil)
	svc := services.NewUserService(repo, new(AvatarsMock), new(CacheMock), sl.Discard())

	user, err := svc.Profile(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 9}, user.ReservedTripIDs)
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("rehashes password only when supplied", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("UpdateUser", ctx, int64(3), mock.MatchedBy(func(p models.UserPatch) bool {
			return p.PasswordHash == nil && p.FirstName != nil && *p.FirstName == "Jane" && p.Avatar == nil
		})).Return(&models.User{ID: 3, FirstName: "Jane"}, nil).Once()
		repo.On("UpdateUser", ctx, int64(3), mock.MatchedBy(func(p models.UserPatch) bool {
			return p.PasswordHash != nil && password.CompareHash(*p.PasswordHash, "newpass12") == nil
		})).Return(&models.User{ID: 3}, nil).Once()
		svc := services.NewUserService(repo, new(AvatarsMock), new(CacheMock), sl.Discard())

		_, err := svc.Update(ctx, 3, models.UserUpdate{FirstName: strPtr("Jane")})
		require.NoError(t, err)
		_, err = svc.Update(ctx, 3, models.UserUpdate{Password: strPtr("newpass12")})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("replaces avatar and removes the old one", func(t *testing.T) {
		repo, avatars := new(RepoMock), new(AvatarsMock)
		file := strings.NewReader("img")
		repo.On("GetUser", ctx, int64(3)).Return(&models.User{ID: 3, Avatar: strPtr("avatars/old.png")}, nil)
		avatars.On("Upload", ctx, file).Return("avatars/new.png", nil).Once()
		repo.On("UpdateUser", ctx, int64(3), mock.MatchedBy(func(p models.UserPatch) bool {
			return p.Avatar != nil && *p.Avatar == "avatars/new.png"
		})).Return(&models.User{ID: 3, Avatar: strPtr("avatars/new.png")}, nil).Once()
		avatars.On("Remove", ctx, "avatars/old.png").Return(errors.New("gone")).Once()
		svc := services.NewUserService(repo, avatars, new(CacheMock), sl.Discard())

		user, err := svc.Update(ctx, 3, models.UserUpdate{Avatar: file})
		require.NoError(t, err)
		assert.Equal(t, "avatars/new.png", *user.Avatar)
		avatars.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("UpdateUser", ctx, int64(9), mock.Anything).Return(nil, models.ErrUserNotFound)
		svc := services.NewUserService(repo, new(AvatarsMock), new(CacheMock), sl.Discard())

		_, err := svc.Update(ctx, 9, models.UserUpdate{LastName: strPtr("X")})
		require.ErrorIs(t, err, models.ErrUserNotFound)
	})
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	repo, avatars, cache := new(RepoMock), new(AvatarsMock), new(CacheMock)

	repo.On("GetUser", ctx, int64(5)).Return(&models.User{ID: 5, Avatar: strPtr("avatars/a.gif")}, nil)
	repo.On("DeleteUser", ctx, int64(5)).Return([]int64{1, 2}, nil)
	cache.On("Invalidate", ctx, "trip:1").Return(nil).Once()
	cache.On("Invalidate", ctx, "trip:2").Return(errors.New("redis down")).Once()
	avatars.On("Remove", ctx, "avatars/a.gif").Return(nil).Once()
	svc := services.NewUserService(repo, avatars, cache, sl.Discard())

	require.NoError(t, svc.Delete(ctx, 5))
	cache.AssertExpectations(t)
	avatars.AssertExpectations(t)
}

func TestUserService_Delete_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(RepoMock)
	repo.On("GetUser", ctx, int64(5)).Return(nil, models.ErrUserNotFound)
	svc := services.NewUserService(repo, new(AvatarsMock), new(CacheMock), sl.Discard())

	require.ErrorIs(t, svc.Delete(ctx, 5), models.ErrUserNotFound)
	repo.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
}
