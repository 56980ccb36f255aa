package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-todo-api/internal/models"
	"github.com/pribylovaa/go-todo-api/internal/storage"
	"github.com/pribylovaa/go-todo-api/internal/storage/mocks"
)

func TestRegister_Success(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	email := "Alice@Example.com"

	st.EXPECT().UserByUsername(gomock.Any(), "alice").Return(nil, storage.ErrNotFound)

	var saved *models.User
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, user *models.User) error {
			saved = user
			return nil
		})
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	user, pair, err := svc.Register(context.Background(), RegisterInput{
		Username: " alice ",
		Email:    &email,
		Password: "long-enough-password",
	})
	require.NoError(t, err)
	require.NotNil(t, pair)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	require.Equal(t, "alice", user.Username)
	require.Equal(t, models.StatusActive, user.Status)
	require.NotNil(t, user.Email)
	require.Equal(t, "alice@example.com", *user.Email)

	// В БД уходит argon2id-дайджест, не сам пароль.
	require.NotNil(t, saved)
	require.NotEqual(t, "long-enough-password", saved.PasswordHash)
	require.True(t, verifyPassword("long-enough-password", saved.PasswordHash))
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	badEmail := "not-an-email"

	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{
			name:    "short_username",
			input:   RegisterInput{Username: "ab", Password: "long-enough-password"},
			wantErr: ErrInvalidArgument,
		},
		{
			name:    "bad_username_chars",
			input:   RegisterInput{Username: "ali ce!", Password: "long-enough-password"},
			wantErr: ErrInvalidArgument,
		},
		{
			name:    "bad_email",
			input:   RegisterInput{Username: "alice", Email: &badEmail, Password: "long-enough-password"},
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "empty_password",
			input:   RegisterInput{Username: "alice", Password: ""},
			wantErr: ErrEmptyPassword,
		},
		{
			name:    "weak_password",
			input:   RegisterInput{Username: "alice", Password: "short"},
			wantErr: ErrWeakPassword,
		},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			svc := New(mocks.NewMockStorage(ctrl), testAuthConfig())

			_, _, err := svc.Register(context.Background(), tc.input)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRegister_UsernameTaken(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	st.EXPECT().UserByUsername(gomock.Any(), "alice").Return(testUser(), nil)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Password: "long-enough-password",
	})
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegister_EmailTaken(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	email := "alice@example.com"

	st.EXPECT().UserByUsername(gomock.Any(), "alice").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    &email,
		Password: "long-enough-password",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	digest, err := hashPassword("long-enough-password")
	require.NoError(t, err)

	user := testUser()
	user.PasswordHash = digest

	st.EXPECT().UserByUsername(gomock.Any(), "alice").Return(user, nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	got, pair, err := svc.Login(context.Background(), "alice", "long-enough-password")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
}

// Неизвестный username и неверный пароль дают одну и ту же ошибку:
// по ответу нельзя понять, существует ли учётная запись.
func TestLogin_Indistinguishable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	digest, err := hashPassword("real-password")
	require.NoError(t, err)

	user := testUser()
	user.PasswordHash = digest

	st.EXPECT().UserByUsername(gomock.Any(), "ghost").Return(nil, storage.ErrNotFound)
	_, _, errUnknown := svc.Login(context.Background(), "ghost", "whatever-password")

	st.EXPECT().UserByUsername(gomock.Any(), "alice").Return(user, nil)
	_, _, errWrongPass := svc.Login(context.Background(), "alice", "wrong-password")

	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.ErrorIs(t, errWrongPass, ErrInvalidCredentials)
}

func TestLogin_AccountNotActive(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	digest, err := hashPassword("long-enough-password")
	require.NoError(t, err)

	user := testUser()
	user.PasswordHash = digest
	user.Status = models.StatusSuspended

	st.EXPECT().UserByUsername(gomock.Any(), "alice").Return(user, nil)

	_, _, err = svc.Login(context.Background(), "alice", "long-enough-password")
	require.ErrorIs(t, err, ErrAccountNotActive)

	var notActive *AccountNotActiveError
	require.True(t, errors.As(err, &notActive))
	require.Equal(t, models.StatusSuspended, notActive.Status)
}

func TestRefresh_Success(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	user := testUser()
	plaintext := "opaque-refresh-secret"

	st.EXPECT().RefreshTokenByHash(gomock.Any(), hashRefreshSecret(plaintext)).
		Return(&models.RefreshToken{
			UserID:    user.ID,
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}, nil)
	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

	accessToken, expiresAt, err := svc.Refresh(context.Background(), plaintext)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)
	require.True(t, expiresAt.After(time.Now()))

	gotID, err := svc.validateAccessToken(accessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, gotID)
}

func TestRefresh_RevokedToken(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	revokedAt := time.Now().UTC().Add(-time.Minute)
	plaintext := "revoked-refresh-secret"

	st.EXPECT().RefreshTokenByHash(gomock.Any(), hashRefreshSecret(plaintext)).
		Return(&models.RefreshToken{
			UserID:    uuid.New(),
			ExpiresAt: time.Now().UTC().Add(time.Hour),
			RevokedAt: &revokedAt,
		}, nil)

	_, _, err := svc.Refresh(context.Background(), plaintext)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefresh_SuspendedAccount(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	user := testUser()
	user.Status = models.StatusSuspended
	plaintext := "opaque-refresh-secret"

	st.EXPECT().RefreshTokenByHash(gomock.Any(), hashRefreshSecret(plaintext)).
		Return(&models.RefreshToken{
			UserID:    user.ID,
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}, nil)
	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

	_, _, err := svc.Refresh(context.Background(), plaintext)
	require.ErrorIs(t, err, ErrAccountNotActive)
}

func TestRevokeToken_Idempotent(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	plaintext := "opaque-refresh-secret"
	hash := hashRefreshSecret(plaintext)

	gomock.InOrder(
		st.EXPECT().RevokeRefreshToken(gomock.Any(), hash, gomock.Any()).Return(true, nil),
		st.EXPECT().RevokeRefreshToken(gomock.Any(), hash, gomock.Any()).Return(false, nil),
		st.EXPECT().RevokeRefreshToken(gomock.Any(), hash, gomock.Any()).Return(false, storage.ErrNotFound),
	)

	require.NoError(t, svc.RevokeToken(context.Background(), plaintext))
	require.NoError(t, svc.RevokeToken(context.Background(), plaintext))
	require.NoError(t, svc.RevokeToken(context.Background(), plaintext))
}

// Пустой токен — no-op: хранилище не трогаем вовсе.
func TestRevokeToken_EmptyNoop(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	require.NoError(t, svc.RevokeToken(context.Background(), ""))
}

func TestRevokeAllForUser(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	userID := uuid.New()
	st.EXPECT().RevokeAllUserTokens(gomock.Any(), userID, gomock.Any()).
		Return([]string{"hash-1", "hash-2"}, nil)

	count, err := svc.RevokeAllForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestCurrentUser(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	user := testUser()

	token, _, err := svc.generateAccessToken(user, time.Now().UTC())
	require.NoError(t, err)

	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

	got, err := svc.CurrentUser(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
}

func TestCurrentUser_UserGone(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	user := testUser()

	token, _, err := svc.generateAccessToken(user, time.Now().UTC())
	require.NoError(t, err)

	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(nil, storage.ErrNotFound)

	_, err = svc.CurrentUser(context.Background(), token)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCurrentUser_Inactive(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testAuthConfig())

	user := testUser()
	user.Status = models.StatusInactive

	token, _, err := svc.generateAccessToken(user, time.Now().UTC())
	require.NoError(t, err)

	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

	_, err = svc.CurrentUser(context.Background(), token)
	require.ErrorIs(t, err, ErrAccountNotActive)
}
