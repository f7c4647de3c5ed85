package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/epessoa/epessoa/internal/models"
	"github.com/epessoa/epessoa/internal/repo"
	"github.com/epessoa/epessoa/internal/tokens"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// TranslateError matches the production gorm config, so duplicate-key
	// failures surface as gorm.ErrDuplicatedKey here too
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// one connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.Pessoa{}))
	return db
}

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()

	return &AuthService{
		Repo:          repo.GormRepo{DB: newTestDB(t)},
		AccessSecret:  []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	pair, err := svc.Register(ctx, "joao", "secret123", "João", "joao@x.com")
	require.NoError(t, err)
	require.NotNil(t, pair)

	assert.Equal(t, "joao", pair.Username)
	assert.Equal(t, "João", pair.Name)
	assert.Equal(t, models.RoleUser, pair.Role)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := tokens.AccessClaimsFromToken(pair.AccessToken, svc.AccessSecret)
	require.NoError(t, err)
	assert.Equal(t, "joao", claims.Subject)
	assert.Equal(t, models.RoleUser, claims.Role)

	user, err := svc.Repo.FindByUsername(ctx, "joao")
	require.NoError(t, err)
	assert.True(t, user.CanAuthenticate())
	assert.NotEqual(t, "secret123", user.PasswordHash)
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "joao", "secret123", "João", "joao@x.com")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "joao", "other", "Outro", "outro@x.com")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "joao", "secret123", "João", "joao@x.com")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "maria", "secret123", "Maria", "joao@x.com")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRepo_CreateUser_DuplicateKeyTranslated(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	first := &models.User{Username: "joao", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, svc.Repo.CreateUser(ctx, first))

	// straight to the insert, no existence pre-check: the unique index is
	// the arbiter and the driver error must come back as the sentinel
	second := &models.User{Username: "joao", PasswordHash: "y", Role: models.RoleUser}
	assert.ErrorIs(t, svc.Repo.CreateUser(ctx, second), repo.ErrUserAlreadyExist)
}

func TestAuthService_Register_ConcurrentSameUsername(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	start := make(chan struct{})
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Register(ctx, "joao", "secret123", "João", "")
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, taken int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrUsernameTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, taken)

	var count int64
	require.NoError(t, svc.Repo.DB.Model(&models.User{}).Where("username = ?", "joao").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAuthService_Login_InvalidCredentialsIndistinguishable(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "joao", "secret123", "João", "joao@x.com")
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "joao", "wrong")
	_, unknownUser := svc.Login(ctx, "ninguem", "anything")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword, unknownUser)
}

func TestAuthService_Login_AccountGates(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(u *models.User)
	}{
		{name: "disabled", mutate: func(u *models.User) { u.Enabled = false }},
		{name: "account expired", mutate: func(u *models.User) { u.AccountNonExpired = false }},
		{name: "account locked", mutate: func(u *models.User) { u.AccountNonLocked = false }},
		{name: "credentials expired", mutate: func(u *models.User) { u.CredentialsNonExpired = false }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, "user_"+tt.name, "secret123", "", "")
			require.NoError(t, err)

			user, err := svc.Repo.FindByUsername(ctx, "user_"+tt.name)
			require.NoError(t, err)
			tt.mutate(user)
			require.NoError(t, svc.Repo.SaveUser(ctx, user))

			_, err = svc.Login(ctx, "user_"+tt.name, "secret123")
			assert.ErrorIs(t, err, ErrAccountDisabled)
		})
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "joao", "secret123", "João", "joao@x.com")
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "joao", "secret123")
	require.NoError(t, err)
	require.NotNil(t, pair)

	claims, err := tokens.AccessClaimsFromToken(pair.AccessToken, svc.AccessSecret)
	require.NoError(t, err)
	assert.Equal(t, "joao", claims.Subject)

	refreshClaims, err := tokens.RefreshClaimsFromToken(pair.RefreshToken, svc.RefreshSecret)
	require.NoError(t, err)
	exists, err := svc.Repo.RefreshExists(ctx, refreshClaims.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAuthService_Refresh_RotatesAndRevokesOld(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "joao", "secret123", "João", "joao@x.com")
	require.NoError(t, err)
	login, err := svc.Login(ctx, "joao", "secret123")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "joao", refreshed.Username)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the used token must not be replayable
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// the rotated one keeps working
	_, err = svc.Refresh(ctx, refreshed.RefreshToken)
	require.NoError(t, err)
}

func TestAuthService_Refresh_ConcurrentSingleUse(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "joao", "secret123", "João", "joao@x.com")
	require.NoError(t, err)
	login, err := svc.Login(ctx, "joao", "secret123")
	require.NoError(t, err)

	start := make(chan struct{})
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Refresh(ctx, login.RefreshToken)
		}(i)
	}
	close(start)
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
	assert.Equal(t, 1, ok, "a refresh token rotates exactly once")
}

func TestAuthService_Refresh_InvalidToken(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)

	for _, tok := range []string{"", "not-a-valid-jwt"} {
		_, err := svc.Refresh(context.Background(), tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestAuthService_Refresh_UnknownJTI(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)

	// well-signed token that was never persisted
	tok, err := tokens.NewRefreshToken("joao", svc.RefreshSecret, time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_Logout_RevokesRefresh(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "joao", "secret123", "João", "joao@x.com")
	require.NoError(t, err)
	login, err := svc.Login(ctx, "joao", "secret123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, login.RefreshToken))

	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_Logout_EmptyToken_NoError(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	require.NoError(t, svc.Logout(context.Background(), ""))
}

func TestAuthService_CompleteGovbrLogin_UpsertsSingleRow(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	first, err := svc.CompleteGovbrLogin(ctx, "sub-123", "joao@x.com", "João")
	require.NoError(t, err)
	assert.Equal(t, "joao@x.com", first.Username)
	assert.Equal(t, models.RoleUser, first.Role)
	assert.True(t, first.CanAuthenticate())

	second, err := svc.CompleteGovbrLogin(ctx, "sub-123", "joao@novo.com", "João Silva")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "joao@novo.com", second.Email)
	assert.Equal(t, "João Silva", second.Name)

	var count int64
	require.NoError(t, svc.Repo.DB.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAuthService_CompleteGovbrLogin_ConcurrentSameSub(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	start := make(chan struct{})
	users := make([]*models.User, 2)
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			users[i], errs[i] = svc.CompleteGovbrLogin(ctx, "sub-123", "joao@x.com", "João")
		}(i)
	}
	close(start)
	wg.Wait()

	// both callers land on the same account, whoever created it
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, users[0].ID, users[1].ID)

	var count int64
	require.NoError(t, svc.Repo.DB.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAuthService_CompleteGovbrLogin_PlaceholderNotLocalPassword(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.CompleteGovbrLogin(ctx, "sub-123", "joao@x.com", "João")
	require.NoError(t, err)

	// the placeholder hash is derived from the sub; the sub itself is
	// the only "password" that would match, and it is never handed out
	_, err = svc.Login(ctx, "joao@x.com", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_CompleteGovbrLogin_MissingSubject(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)

	user, err := svc.CompleteGovbrLogin(context.Background(), "", "joao@x.com", "João")
	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrMissingSubject)

	var count int64
	require.NoError(t, svc.Repo.DB.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestAuthService_FullScenario(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	pair, err := svc.Register(ctx, "joao", "secret123", "João", "joao@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, pair.Role)

	_, err = svc.Login(ctx, "joao", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := svc.Login(ctx, "joao", "secret123")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "joao", refreshed.Username)
}
