package service

import (
	"context"
	"errors"
	"time"

	"github.com/epessoa/epessoa/internal/events"
	"github.com/epessoa/epessoa/internal/hash"
	"github.com/epessoa/epessoa/internal/logging"
	"github.com/epessoa/epessoa/internal/models"
	"github.com/epessoa/epessoa/internal/repo"
	"github.com/epessoa/epessoa/internal/tokens"
)

// Closed error set for the HTTP layer to map against. Storage and crypto
// failures never cross this boundary raw.
var (
	ErrInvalidCredentials = errors.New("usuário ou senha inválidos")
	ErrAccountDisabled    = errors.New("conta desabilitada")
	ErrUsernameTaken      = errors.New("username já está em uso")
	ErrEmailTaken         = errors.New("e-mail já está em uso")
	ErrInvalidToken       = tokens.ErrInvalidToken
	ErrMissingSubject     = errors.New("identidade federada sem sub")
)

type AuthService struct {
	Repo     repo.GormRepo
	Producer *events.Producer

	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// SessionPair is the session response shape handed to the boundary.
type SessionPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"type"`
	ExpiresIn    int64  `json:"expiresIn"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	Role         string `json:"role"`
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*SessionPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	user, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			// same error as a wrong password, existence must not leak
			l.Warn("login_failed", "reason", "unknown user")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "error", err)
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "reason", "password mismatch")
		return nil, ErrInvalidCredentials
	}

	if !user.CanAuthenticate() {
		l.Warn("login_failed", "reason", "account gates closed")
		return nil, ErrAccountDisabled
	}

	pair, err := s.IssuePair(ctx, user)
	if err != nil {
		l.Error("login_failed", "error", err)
		return nil, err
	}

	s.publish(ctx, user.Username, map[string]any{"type": "user_logged_in", "username": user.Username})
	l.Info("login_successful")
	return pair, nil
}

func (s *AuthService) Register(ctx context.Context, username, password, name, email string) (*SessionPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register", "username", username)

	if taken, err := s.Repo.ExistsByUsername(ctx, username); err != nil {
		return nil, err
	} else if taken {
		l.Warn("register_failed", "reason", "username taken")
		return nil, ErrUsernameTaken
	}

	if email != "" {
		if taken, err := s.Repo.ExistsByEmail(ctx, email); err != nil {
			return nil, err
		} else if taken {
			l.Warn("register_failed", "reason", "email taken")
			return nil, ErrEmailTaken
		}
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_failed", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:              username,
		PasswordHash:          pwHash,
		Name:                  name,
		Email:                 email,
		Role:                  models.RoleUser,
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
	}

	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			// lost the race against a concurrent register
			l.Warn("register_failed", "reason", "username taken")
			return nil, ErrUsernameTaken
		}
		l.Error("register_failed", "error", err)
		return nil, err
	}

	pair, err := s.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, user.Username, map[string]any{"type": "user_registered", "username": user.Username})
	l.Info("register_successful")
	return pair, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*SessionPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		l.Warn("refresh_failed", "reason", "unverifiable token")
		return nil, ErrInvalidToken
	}

	if exists, err := s.Repo.RefreshExists(ctx, claims.ID); err != nil {
		return nil, err
	} else if !exists {
		l.Warn("refresh_failed", "reason", "unknown jti")
		return nil, ErrInvalidToken
	}

	user, err := s.Repo.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			// store inconsistency looks like any other bad token
			l.Warn("refresh_failed", "reason", "subject without user")
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	accessExp := time.Now().Add(s.AccessTTL)
	accessToken, err := tokens.NewAccessToken(user.Username, user.Role, s.AccessSecret, accessExp)
	if err != nil {
		return nil, err
	}

	refreshExp := time.Now().Add(s.RefreshTTL)
	newRefresh, err := tokens.NewRefreshToken(user.Username, s.RefreshSecret, refreshExp)
	if err != nil {
		return nil, err
	}

	newClaims, err := tokens.RefreshClaimsFromToken(newRefresh, s.RefreshSecret)
	if err != nil {
		return nil, err
	}

	rotated := models.RefreshToken{
		Token:     tokens.Sha256Hex(newRefresh),
		UserID:    user.ID,
		JTI:       newClaims.ID,
		ExpiresAt: refreshExp.Unix(),
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, rotated); err != nil {
		if errors.Is(err, repo.ErrTokenRevoked) {
			l.Warn("refresh_failed", "reason", "token expired or revoked")
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	l.Info("refresh_successful", "username", user.Username)
	return &SessionPair{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
		Username:     user.Username,
		Name:         user.Name,
		Role:         user.Role,
	}, nil
}

// Logout revokes the stored refresh token. Unknown tokens are ignored so
// the operation stays idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Repo.RevokeRefreshToken(ctx, refreshToken)
}

// CompleteGovbrLogin upserts the local account linked to a Gov.br subject.
// Repeated logins with the same sub land on the same row, with e-mail and
// name refreshed from the assertion.
func (s *AuthService) CompleteGovbrLogin(ctx context.Context, sub, email, name string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.govbr")

	if sub == "" {
		return nil, ErrMissingSubject
	}

	user, err := s.Repo.FindByGovbrSub(ctx, sub)
	if err == nil {
		user.Email = email
		user.Name = name
		if err := s.Repo.SaveUser(ctx, user); err != nil {
			return nil, err
		}
		l.Info("govbr_user_updated", "username", user.Username)
		return user, nil
	}
	if !errors.Is(err, repo.ErrUserNotFound) {
		return nil, err
	}

	// Placeholder credential: bcrypt of the provider sub. It can never
	// satisfy the local password path unless the sub itself is guessed.
	pwHash, err := hash.HashPassword(sub)
	if err != nil {
		return nil, err
	}

	user = &models.User{
		Username:              email,
		PasswordHash:          pwHash,
		Name:                  name,
		Email:                 email,
		Role:                  models.RoleUser,
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		GovbrSub:              &sub,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			// lost the race against a concurrent login with the same sub;
			// the winner's row is the account
			existing, ferr := s.Repo.FindByGovbrSub(ctx, sub)
			if ferr != nil {
				return nil, ferr
			}
			existing.Email = email
			existing.Name = name
			if err := s.Repo.SaveUser(ctx, existing); err != nil {
				return nil, err
			}
			l.Info("govbr_user_updated", "username", existing.Username)
			return existing, nil
		}
		return nil, err
	}

	s.publish(ctx, user.Username, map[string]any{"type": "govbr_login", "username": user.Username})
	l.Info("govbr_user_created", "username", user.Username)
	return user, nil
}

// IssuePair mints the access+refresh pair for an already-authenticated user
// and persists the refresh token. Shared by login, register and the Gov.br
// callback.
func (s *AuthService) IssuePair(ctx context.Context, user *models.User) (*SessionPair, error) {
	accessExp := time.Now().Add(s.AccessTTL)
	accessToken, err := tokens.NewAccessToken(user.Username, user.Role, s.AccessSecret, accessExp)
	if err != nil {
		return nil, err
	}

	refreshExp := time.Now().Add(s.RefreshTTL)
	refreshToken, err := tokens.NewRefreshToken(user.Username, s.RefreshSecret, refreshExp)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.AddRefreshToken(ctx, refreshToken, s.RefreshSecret, user.ID); err != nil {
		return nil, err
	}

	return &SessionPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
		Username:     user.Username,
		Name:         user.Name,
		Role:         user.Role,
	}, nil
}

func (s *AuthService) publish(ctx context.Context, key string, event map[string]any) {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, events.TopicAuth, key, event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "error", err)
	}
}
