package seed

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/epessoa/epessoa/internal/hash"
	"github.com/epessoa/epessoa/internal/logging"
	"github.com/epessoa/epessoa/internal/models"
	"github.com/epessoa/epessoa/internal/repo"
)

type defaultUser struct {
	username string
	password string
	name     string
	email    string
	role     string
}

var defaults = []defaultUser{
	{username: "admin", password: "admin123", name: "Administrador", email: "admin@epessoa.gov.br", role: models.RoleAdmin},
	{username: "demo", password: "demo123", name: "Usuário Demo", email: "demo@epessoa.gov.br", role: models.RoleUser},
}

// EnsureDefaultUsers creates the stock admin and demo accounts when absent.
func EnsureDefaultUsers(ctx context.Context, db *gorm.DB) error {
	l := logging.FromContext(ctx).With("svc", "seed")
	r := repo.GormRepo{DB: db}

	for _, d := range defaults {
		exists, err := r.ExistsByUsername(ctx, d.username)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		if exists {
			continue
		}

		pwHash, err := hash.HashPassword(d.password)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}

		user := &models.User{
			Username:              d.username,
			PasswordHash:          pwHash,
			Name:                  d.name,
			Email:                 d.email,
			Role:                  d.role,
			Enabled:               true,
			AccountNonExpired:     true,
			AccountNonLocked:      true,
			CredentialsNonExpired: true,
		}
		if err := r.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		l.Info("default_user_created", "username", d.username, "role", d.role)
	}
	return nil
}
