package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserAlreadyExist = errors.New("user already exist")
	ErrPessoaNotFound   = errors.New("pessoa not found")
	ErrPessoaExists     = errors.New("pessoa already exist")
	ErrTokenRevoked     = errors.New("token expired or revoked")
)

type GormRepo struct {
	DB *gorm.DB
}
