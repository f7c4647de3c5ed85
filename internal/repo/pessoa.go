package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/epessoa/epessoa/internal/models"
)

func (r *GormRepo) FindPessoaByID(ctx context.Context, id uint) (*models.Pessoa, error) {
	var p models.Pessoa
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPessoaNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) FindPessoaByCPF(ctx context.Context, cpf string) (*models.Pessoa, error) {
	var p models.Pessoa
	if err := r.DB.WithContext(ctx).Where("cpf = ?", cpf).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPessoaNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) ExistsPessoaByCPF(ctx context.Context, cpf string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Pessoa{}).
		Where("cpf = ?", cpf).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) ExistsPessoaByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Pessoa{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) ListPessoas(ctx context.Context, offset, limit int) ([]models.Pessoa, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Pessoa{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Pessoa
	if err := r.DB.WithContext(ctx).Model(&models.Pessoa{}).
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *GormRepo) ListPessoasAtivas(ctx context.Context) ([]models.Pessoa, error) {
	var items []models.Pessoa
	if err := r.DB.WithContext(ctx).
		Where("ativo = ?", true).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) FindPessoasByNome(ctx context.Context, nome string) ([]models.Pessoa, error) {
	var items []models.Pessoa
	if err := r.DB.WithContext(ctx).
		Where("LOWER(nome_completo) LIKE LOWER(?)", "%"+nome+"%").
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) CreatePessoa(ctx context.Context, p *models.Pessoa) error {
	if err := r.DB.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrPessoaExists
		}
		return err
	}
	return nil
}

func (r *GormRepo) SavePessoa(ctx context.Context, p *models.Pessoa) error {
	return r.DB.WithContext(ctx).Save(p).Error
}

func (r *GormRepo) DeletePessoa(ctx context.Context, id uint) error {
	result := r.DB.WithContext(ctx).Delete(&models.Pessoa{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPessoaNotFound
	}
	return nil
}
