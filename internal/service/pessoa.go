package service

import (
	"context"
	"errors"
	"time"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/epessoa/epessoa/internal/events"
	"github.com/epessoa/epessoa/internal/logging"
	"github.com/epessoa/epessoa/internal/models"
	"github.com/epessoa/epessoa/internal/repo"
	"github.com/epessoa/epessoa/internal/search"
)

var (
	ErrPessoaNotFound = errors.New("pessoa não encontrada")
	ErrCPFTaken       = errors.New("CPF já cadastrado")
	ErrPessoaEmail    = errors.New("e-mail já cadastrado")
)

type PessoaService struct {
	Repo     repo.GormRepo
	Producer *events.Producer
	ES       *elasticsearch.Client
}

func (s *PessoaService) Create(ctx context.Context, p *models.Pessoa) (*models.Pessoa, error) {
	l := logging.FromContext(ctx).With("svc", "pessoa.create", "cpf", p.CPF)

	if exists, err := s.Repo.ExistsPessoaByCPF(ctx, p.CPF); err != nil {
		return nil, err
	} else if exists {
		l.Warn("create_failed", "reason", "cpf taken")
		return nil, ErrCPFTaken
	}

	if exists, err := s.Repo.ExistsPessoaByEmail(ctx, p.Email); err != nil {
		return nil, err
	} else if exists {
		l.Warn("create_failed", "reason", "email taken")
		return nil, ErrPessoaEmail
	}

	p.Ativo = true
	if err := s.Repo.CreatePessoa(ctx, p); err != nil {
		if errors.Is(err, repo.ErrPessoaExists) {
			return nil, ErrCPFTaken
		}
		return nil, err
	}

	s.index(ctx, p)
	s.publish(ctx, map[string]any{"type": "pessoa_created", "pessoaID": p.ID, "cpf": p.CPF})
	l.Info("pessoa_created", "id", p.ID)
	return p, nil
}

func (s *PessoaService) GetByID(ctx context.Context, id uint) (*models.Pessoa, error) {
	p, err := s.Repo.FindPessoaByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrPessoaNotFound) {
			return nil, ErrPessoaNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PessoaService) GetByCPF(ctx context.Context, cpf string) (*models.Pessoa, error) {
	p, err := s.Repo.FindPessoaByCPF(ctx, cpf)
	if err != nil {
		if errors.Is(err, repo.ErrPessoaNotFound) {
			return nil, ErrPessoaNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PessoaService) List(ctx context.Context, offset, limit int) ([]models.Pessoa, int64, error) {
	return s.Repo.ListPessoas(ctx, offset, limit)
}

func (s *PessoaService) ListAtivas(ctx context.Context) ([]models.Pessoa, error) {
	return s.Repo.ListPessoasAtivas(ctx)
}

// SearchByNome uses elasticsearch when configured and falls back to a LIKE
// scan on the database otherwise.
func (s *PessoaService) SearchByNome(ctx context.Context, nome string, from, size int) ([]models.Pessoa, error) {
	if s.ES != nil {
		_, pessoas, err := search.Search(ctx, s.ES, search.PessoaIndex, nome, from, size)
		if err == nil {
			return pessoas, nil
		}
		logging.FromContext(ctx).Warn("es_search_failed", "error", err)
	}
	return s.Repo.FindPessoasByNome(ctx, nome)
}

func (s *PessoaService) Update(ctx context.Context, id uint, in *models.Pessoa) (*models.Pessoa, error) {
	l := logging.FromContext(ctx).With("svc", "pessoa.update", "id", id)

	p, err := s.Repo.FindPessoaByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrPessoaNotFound) {
			return nil, ErrPessoaNotFound
		}
		return nil, err
	}

	if p.CPF != in.CPF {
		if exists, err := s.Repo.ExistsPessoaByCPF(ctx, in.CPF); err != nil {
			return nil, err
		} else if exists {
			return nil, ErrCPFTaken
		}
	}
	if p.Email != in.Email {
		if exists, err := s.Repo.ExistsPessoaByEmail(ctx, in.Email); err != nil {
			return nil, err
		} else if exists {
			return nil, ErrPessoaEmail
		}
	}

	applyUpdate(p, in)
	if err := s.Repo.SavePessoa(ctx, p); err != nil {
		return nil, err
	}

	s.index(ctx, p)
	s.publish(ctx, map[string]any{"type": "pessoa_updated", "pessoaID": p.ID})
	l.Info("pessoa_updated")
	return p, nil
}

// Delete marks the record inactive. The row stays for auditing.
func (s *PessoaService) Delete(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "pessoa.delete", "id", id)

	p, err := s.Repo.FindPessoaByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrPessoaNotFound) {
			return ErrPessoaNotFound
		}
		return err
	}

	p.Ativo = false
	if err := s.Repo.SavePessoa(ctx, p); err != nil {
		return err
	}

	s.index(ctx, p)
	s.publish(ctx, map[string]any{"type": "pessoa_deleted", "pessoaID": id, "soft": true})
	l.Info("pessoa_soft_deleted")
	return nil
}

// HardDelete removes the row for good. Admin-only, enforced at the router.
func (s *PessoaService) HardDelete(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "pessoa.hard_delete", "id", id)

	if err := s.Repo.DeletePessoa(ctx, id); err != nil {
		if errors.Is(err, repo.ErrPessoaNotFound) {
			return ErrPessoaNotFound
		}
		return err
	}

	if s.ES != nil {
		if err := search.Delete(ctx, s.ES, search.PessoaIndex, id); err != nil {
			logging.FromContext(ctx).Warn("es_delete_failed", "error", err)
		}
	}
	s.publish(ctx, map[string]any{"type": "pessoa_deleted", "pessoaID": id, "soft": false})
	l.Info("pessoa_hard_deleted")
	return nil
}

func applyUpdate(p, in *models.Pessoa) {
	p.NomeCompleto = in.NomeCompleto
	p.CPF = in.CPF
	p.DataNascimento = in.DataNascimento
	p.Sexo = in.Sexo
	p.EstadoCivil = in.EstadoCivil
	p.CEP = in.CEP
	p.Rua = in.Rua
	p.Numero = in.Numero
	p.Complemento = in.Complemento
	p.Bairro = in.Bairro
	p.Cidade = in.Cidade
	p.Estado = in.Estado
	p.Email = in.Email
	p.TelefoneFixo = in.TelefoneFixo
	p.TelefoneCelular = in.TelefoneCelular
	p.RendaMensal = in.RendaMensal
	p.ScoreCredito = in.ScoreCredito
	p.Profissao = in.Profissao
	p.Banco = in.Banco
	p.NumeroConta = in.NumeroConta
	p.TipoConta = in.TipoConta
}

func (s *PessoaService) index(ctx context.Context, p *models.Pessoa) {
	if s.ES == nil {
		return
	}
	if err := search.Index(ctx, s.ES, search.PessoaIndex, p); err != nil {
		logging.FromContext(ctx).Warn("es_index_failed", "pessoaID", p.ID, "error", err)
	}
}

func (s *PessoaService) publish(ctx context.Context, event map[string]any) {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, events.TopicPessoa, "", event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "error", err)
	}
}
