package models

import "time"

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

type User struct {
	ID                    uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username              string  `gorm:"uniqueIndex;not null"     json:"username"`
	PasswordHash          string  `gorm:"not null"                 json:"-"`
	Name                  string  `json:"name"`
	Email                 string  `gorm:"index"                    json:"email"`
	Role                  string  `gorm:"not null"                 json:"role"`
	Enabled               bool    `gorm:"not null;default:true"    json:"enabled"`
	AccountNonExpired     bool    `gorm:"not null;default:true"    json:"-"`
	AccountNonLocked      bool    `gorm:"not null;default:true"    json:"-"`
	CredentialsNonExpired bool    `gorm:"not null;default:true"    json:"-"`
	GovbrSub              *string `gorm:"uniqueIndex"              json:"-"`
}

// CanAuthenticate reports whether every account gate is open. All four
// flags must hold for a local login to succeed.
func (u *User) CanAuthenticate() bool {
	return u.Enabled && u.AccountNonExpired && u.AccountNonLocked && u.CredentialsNonExpired
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"uniqueIndex;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	JTI       string `gorm:"uniqueIndex;not null" json:"jti"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

const (
	SexoMasculino    = "MASCULINO"
	SexoFeminino     = "FEMININO"
	SexoOutro        = "OUTRO"
	SexoNaoInformado = "NAO_INFORMADO"
)

type Pessoa struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	NomeCompleto   string    `gorm:"column:nome_completo;not null;size:200" json:"nomeCompleto"`
	CPF            string    `gorm:"column:cpf;uniqueIndex;not null;size:11" json:"cpf"`
	DataNascimento time.Time `gorm:"column:data_nascimento;not null" json:"dataNascimento"`
	Sexo           string    `gorm:"not null;size:20" json:"sexo"`
	EstadoCivil    string    `gorm:"column:estado_civil;not null;size:20" json:"estadoCivil"`

	CEP         string `gorm:"column:cep;not null;size:8" json:"cep"`
	Rua         string `gorm:"not null;size:200" json:"rua"`
	Numero      string `gorm:"not null;size:10" json:"numero"`
	Complemento string `gorm:"size:100" json:"complemento,omitempty"`
	Bairro      string `gorm:"not null;size:100" json:"bairro"`
	Cidade      string `gorm:"not null;size:100" json:"cidade"`
	Estado      string `gorm:"not null;size:2" json:"estado"`

	Email           string `gorm:"uniqueIndex;not null;size:100" json:"email"`
	TelefoneFixo    string `gorm:"column:telefone_fixo;size:10" json:"telefoneFixo,omitempty"`
	TelefoneCelular string `gorm:"column:telefone_celular;not null;size:11" json:"telefoneCelular"`

	RendaMensal  float64 `gorm:"column:renda_mensal" json:"rendaMensal"`
	ScoreCredito int     `gorm:"column:score_credito" json:"scoreCredito"`
	Profissao    string  `gorm:"size:100" json:"profissao,omitempty"`
	Banco        string  `gorm:"size:100" json:"banco,omitempty"`
	NumeroConta  string  `gorm:"column:numero_conta;size:20" json:"numeroConta,omitempty"`
	TipoConta    string  `gorm:"column:tipo_conta;size:20" json:"tipoConta,omitempty"`

	UsuarioID *uint     `gorm:"column:usuario_id;index" json:"usuarioId,omitempty"`
	Ativo     bool      `gorm:"not null;default:true" json:"ativo"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
