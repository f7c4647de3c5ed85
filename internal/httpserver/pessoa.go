package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/epessoa/epessoa/internal/logging"
	"github.com/epessoa/epessoa/internal/models"
	"github.com/epessoa/epessoa/internal/service"
)

const defaultPageSize = 20

type PessoaHTTP struct {
	Svc *service.PessoaService
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func pessoaID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func (h *PessoaHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pessoa_create")

	var req models.Pessoa
	if err := c.Bind(&req); err != nil {
		l.Warn("create_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.ID = 0

	p, err := h.Svc.Create(ctx, &req)
	if err != nil {
		return mapPessoaError(err)
	}

	return c.JSON(http.StatusCreated, p)
}

func (h *PessoaHTTP) Get(c echo.Context) error {
	id, err := pessoaID(c)
	if err != nil {
		return err
	}

	p, err := h.Svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return mapPessoaError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PessoaHTTP) GetByCPF(c echo.Context) error {
	p, err := h.Svc.GetByCPF(c.Request().Context(), c.Param("cpf"))
	if err != nil {
		return mapPessoaError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PessoaHTTP) List(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), defaultPageSize)
	offset := (page - 1) * size

	items, total, err := h.Svc.List(c.Request().Context(), offset, size)
	if err != nil {
		return mapPessoaError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        size,
			"total":       total,
			"total_pages": (total + int64(size) - 1) / int64(size),
			"has_prev":    page > 1,
			"has_next":    int64(offset+size) < total,
		},
	})
}

func (h *PessoaHTTP) ListAtivas(c echo.Context) error {
	items, err := h.Svc.ListAtivas(c.Request().Context())
	if err != nil {
		return mapPessoaError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *PessoaHTTP) Search(c echo.Context) error {
	nome := c.QueryParam("nome")
	if nome == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "nome is required")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), defaultPageSize)

	items, err := h.Svc.SearchByNome(c.Request().Context(), nome, (page-1)*size, size)
	if err != nil {
		return mapPessoaError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *PessoaHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pessoaID(c)
	if err != nil {
		return err
	}

	var req models.Pessoa
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.Update(ctx, id, &req)
	if err != nil {
		return mapPessoaError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PessoaHTTP) Delete(c echo.Context) error {
	id, err := pessoaID(c)
	if err != nil {
		return err
	}

	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return mapPessoaError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PessoaHTTP) HardDelete(c echo.Context) error {
	id, err := pessoaID(c)
	if err != nil {
		return err
	}

	if err := h.Svc.HardDelete(c.Request().Context(), id); err != nil {
		return mapPessoaError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func mapPessoaError(err error) error {
	switch {
	case errors.Is(err, service.ErrPessoaNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrCPFTaken),
		errors.Is(err, service.ErrPessoaEmail):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
