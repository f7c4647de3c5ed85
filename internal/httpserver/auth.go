package httpserver

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/epessoa/epessoa/internal/govbr"
	"github.com/epessoa/epessoa/internal/logging"
	"github.com/epessoa/epessoa/internal/service"
)

const stateCookie = "govbr_oauth_state"

type AuthHTTP struct {
	Svc             *service.AuthService
	Govbr           *govbr.Client
	SuccessRedirect string
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	pair, err := h.Svc.Register(ctx, req.Username, req.Password, req.Name, req.Email)
	if err != nil {
		return mapAuthError(err)
	}

	return c.JSON(http.StatusCreated, pair)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return mapAuthError(err)
	}

	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return mapAuthError(err)
	}

	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.Logout(ctx, req.RefreshToken); err != nil {
		l.Error("logout_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "logout failed")
	}

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// GovbrLogin sends the browser to the Gov.br authorization endpoint, with a
// random state pinned in a short-lived cookie.
func (h *AuthHTTP) GovbrLogin(c echo.Context) error {
	if !h.Govbr.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "gov.br login is not configured")
	}

	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.Redirect(http.StatusFound, h.Govbr.AuthCodeURL(state))
}

// GovbrCallback finishes the code exchange, upserts the federated user and
// hands the token pair back. Tokens travel in the redirect query string when
// a success redirect is configured; known-weak transport, kept on purpose.
func (h *AuthHTTP) GovbrCallback(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_govbr_callback")

	if !h.Govbr.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "gov.br login is not configured")
	}

	if cookie, err := c.Cookie(stateCookie); err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		l.Warn("govbr_callback_failed", "reason", "state mismatch")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid state")
	}

	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing code")
	}

	tok, err := h.Govbr.Exchange(ctx, code)
	if err != nil {
		l.Warn("govbr_callback_failed", "reason", "exchange", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "authorization code exchange failed")
	}

	info, err := h.Govbr.UserInfo(ctx, tok)
	if err != nil {
		if errors.Is(err, govbr.ErrMissingSubject) {
			return echo.NewHTTPError(http.StatusBadRequest, "identity assertion missing subject")
		}
		l.Warn("govbr_callback_failed", "reason", "userinfo", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "userinfo request failed")
	}

	user, err := h.Svc.CompleteGovbrLogin(ctx, info.Sub, info.Email, info.Name)
	if err != nil {
		return mapAuthError(err)
	}

	pair, err := h.Svc.IssuePair(ctx, user)
	if err != nil {
		l.Error("govbr_callback_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "token issuance failed")
	}

	l.Info("govbr_login_successful", "username", user.Username)

	if h.SuccessRedirect == "" {
		return c.JSON(http.StatusOK, pair)
	}

	q := url.Values{}
	q.Set("token", pair.AccessToken)
	q.Set("refreshToken", pair.RefreshToken)
	return c.Redirect(http.StatusFound, h.SuccessRedirect+"?"+q.Encode())
}

func mapAuthError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountDisabled),
		errors.Is(err, service.ErrInvalidToken):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrMissingSubject):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
