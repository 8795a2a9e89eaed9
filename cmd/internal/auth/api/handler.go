package authapi

import (
	"errors"
	"log/slog"
	"net/http"

	"vidtube/cmd/internal/apperr"
	"vidtube/cmd/internal/auth/lifecycle"
)

// BasePath prefixes every account route.
const BasePath = "/api/v1/users"

// Metrics receives one observation per auth operation.
// Outcome is "ok" or the apperr kind of the failure.
type Metrics interface {
	ObserveAuth(op, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveAuth(string, string) {}

// Handler wires HTTP account endpoints to the lifecycle service.
type Handler struct {
	log     *slog.Logger
	cfg     Config
	svc     *lifecycle.Service
	metrics Metrics
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithMetrics overrides the default no-op metrics sink.
func WithMetrics(m Metrics) HandlerOption {
	return func(h *Handler) {
		if h == nil || m == nil {
			return
		}
		h.metrics = m
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, svc *lifecycle.Service, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if svc == nil {
		return nil, errors.New("auth: nil lifecycle service")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:     log,
		cfg:     cfg,
		svc:     svc,
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc(BasePath+"/register", h.handleRegister)
	mux.HandleFunc(BasePath+"/login", h.handleLogin)
	mux.HandleFunc(BasePath+"/refresh-token", h.handleRefresh)

	mux.Handle(BasePath+"/logout", h.RequireAuth(http.HandlerFunc(h.handleLogout)))
	mux.Handle(BasePath+"/change-password", h.RequireAuth(http.HandlerFunc(h.handleChangePassword)))
	mux.Handle(BasePath+"/current-user", h.RequireAuth(http.HandlerFunc(h.handleCurrentUser)))
	mux.Handle(BasePath+"/update-account", h.RequireAuth(http.HandlerFunc(h.handleUpdateAccount)))
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	v, err := h.svc.Register(r.Context(), lifecycle.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	h.observe("register", err)
	if err != nil {
		writeAppError(w, h.log, err)
		return
	}

	writeSuccess(w, http.StatusCreated, v, "User registered successfully")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.svc.Login(r.Context(), lifecycle.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	h.observe("login", err)
	if err != nil {
		writeAppError(w, h.log, err)
		return
	}

	h.setSessionCookies(w, res.Tokens)
	writeSuccess(w, http.StatusOK, loginResponse{
		User:         res.Account,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RenewalToken,
	}, "User logged in successfully")
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	tok := h.cookieValue(r, h.cfg.RefreshCookieName)
	if tok == "" {
		var req refreshRequest
		err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req)
		switch {
		case err == nil:
			tok = req.RefreshToken
		case errors.Is(err, errEmptyBody):
		default:
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	pair, err := h.svc.Refresh(r.Context(), tok)
	h.observe("refresh", err)
	if err != nil {
		writeAppError(w, h.log, err)
		return
	}

	h.setSessionCookies(w, pair)
	writeSuccess(w, http.StatusOK, tokensResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RenewalToken,
	}, "Access token refreshed")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	acct, ok := AccountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, lifecycle.MsgUnauthorized)
		return
	}

	err := h.svc.Logout(r.Context(), acct.ID)
	h.observe("logout", err)
	if err != nil {
		writeAppError(w, h.log, err)
		return
	}

	h.clearSessionCookies(w)
	writeSuccess(w, http.StatusOK, nil, "User logged out")
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	acct, ok := AccountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, lifecycle.MsgUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.svc.ChangePassword(r.Context(), acct.ID, req.OldPassword, req.NewPassword)
	h.observe("change_password", err)
	if err != nil {
		writeAppError(w, h.log, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil, "Password changed successfully")
}

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	acct, ok := AccountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, lifecycle.MsgUnauthorized)
		return
	}

	v, err := h.svc.CurrentAccount(r.Context(), acct.ID)
	if err != nil {
		writeAppError(w, h.log, err)
		return
	}
	writeSuccess(w, http.StatusOK, v, "Current user fetched successfully")
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPatch) {
		return
	}
	acct, ok := AccountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, lifecycle.MsgUnauthorized)
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	v, err := h.svc.UpdateAccount(r.Context(), acct.ID, req.FullName, req.Email)
	h.observe("update_account", err)
	if err != nil {
		writeAppError(w, h.log, err)
		return
	}

	writeSuccess(w, http.StatusOK, v, "Account details updated successfully")
}

// ---- helpers ----

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

func (h *Handler) observe(op string, err error) {
	if err == nil {
		h.metrics.ObserveAuth(op, "ok")
		return
	}
	h.metrics.ObserveAuth(op, apperr.KindOf(err).String())
}
