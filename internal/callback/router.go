package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gorilla/mux"

	"github.com/mcoot/letsplay/internal/middleware"
	"github.com/mcoot/letsplay/internal/model"
)

// LoginHandler consumes the outcome of the provider redirect
type LoginHandler interface {
	CompleteLogin(ctx context.Context, token string) error
	FailLogin(ctx context.Context) error
}

const (
	successPrefix = "/login-success"
	failedPath    = "/login-failed"
)

// handler serves the redirect routes. Only the first redirect is consumed.
type handler struct {
	login    LoginHandler
	finish   func(error)
	consumed atomic.Bool
	logger   *slog.Logger
}

// NewRouter creates the callback router. finish receives the login outcome
// exactly once.
func NewRouter(login LoginHandler, finish func(error), logger *slog.Logger) http.Handler {
	h := &handler{login: login, finish: finish, logger: logger}

	r := mux.NewRouter()
	r.Use(middleware.Recovery(logger, middleware.DefaultPanicHandler))
	r.Use(middleware.Logging(logger, redactToken))

	r.HandleFunc(successPrefix+"/{token}", h.success).Methods(http.MethodGet)
	r.HandleFunc(successPrefix+"/", h.failed).Methods(http.MethodGet)
	r.HandleFunc(successPrefix, h.failed).Methods(http.MethodGet)
	r.HandleFunc(failedPath, h.failed).Methods(http.MethodGet)

	return r
}

func (h *handler) success(w http.ResponseWriter, r *http.Request) {
	if !h.claim(w) {
		return
	}

	token := strings.TrimSpace(mux.Vars(r)["token"])
	err := h.login.CompleteLogin(r.Context(), token)
	h.respond(w, err)
	h.finish(err)
}

func (h *handler) failed(w http.ResponseWriter, r *http.Request) {
	if !h.claim(w) {
		return
	}

	err := h.login.FailLogin(r.Context())
	if err == nil {
		err = model.ErrLoginFailed
	}
	h.respond(w, err)
	h.finish(err)
}

// claim reports whether this request is the first redirect
func (h *handler) claim(w http.ResponseWriter) bool {
	if h.consumed.CompareAndSwap(false, true) {
		return true
	}
	writePage(w, http.StatusGone, "This login link has already been used. Return to the terminal.")
	return false
}

func (h *handler) respond(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writePage(w, http.StatusOK, "Logged in. You can close this window and return to the terminal.")
	case errors.Is(err, model.ErrLoginFailed):
		writePage(w, http.StatusUnauthorized, "Login failed. Return to the terminal and try again.")
	default:
		h.logger.Error("failed to complete login", slog.String("error", err.Error()))
		writePage(w, http.StatusInternalServerError, "Could not save the login. Return to the terminal for details.")
	}
}

func writePage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintln(w, message)
}

func redactToken(path string) string {
	if strings.HasPrefix(path, successPrefix+"/") && len(path) > len(successPrefix)+1 {
		return successPrefix + "/<redacted>"
	}
	return path
}
