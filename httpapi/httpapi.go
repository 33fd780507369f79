// Package httpapi exposes the Engine over HTTP under /api/v1/auth.
//
// Every response uses the same envelope: {"status":"success","data":...}
// on success, {"status":"fail","message":...} for client errors and
// {"status":"error","message":...} for server errors. The session id travels
// in a signed cookie written by cookie.Signer.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/cookie"
	"github.com/MrEthical07/goAccount/internal/logging"
	accountmw "github.com/MrEthical07/goAccount/middleware"
)

// Handler serves the account endpoints.
type Handler struct {
	engine *goAccount.Engine
	signer *cookie.Signer
	logger logging.Logger
}

// NewHandler returns a Handler. A nil logger discards output.
func NewHandler(engine *goAccount.Engine, signer *cookie.Signer, logger goAccount.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Handler{engine: engine, signer: signer, logger: logger}
}

// Routes returns the /api/v1/auth subrouter.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Post("/signup", h.Signup)
	r.Get("/signup/activate", h.Activate)
	r.Post("/signup/activate/resend", h.ResendActivation)
	r.Post("/change_password/request", h.RequestPasswordReset)
	r.Post("/change_password", h.ChangePassword)

	r.Group(func(r chi.Router) {
		r.Use(accountmw.Guard(h.engine, h.signer, func(w http.ResponseWriter, r *http.Request) {
			fail(w, r, http.StatusUnauthorized, msgAuthFailed)
		}))
		r.Get("/me", h.Me)
	})
	return r
}

// NewRouter mounts the API, /health_check and, when metrics is non-nil,
// /metrics.
func NewRouter(h *Handler, metrics http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(accountmw.ClientIP)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/health_check", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, http.StatusText(http.StatusOK))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	r.Mount("/api/v1/auth", h.Routes())
	return r
}
