package httpapi

import (
	"net/http"

	"github.com/go-chi/render"

	goAccount "github.com/MrEthical07/goAccount"
	accountmw "github.com/MrEthical07/goAccount/middleware"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	ResetToken    string `json:"reset_token"`
	Password      string `json:"password"`
	PasswordAgain string `json:"password_again"`
}

type meResponse struct {
	UserID string `json:"user_id"`
}

// Login binds the caller's session to the user and rewrites the session
// cookie with the rotated id.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	sid, _, err := h.engine.Login(r.Context(), h.signer.Read(r), req.Username, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.signer.Write(w, sid); err != nil {
		h.respondError(w, r, err)
		return
	}
	success(w, r, nil)
}

// Logout destroys the session and clears the cookie. It succeeds without a
// session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := h.signer.Read(r); sid != "" {
		if err := h.engine.Logout(r.Context(), sid); err != nil {
			h.respondError(w, r, err)
			return
		}
	}
	h.signer.Clear(w)
	success(w, r, nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := accountmw.UserIDFromContext(r.Context())
	success(w, r, meResponse{UserID: userID})
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}

	_, err := h.engine.Signup(r.Context(), goAccount.SignupRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	success(w, r, nil)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.Activate(r.Context(), r.URL.Query().Get("token")); err != nil {
		h.respondError(w, r, err)
		return
	}
	success(w, r, nil)
}

func (h *Handler) ResendActivation(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.ResendActivation(r.Context(), req.Email); err != nil {
		h.respondError(w, r, err)
		return
	}
	success(w, r, nil)
}

func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.respondError(w, r, err)
		return
	}
	success(w, r, nil)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.engine.ChangePassword(r.Context(), goAccount.ChangePasswordRequest{
		ResetToken:    req.ResetToken,
		Password:      req.Password,
		PasswordAgain: req.PasswordAgain,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	success(w, r, nil)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		fail(w, r, http.StatusBadRequest, msgInvalidInput)
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := errorResponse(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	fail(w, r, code, message)
}
