package auth

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the orchestrator over HTTP. Routing, cookies and request
// decoding live here; every decision belongs to the Service.
type Handler struct {
	service *Service
	cookies CookieWriter
}

// NewHandler creates the HTTP layer over the service.
func NewHandler(service *Service, cookies CookieWriter) *Handler {
	return &Handler{service: service, cookies: cookies}
}

func deviceFromRequest(r *http.Request) Device {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return Device{
		Fingerprint: r.UserAgent(),
		IP:          ip,
	}
}

func decodeJSON(r *http.Request, dst interface{}) *Error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return newError(CodeInvalidArgument, "Invalid request body")
	}
	return nil
}

func refreshCookie(r *http.Request) string {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// RegisterHandler handles user registration. Accepts JSON or multipart form
// data with an optional avatar file.
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var (
		req    RegisterRequest
		avatar *AvatarUpload
	)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			WriteError(w, newError(CodeInvalidArgument, "Invalid request body"))
			return
		}
		req.Fullname = r.FormValue("fullname")
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")

		if file, header, err := r.FormFile("avatar"); err == nil {
			defer file.Close()
			avatar = &AvatarUpload{Filename: header.Filename, Body: file}
		}
	} else {
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, err)
			return
		}
	}

	user, err := h.service.Register(r.Context(), req, avatar)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, "User registered successfully", user)
}

// VerifyEmailHandler consumes the verification link token and signs the
// user in on the verifying device.
func (h *Handler) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	pair, err := h.service.VerifyEmail(r.Context(), token, deviceFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	h.cookies.SetTokenPair(w, pair)
	WriteJSON(w, http.StatusOK, "User verified successfully", nil)
}

func (h *Handler) ResendVerificationHandler(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.service.ResendVerification(r.Context(), req); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, "Verification email resent successfully", nil)
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	pair, err := h.service.Login(r.Context(), req, deviceFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	h.cookies.SetTokenPair(w, pair)
	WriteJSON(w, http.StatusOK, "User logged in successfully", nil)
}

// RefreshHandler rotates the refresh token and reissues both cookies.
func (h *Handler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	pair, err := h.service.Refresh(r.Context(), refreshCookie(r), deviceFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	h.cookies.SetTokenPair(w, pair)
	WriteJSON(w, http.StatusOK, "Access token refreshed successfully", nil)
}

// LogoutHandler ends the current session. Cookies are cleared regardless of
// the deletion outcome.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	err := h.service.Logout(r.Context(), actor, refreshCookie(r))
	h.cookies.Clear(w)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, "User logged out successfully", nil)
}

func (h *Handler) LogoutAllHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	if err := h.service.LogoutAll(r.Context(), actor, refreshCookie(r)); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, "Logged out all other sessions successfully", nil)
}

func (h *Handler) ActiveSessionsHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	sessions, err := h.service.ActiveSessions(r.Context(), actor, refreshCookie(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, "Active sessions fetched successfully", sessions)
}

func (h *Handler) LogoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.service.LogoutSession(r.Context(), actor, sessionID); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, "Session ended successfully", nil)
}

func (h *Handler) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.service.ForgotPassword(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}

	var data interface{}
	if result.Code != "" {
		data = map[string]string{"code": result.Code}
	}
	WriteJSON(w, http.StatusOK, result.Message, data)
}

func (h *Handler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), token, req); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, "Password reset successfully", nil)
}

func (h *Handler) GoogleLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	pair, err := h.service.LoginWithGoogle(r.Context(), req, deviceFromRequest(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	h.cookies.SetTokenPair(w, pair)
	WriteJSON(w, http.StatusOK, "User logged in with Google successfully", nil)
}

func (h *Handler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	user, err := h.service.Profile(r.Context(), actor)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, "Profile fetched successfully", user)
}
