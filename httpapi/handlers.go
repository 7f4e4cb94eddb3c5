package httpapi

import (
	"net/http"

	"github.com/snapzy-app/snapzy"
)

type emailRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string         `json:"token"`
	User  snapzy.Account `json:"user"`
}

func (h *Handler) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.RequestOTP(r.Context(), req.Email); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "OTP sent to email"})
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.VerifyOTP(r.Context(), req.Email, req.OTP); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Email verified successfully"})
}

func (h *Handler) resendOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.ResendOTP(r.Context(), req.Email); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "OTP resent to email"})
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.engine.CompleteRegistration(r.Context(), snapzy.RegistrationRequest{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Account created successfully"})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.engine.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: result.Token, User: result.User})
}

// logout is stateless: tokens are bearer JWTs, so the client discards its
// copy. The endpoint exists so clients have a uniform call to end a session.
func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims := sessionFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	acct, err := h.engine.FindAccount(r.Context(), claims.Username)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct.Public())
}
