package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	appauth "retail-insight/internal/application/auth"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}

	res, err := s.loginUC.Execute(r.Context(), appauth.LoginInput{
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		log.Printf("[Auth] login failure for %s: %v", body.Email, err)
		writeError(w, http.StatusUnauthorized, errCodeInvalidCredentials, "invalid email or password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user": map[string]interface{}{
			"id":    res.User.ID,
			"email": res.User.Email,
			"role":  res.User.Role,
		},
		"access_token": res.Token.Token,
		"token_type":   "Bearer",
		"expiry":       res.Token.Expiry.Format(time.RFC3339),
	})
}
