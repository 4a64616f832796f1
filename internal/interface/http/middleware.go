package httpapi

import (
	"net/http"

	appauth "retail-insight/internal/application/auth"
	"retail-insight/internal/domain/auth"
)

// requireAuth 驗證 bearer token 並檢查角色權限。
func (s *Server) requireAuth(perm appauth.Permission, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := parseBearer(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, errCodeUnauthorized, "unauthorized")
			return
		}

		claims, err := s.tokenSvc.ParseAccessToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid token")
			return
		}

		if perm != "" && !appauth.Allowed(auth.Role(claims.Role), perm) {
			writeError(w, http.StatusForbidden, errCodeForbidden, "forbidden")
			return
		}

		next.ServeHTTP(w, r)
	})
}
