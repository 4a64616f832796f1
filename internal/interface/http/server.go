package httpapi

import (
	"database/sql"
	"log"
	"net/http"
	"strings"
	"time"

	"retail-insight/internal/application/alert"
	appauth "retail-insight/internal/application/auth"
	"retail-insight/internal/application/dataset"
	appdiag "retail-insight/internal/application/diagnosis"
	"retail-insight/internal/infra/memory"
	authinfra "retail-insight/internal/infrastructure/auth"
	"retail-insight/internal/infrastructure/config"
	"retail-insight/internal/infrastructure/notify"
	"retail-insight/internal/infrastructure/persistence/postgres"
)

const (
	errCodeBadRequest         = "BAD_REQUEST"
	errCodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	errCodeUnauthorized       = "AUTH_UNAUTHORIZED"
	errCodeForbidden          = "AUTH_FORBIDDEN"
	errCodeSchema             = "INPUT_SCHEMA_ERROR"
	errCodeNotFound           = "NOT_FOUND"
	errCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	errCodeInternal           = "INTERNAL_ERROR"
)

// Server 封裝 HTTP 路由與依賴。
type Server struct {
	mux      *http.ServeMux
	store    *memory.Store
	loginUC  *appauth.LoginUseCase
	loadUC   *dataset.LoadUseCase
	runUC    *appdiag.RunUseCase
	alerts   *alert.Engine
	tokenSvc *authinfra.JWTIssuer
	cfg      config.Config
	db       *sql.DB
}

// NewServer 建立 API 伺服器。未提供資料庫時退回記憶體模式：
// 資料集只能以 inline records 載入，帳號使用內建 seed。
func NewServer(cfg config.Config, db *sql.DB) *Server {
	store := memory.NewStore(cfg.Diagnose.CacheTTL)

	var userRepo appauth.UserRepository
	var lineSource dataset.LineSource
	if db != nil {
		userRepo = postgres.NewAuthRepo(db)
		lineSource = postgres.NewOrderLineRepo(db)
	} else {
		store.SeedUsers()
		userRepo = store
	}

	tokenSvc := authinfra.NewJWTIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	loginUC := appauth.NewLoginUseCase(userRepo, authinfra.BcryptHasher{}, tokenSvc)
	loadUC := dataset.NewLoadUseCase(store, lineSource)
	runUC := appdiag.NewRunUseCase(store, store)

	var alerts *alert.Engine
	if cfg.Notifier.Telegram.Enabled && cfg.Notifier.Telegram.Token != "" && cfg.Notifier.Telegram.ChatID != 0 {
		alerts = alert.NewEngine(notify.NewTelegramClient(cfg.Notifier.Telegram.Token, cfg.Notifier.Telegram.ChatID))
	}

	s := &Server{
		mux:      http.NewServeMux(),
		store:    store,
		loginUC:  loginUC,
		loadUC:   loadUC,
		runUC:    runUC,
		alerts:   alerts,
		tokenSvc: tokenSvc,
		cfg:      cfg,
		db:       db,
	}
	s.registerRoutes()
	return s
}

// Handler 回傳路由處理器，供 HTTP server 掛載。
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Store 主要用於測試注入初始資料。
func (s *Server) Store() *memory.Store {
	return s.store
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/api/ping", s.wrapGet(s.handlePing))
	s.mux.Handle("/api/health", s.wrapGet(s.handleHealth))
	s.mux.Handle("/api/auth/login", s.wrapPost(s.handleLogin))
	s.mux.Handle("/api/datasets", s.requireAuth(appauth.PermDatasetLoad, s.wrapPost(s.handleDatasetLoad)))
	s.mux.Handle("/api/datasets/periods", s.requireAuth(appauth.PermDiagnoseRun, s.wrapGet(s.handleDatasetPeriods)))
	s.mux.Handle("/api/diagnose", s.requireAuth(appauth.PermDiagnoseRun, s.wrapPost(s.handleDiagnose)))
	s.mux.Handle("/api/diagnose/export", s.requireAuth(appauth.PermReportExport, s.wrapPost(s.handleExport)))
}

func (s *Server) wrapGet(h http.HandlerFunc) http.Handler {
	return methodOnly(http.MethodGet, h)
}

func (s *Server) wrapPost(h http.HandlerFunc) http.Handler {
	return methodOnly(http.MethodPost, h)
}

func methodOnly(method string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, errCodeMethodNotAllowed, "method not allowed")
			return
		}
		h(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[HTTP] %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}

func parseBearer(h string) string {
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
