package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/teamspace-action-engine/internal/infra"
	"github.com/xela07ax/teamspace-action-engine/internal/infra/auth"
	"github.com/xela07ax/teamspace-action-engine/internal/server/handler"
	"go.uber.org/zap"
)

type Server struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Проверка токенов (RS256, открытый ключ)
	validator auth.TokenValidator

	// Обработчики бизнес-доменов
	authHandler     *handler.AuthHandler     // /auth/token
	actionsHandler  *handler.ActionsHandler  // /v1/actions (Execute + Rollback)
	approvalHandler *handler.ApprovalHandler // /v1/approvals (HITL)
	auditHandler    *handler.AuditHandler    // /v1/audit (Logs)
}

// NewServer инициализирует API-сервер движка со всеми зависимостями
func NewServer(
	cfg *infra.Config,
	logger *zap.Logger,
	validator auth.TokenValidator,
	authH *handler.AuthHandler,
	actionsH *handler.ActionsHandler,
	approvalH *handler.ApprovalHandler,
	auditH *handler.AuditHandler,
) *Server {
	s := &Server{
		router:          chi.NewRouter(),
		logger:          logger.Named("engine-api"),
		cfg:             cfg,
		validator:       validator,
		authHandler:     authH,
		actionsHandler:  actionsH,
		approvalHandler: approvalH,
		auditHandler:    auditH,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(handler.TracingMiddleware)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		// Логин должен быть доступен без токена
		r.Post("/auth/token", s.authHandler.Login)

		// Healthcheck для мониторинга
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		// Подключаем универсальный Middleware только для этой группы
		r.Use(auth.NewMiddleware(s.validator, s.logger))

		// Исполнение действий и компенсирующий откат
		r.Route("/v1/actions", func(r chi.Router) {
			r.Post("/execute", s.actionsHandler.Execute) // Пакет действий от AI
			r.Post("/{id}/rollback", s.actionsHandler.Rollback)
		})

		// Human-in-the-loop (Approvals)
		r.Route("/v1/approvals", func(r chi.Router) {
			r.Get("/", s.approvalHandler.List) // Очередь запросов на проверку
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.approvalHandler.GetDetails)
				r.Post("/respond", s.approvalHandler.Respond) // Approve/Reject/Modify + Redis Publish
			})
		})

		// Аудит и Логи (Observability)
		r.Get("/v1/audit", s.auditHandler.GetLogs)
	})
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
