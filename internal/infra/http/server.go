package http

import (
	"context"
	"net/http"
	"time"

	"keepsafe/internal/config"
	"keepsafe/internal/domain"
	"keepsafe/internal/infra/auth"
	"keepsafe/internal/infra/db"
	"keepsafe/internal/infra/keys/soft"
	"keepsafe/internal/infra/memstore"
	"keepsafe/internal/infra/notify"
	"keepsafe/internal/infra/policyopa"
	"keepsafe/internal/infra/ratelimit"
	"keepsafe/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Server struct {
	cfg config.Config
	r   *gin.Engine
	log zerolog.Logger

	store *db.Store

	vaults     *usecase.VaultService
	sessions   *usecase.SessionRegistry
	approvals  *usecase.ApprovalEngine
	delegation *usecase.DelegationRegistry
	emergency  *usecase.EmergencyService
	audit      *usecase.AuditRecorder
	logs       usecase.AccessLogRepository

	tokens      *auth.TokenManager
	adminAPIKey string

	rateLimiter domain.RateLimiter
}

func NewServer(cfg config.Config, store *db.Store, log zerolog.Logger) (*Server, error) {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, r: r, log: log, store: store}
	if err := s.initDeps(); err != nil {
		return nil, err
	}
	s.routes()
	return s, nil
}

// ServerDeps lets tests assemble a server around in-memory collaborators.
type ServerDeps struct {
	Vaults      *usecase.VaultService
	Sessions    *usecase.SessionRegistry
	Approvals   *usecase.ApprovalEngine
	Delegation  *usecase.DelegationRegistry
	Emergency   *usecase.EmergencyService
	Audit       *usecase.AuditRecorder
	Logs        usecase.AccessLogRepository
	Tokens      *auth.TokenManager
	AdminAPIKey string
	RateLimiter domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		r:           r,
		log:         zerolog.Nop(),
		vaults:      deps.Vaults,
		sessions:    deps.Sessions,
		approvals:   deps.Approvals,
		delegation:  deps.Delegation,
		emergency:   deps.Emergency,
		audit:       deps.Audit,
		logs:        deps.Logs,
		tokens:      deps.Tokens,
		adminAPIKey: deps.AdminAPIKey,
		rateLimiter: deps.RateLimiter,
	}
	s.routes()
	return s
}

func (s *Server) initDeps() error {
	s.adminAPIKey = s.cfg.AdminAPIKey
	clock := usecase.SystemClock()

	var (
		vaultRepo     usecase.VaultRepository
		sessionRepo   usecase.SessionRepository
		requestRepo   usecase.DualKeyRequestRepository
		nomineeRepo   usecase.NomineeRepository
		emergencyRepo usecase.EmergencyAccessRepository
		logRepo       usecase.AccessLogRepository
		documentRepo  usecase.DocumentRepository
	)
	if s.store.Available() {
		vaultRepo = db.NewVaultRepository(s.store.DB)
		sessionRepo = db.NewSessionRepository(s.store.DB)
		requestRepo = db.NewDualKeyRequestRepository(s.store.DB)
		nomineeRepo = db.NewNomineeRepository(s.store.DB)
		emergencyRepo = db.NewEmergencyAccessRepository(s.store.DB)
		logRepo = db.NewAccessLogRepository(s.store.DB)
		documentRepo = db.NewDocumentRepository(s.store.DB)
	} else {
		s.log.Warn().Msg("POSTGRES_DSN not set; using in-memory repositories")
		mem := memstore.New()
		vaultRepo = mem
		sessionRepo = mem.Sessions()
		requestRepo = mem.DualKeyRequests()
		nomineeRepo = mem.Nominees()
		emergencyRepo = mem.EmergencyRequests()
		logRepo = mem.AccessLogs()
		documentRepo = mem.Documents()
	}
	s.logs = logRepo

	var redisClient *redis.Client
	if s.cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		})
	}

	var events domain.EventPublisher
	if redisClient != nil {
		publisher, err := notify.NewRedisPublisher(redisClient, s.cfg.EventChannel)
		if err != nil {
			return err
		}
		events = publisher
	} else {
		events = notify.NewMemoryPublisher()
	}

	if redisClient != nil {
		limiter, err := ratelimit.NewRedisLimiter(redisClient, nil)
		if err != nil {
			return err
		}
		s.rateLimiter = limiter
	} else {
		s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})
	}

	var gate usecase.PolicyGate
	if s.cfg.PolicyBundlePath != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		engine, err := policyopa.NewEngineFromBundlePath(ctx, s.cfg.PolicyBundlePath, s.cfg.PolicyBundleID)
		if err != nil {
			return err
		}
		gate = engine
		s.log.Info().Str("bundle", s.cfg.PolicyBundlePath).Msg("policy gate enabled")
	} else {
		s.log.Info().Msg("no policy bundle configured; access gate disabled")
	}

	if s.cfg.JWTSecret != "" {
		tokens, err := auth.NewTokenManager(s.cfg.JWTSecret, auth.DefaultTokenTTL)
		if err != nil {
			return err
		}
		s.tokens = tokens
	} else {
		s.log.Warn().Msg("JWT_SECRET not set; accepting X-User-ID header identities")
	}

	s.audit = usecase.NewAuditRecorder(logRepo, clock)
	scorer := usecase.NewHeuristicRiskScorer(logRepo, clock)

	s.approvals = usecase.NewApprovalEngine(vaultRepo, requestRepo, scorer, s.audit, events, clock)
	s.approvals.AutoApproveThreshold = s.cfg.RiskAutoApproveThreshold
	s.approvals.AllowAutoFallback = s.cfg.ApprovalAutoFallback

	s.sessions = usecase.NewSessionRegistry(vaultRepo, sessionRepo, s.approvals, s.audit, events, gate, clock)
	s.sessions.TTL = s.cfg.SessionTTL
	s.sessions.ExtensionTTL = s.cfg.SessionExtensionTTL

	s.delegation = usecase.NewDelegationRegistry(vaultRepo, nomineeRepo, documentRepo, s.audit, events, clock)

	s.emergency = usecase.NewEmergencyService(vaultRepo, emergencyRepo, s.audit, events, clock)
	s.emergency.AccessTTL = s.cfg.EmergencyAccessTTL

	s.vaults = usecase.NewVaultService(vaultRepo, documentRepo, soft.New(), s.audit, clock)
	return nil
}

// Background starts the maintenance loops and blocks until ctx is done.
func (s *Server) Background(ctx context.Context) {
	go s.audit.Run(ctx)
	go s.sessions.Run(ctx, s.cfg.SessionSweepInterval)
	s.delegation.Run(ctx, s.cfg.NomineeMonitorInterval)
}

func (s *Server) Run(addr string) error {
	return s.r.Run(addr)
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler { return s.r }

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		mode := "no-db"
		if s.store.Available() {
			mode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/vaults", s.handleCreateVault)
		v1.GET("/vaults/:vault_id", s.handleGetVault)
		v1.GET("/vaults/:vault_id/keyref", s.handleVaultKeyRef)
		v1.POST("/vaults/:vault_id/documents", s.handleAddDocument)

		v1.POST("/vaults/:vault_id/sessions", s.handleOpenSession)
		v1.DELETE("/vaults/:vault_id/sessions", s.handleCloseSession)
		v1.GET("/vaults/:vault_id/sessions/active", s.handleHasActiveSession)
		v1.POST("/sessions/:session_id/extend", s.handleExtendSession)

		v1.GET("/vaults/:vault_id/approvals", s.handleListPendingApprovals)
		v1.POST("/approvals/:request_id/approve", s.handleApproveRequest)
		v1.POST("/approvals/:request_id/deny", s.handleDenyRequest)

		v1.POST("/vaults/:vault_id/nominees", s.handleInviteNominee)
		v1.POST("/nominees/accept", s.handleAcceptInvitation)
		v1.DELETE("/nominees/:nominee_id", s.handleRevokeNominee)
		v1.GET("/nominees/:nominee_id/documents", s.handleNomineeDocuments)

		v1.POST("/vaults/:vault_id/emergency", s.handleRequestEmergency)
		v1.POST("/emergency/:request_id/approve", s.handleApproveEmergency)
		v1.POST("/emergency/:request_id/deny", s.handleDenyEmergency)
		v1.POST("/emergency/:request_id/revoke", s.handleRevokeEmergency)
		v1.POST("/vaults/:vault_id/emergency/verify", s.handleVerifyPassCode)

		v1.GET("/vaults/:vault_id/logs", s.handleListLogs)
		v1.GET("/vaults/:vault_id/logs/verify", s.handleVerifyLogs)
		v1.POST("/documents/:document_id/redactions", s.handleRecordRedaction)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}
