package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/taotie8304/lu-gang-connect-project/internal/authcode"
	"github.com/taotie8304/lu-gang-connect-project/internal/config"
	"github.com/taotie8304/lu-gang-connect-project/internal/mail"
	"github.com/taotie8304/lu-gang-connect-project/internal/middleware"
	"github.com/taotie8304/lu-gang-connect-project/internal/oneapi"
	"github.com/taotie8304/lu-gang-connect-project/internal/queue"
	"github.com/taotie8304/lu-gang-connect-project/internal/repository"
	"github.com/taotie8304/lu-gang-connect-project/internal/service"
	"github.com/taotie8304/lu-gang-connect-project/internal/storage"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	billing     *oneapi.Client
	mailer      *mail.Mailer
	codes       *authcode.Issuer
	db          *pgxpool.Pool
	cache       *redis.Client
	avatars     *storage.AvatarStore
	users       *repository.UserRepository
	teams       *repository.TeamRepository
	sessions    *repository.SessionRepository
	configs     *repository.ConfigRepository
}

func NewHandlerSet(
	log zerolog.Logger,
	db *pgxpool.Pool,
	cache *redis.Client,
	avatars *storage.AvatarStore,
	billing *oneapi.Client,
	producer *queue.Producer,
	cfg *config.AppConfig,
) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	configRepo := repository.NewConfigRepository(db)
	codes := authcode.NewIssuer(cache, cfg.AuthCode, log)
	mailer := mail.NewMailer()
	auth := service.NewAuthService(userRepo, teamRepo, sessionRepo, codes, configRepo, mailer, producer, cfg, log)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: auth,
		billing:     billing,
		mailer:      mailer,
		codes:       codes,
		db:          db,
		cache:       cache,
		avatars:     avatars,
		users:       userRepo,
		teams:       teamRepo,
		sessions:    sessionRepo,
		configs:     configRepo,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/login",
			middleware.IPRateLimit(h.cache, h.log, "login", h.cfg.RateLimit.LoginWindow, h.cfg.RateLimit.LoginLimit),
			h.Login)
		auth.GET("/prelogin", h.PreLogin)
		auth.POST("/register", h.RegisterUser)
		auth.GET("/captcha", h.Captcha)
		auth.POST("/code/send", h.SendAuthCode)
		auth.POST("/password/find", h.FindPassword)

		protected := v1.Group("/auth")
		protected.Use(middleware.Auth(h.cfg, h.users, h.sessions))
		protected.GET("/me", h.Me)
		protected.POST("/logout", h.Logout)
		protected.POST("/password/change", h.ChangePassword)

		acct := v1.Group("/account")
		acct.Use(middleware.Auth(h.cfg, h.users, h.sessions))
		acct.GET("/quota", h.Quota)
		acct.POST("/avatar", h.UploadAvatar)

		admin := v1.Group("/admin")
		admin.Use(
			middleware.Auth(h.cfg, h.users, h.sessions),
			middleware.RequireRoot(),
		)
		admin.GET("/users", h.AdminListUsers)
		admin.POST("/users/status", h.AdminSetUserStatus)
		admin.GET("/config/register", h.AdminGetRegisterConfig)
		admin.POST("/config/register", h.AdminSaveRegisterConfig)
		admin.POST("/config/test-email", h.AdminTestEmail)
	}
}
