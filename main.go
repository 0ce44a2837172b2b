package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/davesrecords/davesrecords/internal/audit"
	"github.com/davesrecords/davesrecords/internal/collection"
	"github.com/davesrecords/davesrecords/internal/common"
	"github.com/davesrecords/davesrecords/internal/config"
	"github.com/davesrecords/davesrecords/internal/discogs"
	"github.com/davesrecords/davesrecords/internal/handlers/web"
	"github.com/davesrecords/davesrecords/internal/mail"
	"github.com/davesrecords/davesrecords/internal/middlewares"
	"github.com/davesrecords/davesrecords/internal/middlewares/csrf"
	"github.com/davesrecords/davesrecords/internal/middlewares/sessions"
	"github.com/davesrecords/davesrecords/internal/ratelimit"
	"github.com/davesrecords/davesrecords/internal/render"
	"github.com/davesrecords/davesrecords/internal/store"
	"github.com/davesrecords/davesrecords/internal/users"
	"github.com/davesrecords/davesrecords/model"
	"github.com/davesrecords/davesrecords/params"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/storage/memory/v2"
	"github.com/gofiber/storage/redis/v3"
	"github.com/gofiber/template/html/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	app       *cli.App
	gitCommit string
	gitDate   string
	gitTag    string
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file",
		Value: "config.yaml",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
)

func init() {
	app = cli.NewApp()
	app.EnableBashCompletion = true
	app.Usage = "davesrecords - public galleries of Discogs record collections"
	app.Flags = []cli.Flag{
		configFileFlag,
		debugFlag,
	}
	app.Commands = []*cli.Command{
		{
			Name: "version",
			Action: func(ctx *cli.Context) error {
				fmt.Println(params.VersionWithCommit(gitCommit, gitDate))
				return nil
			},
		},
		{
			Name:  "migrate",
			Usage: "Create or update the database schema and exit",
			Action: func(ctx *cli.Context) error {
				config, err := config.LoadConfig(ctx.String(configFileFlag.Name))
				if err != nil {
					return err
				}
				mustInitLogger(config.Debug || ctx.IsSet(debugFlag.Name))
				mustInitDatabase(config.Database)
				slog.Info("Database schema is up to date")
				return nil
			},
		},
	}
	app.Action = run
}

func mustInitLogger(debug bool) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

func openDialector(driver, dsn string) gorm.Dialector {
	if driver == "sqlite" {
		return sqlite.Open(dsn)
	}
	return mysql.Open(dsn)
}

func mustInitDatabase(dbConfig config.DatabaseConfig) *gorm.DB {
	db, err := gorm.Open(openDialector(dbConfig.Driver, dbConfig.DSN), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   dbConfig.TablePrefix,
			SingularTable: true,
		},
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if len(dbConfig.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(dbConfig.Replicas))
		for _, dsn := range dbConfig.Replicas {
			replicas = append(replicas, openDialector(dbConfig.Driver, dsn))
		}
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})
		if err := db.Use(resolver); err != nil {
			slog.Error("Failed to register read replicas", "error", err)
			os.Exit(1)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Failed to access database pool", "error", err)
		os.Exit(1)
	}
	if dbConfig.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	}
	if dbConfig.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	}
	if dbConfig.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)
	}

	if err := model.AutoMigrate(db); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}
	return db
}

func mustInitHtmlEngine(templateDir string) *html.Engine {
	if templateDir != "" {
		return html.NewFileSystem(http.Dir(templateDir), ".html")
	}
	viewsFS, _ := fs.Sub(templateFS, "templates")
	return html.NewFileSystem(http.FS(viewsFS), ".html")
}

func mustInitRedisStorage(redisCfg config.RedisConfig) *redis.Storage {
	if redisCfg.URL == "" {
		return nil
	}
	return redis.New(redis.Config{
		URL:           redisCfg.URL,
		PoolSize:      redisCfg.PoolSize,
		IsClusterMode: redisCfg.ClusterMode,
	})
}

func mustInitCache(cacheCfg config.CacheConfig, rdb goredis.UniversalClient) store.Cache {
	if cacheCfg.Backend == config.BackendRedis {
		return store.NewRedisCache(rdb)
	}
	return store.NewMemoryCache(cacheCfg.MemorySize, cacheCfg.TTL)
}

func mustInitRateLimiter(limitCfg config.RateLimitConfig, rdb goredis.UniversalClient) ratelimit.Limiter {
	if limitCfg.Backend == config.BackendRedis {
		return ratelimit.NewRedisLimiter(rdb, params.RateLimitKeyPrefix, limitCfg.RequestsPerMinute, params.RateLimitWindow)
	}
	return ratelimit.NewMemoryLimiter(limitCfg.RequestsPerMinute, limitCfg.Burst, params.RateLimitMemoryMaxClients)
}

func mustInitMailSender(mailCfg config.MailConfig) mail.MailSender {
	if mailCfg.Backend != "smtp" {
		log.Fatalf("Unsupported mail sender backend %q", mailCfg.Backend)
	}
	smtpCfg := mailCfg.SMTP
	sender, err := mail.NewSMTPMailSender(mail.SMTPConfig{
		Host:     smtpCfg.Host,
		Port:     smtpCfg.Port,
		Username: smtpCfg.Username,
		Password: smtpCfg.Password,
		TLS:      smtpCfg.TLS,
		CertFile: smtpCfg.CertFile,
		KeyFile:  smtpCfg.KeyFile,
		CAFile:   smtpCfg.CAFile,
	}, mailCfg.From)
	if err != nil {
		log.Fatalf("Could not initialize mail sender: %v", err)
	}
	return sender
}

func mustInitAuditOptions(config *config.Config) ([]audit.Option, *audit.FileExporter) {
	var (
		opts     []audit.Option
		exporter *audit.FileExporter
	)
	exportCfg := config.Audit.Export
	if exportCfg.Enabled {
		exporter = audit.NewFileExporter(audit.ExportConfig{
			Filename:   exportCfg.Filename,
			MaxSizeMB:  exportCfg.MaxSizeMB,
			MaxBackups: exportCfg.MaxBackups,
			MaxAgeDays: exportCfg.MaxAgeDays,
			Compress:   exportCfg.Compress,
			QueueSize:  exportCfg.QueueSize,
		})
		opts = append(opts, audit.WithExporter(exporter))
	}
	alertCfg := config.Audit.Alert
	if alertCfg.Enabled {
		auditURL, _ := url.JoinPath(config.BaseURL, "api", "admin", "audit")
		notifier := mail.NewSecurityAlertNotifier(mustInitMailSender(config.Mail), alertCfg.Recipients, auditURL)
		opts = append(opts, audit.WithAlerts(notifier, alertCfg.MinSeverity))
	}
	return opts, exporter
}

func newDiscogsClientFactory(oauth *discogs.OAuth, userService *users.UserService) collection.ClientFactory {
	return func(ctx context.Context, conn *model.DiscogsConnection) (collection.ReleaseLister, error) {
		token, secret, err := userService.OpenConnectionTokens(conn)
		if err != nil {
			return nil, err
		}
		return oauth.Client(ctx, token, secret), nil
	}
}

func setupWebRoutes(
	router fiber.Router,
	staticDir string,
	sessionConfig sessions.Config,
	userService *users.UserService,
	collectionService *collection.CollectionService,
	auditService *audit.AuditService,
	discogsOAuth *discogs.OAuth) {

	// handlers
	var (
		authHandler       = web.NewAuthHandler(userService, discogsOAuth, auditService)
		collectionHandler = web.NewCollectionHandler(collectionService)
		accountHandler    = web.NewAccountHandler(userService, collectionService, auditService)
		adminHandler      = web.NewAdminHandler(userService, collectionService, auditService)
	)

	// routes
	router.Static("/static", staticDir)
	router.Use(sessions.New(sessionConfig))
	router.Use(middlewares.ResolveUser(userService))
	router.Use(csrf.New(csrf.Config{}))
	router.Get("/", authHandler.GetHome)
	router.Get("/login/discogs", authHandler.GetLoginDiscogs)
	router.Get("/oauth/discogs/callback", authHandler.GetDiscogsCallback)
	router.Post("/logout", authHandler.PostLogout)
	router.Get("/c/:slug", collectionHandler.GetGallery)
	router.Get("/api/collection/:slug", collectionHandler.GetCollection)

	me := router.Group("/api/me", middlewares.RequireUser)
	me.Put("/settings", accountHandler.PutSettings)
	me.Post("/exclusions", accountHandler.PostExclusion)
	me.Delete("/exclusions/:releaseID", accountHandler.DeleteExclusion)
	me.Put("/connections/:id/primary", accountHandler.PutPrimaryConnection)

	admin := router.Group("/api/admin", adminHandler.RequireAdmin)
	admin.Get("/users", adminHandler.GetUsers)
	admin.Post("/users/:id/ban", adminHandler.PostBan)
	admin.Post("/users/:id/unban", adminHandler.PostUnban)
	admin.Put("/users/:id/role", adminHandler.PutRole)
	admin.Get("/users/:id/audit", adminHandler.GetUserAudit)
	admin.Get("/audit", adminHandler.GetAudit)
	admin.Get("/audit/stats", adminHandler.GetAuditStats)
}

func run(ctx *cli.Context) error {
	config, err := config.LoadConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		slog.Error("Could not load config file.", "error", err)
		return err
	}

	mustInitLogger(config.Debug || ctx.IsSet(debugFlag.Name))

	globalVars := fiber.Map{
		"siteName": config.SiteName,
		"baseURL":  config.BaseURL,
	}

	if err := render.Initialize(globalVars, config.TemplateDir); err != nil {
		slog.Error("Could not load templates", "error", err)
		return err
	}
	htmlEngine := mustInitHtmlEngine(config.TemplateDir)
	db := mustInitDatabase(config.Database)

	var (
		rdb            goredis.UniversalClient
		sessionStorage fiber.Storage = memory.New()
	)
	if redisStorage := mustInitRedisStorage(config.Redis); redisStorage != nil {
		rdb = redisStorage.Conn()
		sessionStorage = redisStorage
	}

	auditOpts, exporter := mustInitAuditOptions(config)
	if exporter != nil {
		defer exporter.Close()
	}

	// repositories
	var (
		userRepo       = users.NewUserRepository(db)
		connectionRepo = users.NewConnectionRepository(db)
		exclusionRepo  = collection.NewExclusionRepository(db)
		auditRepo      = audit.NewAuditEventRepository(db)
	)

	// services
	var (
		sealer       = common.NewSealer(config.MasterKey)
		userService  = users.NewUserService(db, userRepo, connectionRepo, sealer, config.Admin.Usernames)
		auditService = audit.NewAuditService(auditRepo, auditOpts...)
		discogsOAuth = discogs.NewOAuth(discogs.OAuthConfig{
			ConsumerKey:    config.Discogs.ConsumerKey,
			ConsumerSecret: config.Discogs.ConsumerSecret,
			CallbackURL:    strings.TrimSuffix(config.BaseURL, "/") + "/oauth/discogs/callback",
			APIURL:         config.Discogs.APIURL,
			AuthorizeURL:   config.Discogs.AuthorizeURL,
			UserAgent:      config.Discogs.UserAgent,
			Timeout:        config.Discogs.Timeout,
		})
		discogsSource     = collection.NewDiscogsSource(userService, exclusionRepo, newDiscogsClientFactory(discogsOAuth, userService))
		collectionService = collection.NewCollectionService(
			userService,
			exclusionRepo,
			discogsSource,
			mustInitCache(config.Cache, rdb),
			mustInitRateLimiter(config.RateLimit, rdb),
			collection.Options{
				PageSize:     config.Collection.PageSize,
				CacheTTL:     config.Cache.TTL,
				CacheEnabled: config.Cache.Enabled,
			},
		)
	)

	router := fiber.New(fiber.Config{
		Prefork:           false,
		CaseSensitive:     true,
		BodyLimit:         params.ServerBodyLimit,
		IdleTimeout:       params.ServerIdleTimeout,
		ReadTimeout:       params.ServerReadTimeout,
		WriteTimeout:      params.ServerWriteTimeout,
		Views:             htmlEngine,
		PassLocalsToViews: true,
		ErrorHandler:      middlewares.ErrorHandler,
	})

	router.Use(recover.New())
	router.Use(logger.New())
	router.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(config.AllowOrigins, ", "),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	router.Use(middlewares.InjectGlobalVars(globalVars))
	setupWebRoutes(
		router,
		config.StaticDir,
		sessions.Config{
			Storage:        sessionStorage,
			SessionMaxAge:  config.Session.SessionMaxAge,
			CookieSecure:   config.Session.CookieSecure,
			CookieHttpOnly: config.Session.CookieHttpOnly,
			CookieName:     config.Session.CookieName,
		},
		userService,
		collectionService,
		auditService,
		discogsOAuth,
	)

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})
	go func() {
		defer close(done)
		common.StartHealthCheckServer(sigCtx, params.HealthCheckServerAddr, common.NewHealthCheckHandler(rdb, db))
	}()
	go func() {
		<-sigCtx.Done()
		if err := router.Shutdown(); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	err = router.Listen(config.ListenAddr)
	stop()
	<-done
	return err
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
