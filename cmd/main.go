package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/commentree-backend/internal/config"
	repos "github.com/yungbote/commentree-backend/internal/data/repos/comments"
	httpx "github.com/yungbote/commentree-backend/internal/http"
	httpH "github.com/yungbote/commentree-backend/internal/http/handlers"
	httpMW "github.com/yungbote/commentree-backend/internal/http/middleware"
	"github.com/yungbote/commentree-backend/internal/observability"
	"github.com/yungbote/commentree-backend/internal/platform/database"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
	"github.com/yungbote/commentree-backend/internal/realtime"
	"github.com/yungbote/commentree-backend/internal/realtime/bus"
	"github.com/yungbote/commentree-backend/internal/services"
)

const serviceName = "commentree"

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	cfg, err := config.Load("", log)
	if err != nil {
		log.Error("Config load failed", "error", err)
		os.Exit(1)
	}

	// Tracing
	shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	})
	if shutdownOtel != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOtel(ctx)
		}()
	}

	// Postgres
	postgresService, err := database.NewPostgresService(database.PostgresConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	}, log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	rootRepo := repos.NewTreeRootRepo(thePG, log)
	nodeRepo := repos.NewCommentNodeRepo(thePG, log)
	versionRepo := repos.NewCommentVersionRepo(thePG, log)

	// Realtime
	log.Info("Setting up realtime hub...")
	hub := realtime.NewSSEHub(log)
	var publisher realtime.Publisher = realtime.HubPublisher{Hub: hub}
	if cfg.Redis.Addr != "" {
		commentBus, busErr := bus.NewRedisBus(log, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "comments")
		if busErr != nil {
			log.Error("Redis bus init failed", "error", busErr)
			os.Exit(1)
		}
		defer commentBus.Close()
		if err := commentBus.StartForwarder(context.Background(), hub.Broadcast); err != nil {
			log.Error("Redis forwarder init failed", "error", err)
			os.Exit(1)
		}
		publisher = commentBus
	}

	// Parent type configuration
	parentConfigs := services.NewParentConfigs(cfg.Comments.DefaultMaxDepth)
	for parentType, pt := range cfg.Comments.ParentTypes {
		override := services.ParentTypeConfig{
			MaxDepth:              cfg.Comments.DefaultMaxDepth,
			CommentsTemplate:      pt.CommentsTemplate,
			SingleCommentTemplate: pt.SingleCommentTemplate,
		}
		if pt.MaxDepth != nil {
			override.MaxDepth = *pt.MaxDepth
		}
		parentConfigs.Set(parentType, override)
	}
	gates := services.NewGateRegistry(services.DefaultGate{})

	// Services
	log.Info("Setting up services...")
	treeService := services.NewTreeService(thePG, log, rootRepo, nodeRepo)
	versionService := services.NewVersionService(thePG, log, versionRepo, cfg.Comments.MaxBodyLen)
	guard := services.NewConcurrencyGuard(log, nodeRepo)
	resolver := services.NewContentResolver(log, nodeRepo)
	renderer, err := services.NewHTMLRenderer(log, cfg.Comments.TemplatesDir)
	if err != nil {
		log.Error("Renderer init failed", "error", err)
		os.Exit(1)
	}
	sink := services.MultiSink{realtime.NewBroadcastSink(log, publisher)}
	engine := services.NewCommentEngine(thePG, log, treeService, versionService, guard, resolver, gates, renderer, sink, parentConfigs)

	// Handlers
	log.Info("Setting up handlers...")
	commentsHandler := httpH.NewCommentsHandler(log, engine)
	streamHandler := httpH.NewStreamHandler(log, hub)
	healthHandler := httpH.NewHealthHandler()
	authMiddleware := httpMW.NewAuthMiddleware(log, cfg.Auth.JWTSecretKey)

	// Router
	log.Info("Setting up router...")
	server := httpx.NewServer(httpx.RouterConfig{
		Log:             log,
		FrontendOrigin:  cfg.Server.FrontendOrigin,
		ServiceName:     serviceName,
		AuthMiddleware:  authMiddleware,
		CommentsHandler: commentsHandler,
		StreamHandler:   streamHandler,
		HealthHandler:   healthHandler,
	})

	fmt.Printf("Server listening on :%s\n", cfg.Server.Port)
	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSec) * time.Second
	if err := server.Run(":"+cfg.Server.Port, shutdownTimeout); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
