package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/commentree-backend/internal/http/handlers"
	httpMW "github.com/yungbote/commentree-backend/internal/http/middleware"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	FrontendOrigin string
	ServiceName    string

	AuthMiddleware  *httpMW.AuthMiddleware
	CommentsHandler *httpH.CommentsHandler
	StreamHandler   *httpH.StreamHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.FrontendOrigin))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireActor())
		}

		if cfg.CommentsHandler != nil {
			protected.GET("/comments", cfg.CommentsHandler.LoadComments)
			protected.POST("/comments", cfg.CommentsHandler.PostComment)
			protected.POST("/comments/delete", cfg.CommentsHandler.DeleteComment)
		}

		if cfg.StreamHandler != nil {
			protected.GET("/comments/stream", cfg.StreamHandler.Stream)
		}
	}

	return r
}
