package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/order-ingestion-service/controllers"
	"github.com/yashrajoria/order-ingestion-service/middleware"
	"github.com/yashrajoria/order-ingestion-service/pkg/apperrors"
	"github.com/yashrajoria/order-ingestion-service/pkg/auth"
	awspkg "github.com/yashrajoria/order-ingestion-service/pkg/aws"
	"github.com/yashrajoria/order-ingestion-service/pkg/metrics"
	pkgmw "github.com/yashrajoria/order-ingestion-service/pkg/middleware"
	"go.uber.org/zap"
)

const serviceName = "order-ingestion-service"

type Dependencies struct {
	Webhooks       *controllers.WebhookController
	Orders         *controllers.OrderController
	Validator      *auth.TokenValidator
	AdminLimiter   *pkgmw.RateLimiter
	Metrics        *metrics.Metrics
	MetricsClient  *awspkg.MetricsClient
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewRouter builds the gin engine with the shared middleware chain and
// every route registered.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkgmw.RequestID())
	r.Use(pkgmw.Tracing(serviceName))
	r.Use(pkgmw.RequestLogger(deps.Logger))
	r.Use(pkgmw.Metrics(deps.Metrics, deps.MetricsClient, serviceName))
	r.Use(pkgmw.SecurityHeaders())
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-ID", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(apperrors.ErrorMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": serviceName})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	RegisterWebhookRoutes(r, deps.Webhooks)
	RegisterOrderRoutes(r, deps)
	return r
}

func RegisterWebhookRoutes(r *gin.Engine, wc *controllers.WebhookController) {
	r.POST("/webhooks/stripe", wc.HandleStripeWebhook)
}

func RegisterOrderRoutes(r *gin.Engine, deps Dependencies) {
	orderRoutes := r.Group("/orders")
	orderRoutes.Use(middleware.AuthMiddleware())
	orderRoutes.GET("", deps.Orders.GetOrders)
	orderRoutes.GET("/:orderNumber", deps.Orders.GetOrderByNumber)

	adminRoutes := r.Group("/admin")
	if deps.AdminLimiter != nil {
		adminRoutes.Use(pkgmw.RateLimit(deps.AdminLimiter))
	}
	adminRoutes.Use(middleware.AdminOnly(deps.Validator))
	adminRoutes.GET("/orders", deps.Orders.GetAllOrders)
	adminRoutes.DELETE("/orders/:orderNumber", deps.Orders.DeleteOrder)
	adminRoutes.POST("/variants/restock", deps.Orders.Restock)
}
