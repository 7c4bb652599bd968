package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/esimbridge/backend/internal/interfaces/http/handler"
	"github.com/esimbridge/backend/internal/interfaces/http/middleware"
)

// Paths served by the bridge
const (
	PathOrderPaidWebhook = "/shopify/webhooks/orders/paid"
	PathWebhookAlias     = "/api/webhook"
	PathSyncProducts     = "/api/sync-products"
	PathHealth           = "/health"
)

// Handlers groups the endpoints registered by BridgeRoutes
type Handlers struct {
	OrderWebhook *handler.OrderWebhookHandler
	CatalogSync  *handler.CatalogSyncHandler
	Health       *handler.HealthHandler
}

// BridgeRoutes returns the route groups of the bridge. POSTed webhook bodies
// are capped at maxWebhookBytes before any handler reads them; other methods
// reach the handler and get 405.
func BridgeRoutes(h Handlers, maxWebhookBytes int64) []RouteRegistrar {
	webhooks := NewDomainGroup("/")
	webhooks.Use(middleware.BodyLimit(maxWebhookBytes, http.MethodPost))
	webhooks.Any(PathOrderPaidWebhook, h.OrderWebhook.HandleOrderPaid)
	webhooks.Any(PathWebhookAlias, h.OrderWebhook.HandleOrderPaid)

	catalog := NewDomainGroup("/")
	catalog.Any(PathSyncProducts, h.CatalogSync.HandleSyncProducts)

	system := NewDomainGroup("/")
	system.GET(PathHealth, h.Health.Health)

	return []RouteRegistrar{webhooks, catalog, system}
}

// Setup registers the bridge routes on engine
func Setup(engine *gin.Engine, h Handlers, maxWebhookBytes int64) {
	r := NewRouter(engine)
	for _, registrar := range BridgeRoutes(h, maxWebhookBytes) {
		r.Register(registrar)
	}
	r.Setup()
}
