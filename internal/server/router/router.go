package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted by New.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Catalog *handlers.CatalogHandler
	Orders  *handlers.OrderHandler
	Stock   *handlers.StockHandler
	Reports *handlers.ReportHandler
}

var (
	reportViewers = []models.Role{models.RoleSuperAdmin, models.RoleMD, models.RoleAccounts, models.RoleStoreManager, models.RoleHotelManager}
	stockViewers  = []models.Role{models.RoleSuperAdmin, models.RoleMD, models.RoleStoreManager, models.RoleHotelManager}
	orderViewers  = []models.Role{models.RoleSuperAdmin, models.RoleMD, models.RoleProcurementOfficer, models.RoleAccounts}
	orderWriters  = []models.Role{models.RoleSuperAdmin, models.RoleProcurementOfficer}
	stockWriters  = []models.Role{models.RoleSuperAdmin, models.RoleStoreManager}
)

// New wires the Gin engine with required routes and middlewares. An empty allowedOrigins
// list allows every origin.
func New(h Handlers, tokens TokenParser, allowedOrigins []string, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	registerJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))
	r.Use(cors.New(corsConfig(allowedOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/auth/login", h.Auth.Login)

	api := r.Group("/", authMiddleware(tokens, logger))

	users := api.Group("/users", requireRoles(models.RoleSuperAdmin))
	users.GET("", h.Catalog.ListUsers)
	users.POST("", h.Catalog.CreateUser)
	users.GET("/:id", h.Catalog.GetUser)
	users.PATCH("/:id", h.Catalog.UpdateUser)
	users.POST("/:id/disable", h.Catalog.DisableUser)

	api.GET("/hotels", h.Catalog.ListHotels)
	api.POST("/hotels", requireRoles(models.RoleSuperAdmin), h.Catalog.CreateHotel)
	api.POST("/hotels/:id/disable", requireRoles(models.RoleSuperAdmin), h.Catalog.DisableHotel)

	api.GET("/items", h.Catalog.ListItems)
	api.POST("/items", requireRoles(orderWriters...), h.Catalog.CreateItem)
	api.POST("/items/:id/disable", requireRoles(orderWriters...), h.Catalog.DisableItem)

	api.GET("/vendors", h.Catalog.ListVendors)
	api.POST("/vendors", requireRoles(orderWriters...), h.Catalog.CreateVendor)
	api.POST("/vendors/:id/disable", requireRoles(orderWriters...), h.Catalog.DisableVendor)

	api.GET("/recipes", h.Catalog.ListRecipes)
	api.POST("/recipes", requireRoles(models.RoleSuperAdmin, models.RoleHotelManager, models.RoleStoreManager), h.Catalog.CreateRecipe)

	orders := api.Group("/procurement-orders")
	orders.POST("", requireRoles(orderWriters...), h.Orders.Create)
	orders.GET("", requireRoles(orderViewers...), h.Orders.List)
	orders.GET("/:id", requireRoles(orderViewers...), h.Orders.Get)
	orders.POST("/:id/review", requireRoles(models.RoleMD), h.Orders.Review)
	orders.POST("/:id/receive", requireRoles(models.RoleSuperAdmin, models.RoleStoreManager, models.RoleProcurementOfficer), h.Orders.Receive)
	orders.POST("/:id/bill", requireRoles(orderWriters...), h.Orders.SubmitBill)
	orders.POST("/:id/pay", requireRoles(models.RoleAccounts), h.Orders.Pay)

	stock := api.Group("/stock")
	stock.POST("/issues", requireRoles(stockWriters...), h.Stock.Issue)
	stock.POST("/adjustments", requireRoles(stockWriters...), h.Stock.Adjust)
	stock.GET("/balances", requireRoles(stockViewers...), h.Stock.Balances)
	stock.GET("/ledger", requireRoles(stockViewers...), h.Stock.Ledger)

	api.POST("/consumption", requireRoles(models.RoleHotelManager, models.RoleStoreManager), h.Stock.RecordConsumption)
	api.POST("/sales", requireRoles(models.RoleHotelManager), h.Stock.RecordSales)

	reports := api.Group("/reports")
	reports.GET("/leakage", requireRoles(reportViewers...), h.Reports.Leakage)
	reports.GET("/leakage/export", requireRoles(models.RoleSuperAdmin, models.RoleMD, models.RoleAccounts), h.Reports.ExportLeakage)
	reports.GET("/consumption-vs-sales", requireRoles(reportViewers...), h.Reports.ConsumedVsSales)
	reports.GET("/stock-summary", requireRoles(reportViewers...), h.Reports.StockSummary)
	reports.GET("/vendor-spend", requireRoles(reportViewers...), h.Reports.VendorSpend)

	logger.Info("router initialized", zap.Int("routes", len(r.Routes())))

	return r
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
		cfg.AllowCredentials = true
	}
	cfg.AddAllowHeaders("Authorization", requestIDHeader)
	cfg.AddExposeHeaders("Content-Disposition", requestIDHeader)
	return cfg
}
