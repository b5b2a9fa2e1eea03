package handler

import (
	"github.com/buildingledger/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the billing handlers mounted by LedgerRoutes
type Handlers struct {
	Property    *PropertyHandler
	Invoice     *InvoiceHandler
	Transaction *TransactionHandler
	Balance     *BalanceHandler
	System      *SystemHandler

	// Idempotency wraps the payment endpoints when set
	Idempotency gin.HandlerFunc
}

// LedgerRoutes builds the route groups of the ledger API.
// recompute guards the recompute endpoints; pass nil for no guard.
func LedgerRoutes(h Handlers, recompute func(param string) gin.HandlerFunc) []*router.DomainGroup {
	guard := func(param string) []gin.HandlerFunc {
		if recompute == nil {
			return nil
		}
		return []gin.HandlerFunc{recompute(param)}
	}
	idempotent := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		if h.Idempotency == nil {
			return []gin.HandlerFunc{handler}
		}
		return []gin.HandlerFunc{h.Idempotency, handler}
	}

	buildings := router.NewDomainGroup("buildings", "/buildings")
	buildings.POST("", h.Property.CreateBuilding)
	buildings.GET("/:building_id", h.Balance.GetBuilding)
	buildings.POST("/:building_id/recompute", append(guard("building_id"), h.Balance.RecomputeBuilding)...)
	buildings.POST("/:building_id/income", idempotent(h.Transaction.RecordBuildingIncome)...)
	buildings.Group("building-units", "/:building_id/units").
		POST("", h.Property.CreateUnit).
		GET("", h.Property.ListUnits)

	units := router.NewDomainGroup("units", "/units").
		GET("/:unit_id", h.Balance.GetUnit).
		PATCH("/:unit_id", h.Property.UpdateUnit).
		POST("/:unit_id/members", h.Property.AddMember).
		DELETE("/:unit_id/members/:user_id/:role", h.Property.RemoveMember).
		GET("/:unit_id/distributions", h.Balance.ListUnitDistributions).
		GET("/:unit_id/transactions", h.Transaction.ListByUnit).
		POST("/:unit_id/recompute", append(guard("unit_id"), h.Balance.RecomputeUnit)...)

	invoices := router.NewDomainGroup("invoices", "/invoices").
		POST("/calculate", h.Invoice.Calculate).
		POST("", h.Invoice.Create).
		GET("/:invoice_id", h.Invoice.Get).
		PUT("/:invoice_id/distributions", h.Invoice.ReplaceDistributions)

	distributions := router.NewDomainGroup("distributions", "/distributions").
		PATCH("/:distribution_id", h.Invoice.UpdateDistribution).
		DELETE("/:distribution_id", h.Invoice.DeleteDistribution).
		POST("/:distribution_id/restore", h.Invoice.RestoreDistribution)

	transactions := router.NewDomainGroup("transactions", "/transactions").
		POST("", idempotent(h.Transaction.Record)...).
		GET("/:transaction_id", h.Transaction.Get).
		PATCH("/:transaction_id", h.Transaction.Update).
		DELETE("/:transaction_id", h.Transaction.Delete).
		POST("/:transaction_id/restore", h.Transaction.Restore)

	system := router.NewDomainGroup("system", "/system").
		GET("/ping", h.System.Ping).
		GET("/info", h.System.GetSystemInfo).
		GET("/health", h.System.Health)

	return []*router.DomainGroup{buildings, units, invoices, distributions, transactions, system}
}
