package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"bitbucket.org/taxnova/gstbill_backend/calc"
	"bitbucket.org/taxnova/gstbill_backend/config"
	"bitbucket.org/taxnova/gstbill_backend/middlewares"
	"bitbucket.org/taxnova/gstbill_backend/models"
	"bitbucket.org/taxnova/gstbill_backend/utils"
)

const defaultPort = "8080"

var tracer trace.Tracer = otel.Tracer("gstbill-backend")

// respondError maps model and engine errors onto HTTP statuses: missing
// records to 404, rejected computation inputs to 422 with the offending
// field attached, lifecycle and delete guards to 409, broken totals
// invariants to 500, and plain validation rejections to 400.
func respondError(c *gin.Context, err error) {
	var lineErr *calc.InvalidLineItemError
	var inputErr *calc.InvalidInvoiceInputError
	var overflowErr *calc.AllocationOverflowError
	var totalsErr *calc.InconsistentTotalsError

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &lineErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": lineErr.Error(), "field": lineErr.Field, "index": lineErr.Index})
	case errors.As(err, &inputErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": inputErr.Error(), "field": inputErr.Field})
	case errors.As(err, &overflowErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": overflowErr.Error(), "invoice_id": overflowErr.InvoiceId})
	case errors.Is(err, calc.ErrorNoTargetInvoice) || errors.Is(err, calc.ErrorNonPositivePayment):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &totalsErr):
		config.LogError(config.GetLogger(), "server.go", "respondError", "totals invariant failed", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case isConflictError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func isConflictError(err error) bool {
	for _, sentinel := range []error{
		models.ErrorInvoiceNotDraft,
		models.ErrorInvoiceFinalized,
		models.ErrorInvoiceNotFinal,
		models.ErrorInvoiceCancelled,
		models.ErrorInvoiceNotCancelled,
		models.ErrorInvoiceHasPayments,
		models.ErrorAdvanceConsumed,
		models.ErrorPartyHasRecords,
		models.ErrorProductInUse,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func respondBindingError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func limitQueryParam(c *gin.Context) (*int, error) {
	limit := config.SearchLimit
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid limit: %s", v)
		}
		limit = n
	}
	return &limit, nil
}

func strQueryParam(c *gin.Context, name string) *string {
	if v := c.Query(name); v != "" {
		return &v
	}
	return nil
}

func intQueryParam(c *gin.Context, name string) (*int, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %s", name, v)
	}
	return &n, nil
}

func boolQueryParam(c *gin.Context, name string) (*bool, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %s", name, v)
	}
	return &b, nil
}

func dateQueryParam(c *gin.Context, name string) (*time.Time, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %s", name, v)
	}
	return &t, nil
}

// ---- stateless computation ----

type calcTotalsItem struct {
	Quantity        decimal.Decimal `json:"quantity"`
	Rate            decimal.Decimal `json:"rate"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
}

type calcTotalsRequest struct {
	TaxMode             calc.TaxMode       `json:"tax_mode" binding:"required"`
	RoundingMode        calc.RoundingMode  `json:"rounding_mode" binding:"required"`
	InvoiceDiscount     decimal.Decimal    `json:"invoice_discount"`
	InvoiceDiscountType *calc.DiscountType `json:"invoice_discount_type"`
	OtherCharges        decimal.Decimal    `json:"other_charges"`
	Items               []calcTotalsItem   `json:"items"`
}

// calcInvoiceTotalsHandler recomputes invoice totals from raw inputs
// without touching the database. The GUI calls it on every edit of the
// billing screen, so it must stay side effect free.
func calcInvoiceTotalsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req calcTotalsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}

		_, span := tracer.Start(c.Request.Context(), "calc.invoice-totals")
		defer span.End()

		items := make([]calc.LineItem, len(req.Items))
		for i, item := range req.Items {
			items[i] = calc.LineItem{
				Quantity:        item.Quantity,
				Rate:            item.Rate,
				DiscountPercent: item.DiscountPercent,
				TaxPercent:      item.TaxPercent,
			}
		}
		discount := calc.InvoiceDiscount{Value: req.InvoiceDiscount}
		if req.InvoiceDiscountType != nil {
			discount.Type = *req.InvoiceDiscountType
		}

		totals, err := calc.CalculateInvoiceTotals(items, req.TaxMode, discount, req.OtherCharges, req.RoundingMode)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, totals)
	}
}

// ---- companies ----

func createCompanyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCompany
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		company, err := models.CreateCompany(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, company)
	}
}

func updateCompanyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCompany
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		company, err := models.UpdateCompany(c.Request.Context(), c.Param("id"), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, company)
	}
}

func getCompaniesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		companies, err := models.GetCompanies(c.Request.Context(), strQueryParam(c, "name"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, companies)
	}
}

func getCurrentCompanyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		company, err := models.GetCompany(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, company)
	}
}

// ---- parties ----

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func createPartyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewParty
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		party, err := models.CreateParty(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, party)
	}
}

func updatePartyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewParty
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		party, err := models.UpdateParty(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, party)
	}
}

func deletePartyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		party, err := models.DeleteParty(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, party)
	}
}

func getPartyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		party, err := models.GetParty(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, party)
	}
}

func togglePartyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}
		party, err := models.ToggleActiveParty(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, party)
	}
}

func listPartiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		isActive, err := boolQueryParam(c, "is_active")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		parties, err := models.GetParties(c.Request.Context(), strQueryParam(c, "name"), isActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, parties)
	}
}

func paginatePartiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := limitQueryParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		isActive, err := boolQueryParam(c, "is_active")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		connection, err := models.PaginateParties(c.Request.Context(), limit, strQueryParam(c, "after"),
			strQueryParam(c, "name"), strQueryParam(c, "phone"), strQueryParam(c, "email"), isActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

func outstandingInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		outstanding, err := models.GetOutstandingInvoices(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, outstanding)
	}
}

// ---- products ----

func createProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		product, err := models.CreateProduct(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

func updateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		product, err := models.UpdateProduct(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func deleteProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		product, err := models.DeleteProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func getProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		product, err := models.GetProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func toggleProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}
		product, err := models.ToggleActiveProduct(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// listProductsHandler serves the billing screen's item picker from the
// per company cache.
func listProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := models.GetAllProducts(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

func paginateProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := limitQueryParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		isActive, err := boolQueryParam(c, "is_active")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		connection, err := models.PaginateProducts(c.Request.Context(), limit, strQueryParam(c, "after"),
			strQueryParam(c, "name"), strQueryParam(c, "hsn_code"), isActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

// ---- invoices ----

func createInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		invoice, err := models.CreateInvoice(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, invoice)
	}
}

func updateInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		invoice, err := models.UpdateInvoice(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func finalizeInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		invoice, err := models.FinalizeInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func cancelInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		invoice, err := models.CancelInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func deleteInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		invoice, err := models.DeleteInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func getInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		invoice, err := models.GetInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func paginateInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := limitQueryParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		partyId, err := intQueryParam(c, "party_id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fromDate, err := dateQueryParam(c, "from_date")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		toDate, err := dateQueryParam(c, "to_date")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var status *calc.InvoiceStatus
		if v := c.Query("status"); v != "" {
			s := calc.InvoiceStatus(v)
			status = &s
		}
		var billType *models.BillType
		if v := c.Query("bill_type"); v != "" {
			b, ok := models.ParseBillType(v)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown bill_type " + v})
				return
			}
			billType = &b
		}
		var lifecycleState *calc.LifecycleState
		if v := c.Query("lifecycle_state"); v != "" {
			l, ok := calc.ParseLifecycleState(v)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown lifecycle_state " + v})
				return
			}
			lifecycleState = &l
		}

		connection, err := models.PaginateInvoices(c.Request.Context(), limit, strQueryParam(c, "after"),
			strQueryParam(c, "invoice_number"), partyId, status, billType, lifecycleState, fromDate, toDate)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

func invoicePaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		payments, err := models.GetInvoicePayments(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payments)
	}
}

// ---- payments ----

func createPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		payment, err := models.CreatePayment(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, payment)
	}
}

func deletePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		payment, err := models.DeletePayment(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

func getPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		payment, err := models.GetPayment(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

func paginatePaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := limitQueryParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		partyId, err := intQueryParam(c, "party_id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fromDate, err := dateQueryParam(c, "from_date")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		toDate, err := dateQueryParam(c, "to_date")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var settlementMode *calc.SettlementMode
		if v := c.Query("settlement_mode"); v != "" {
			m, ok := calc.ParseSettlementMode(v)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown settlement_mode " + v})
				return
			}
			settlementMode = &m
		}

		connection, err := models.PaginatePayments(c.Request.Context(), limit, strQueryParam(c, "after"),
			strQueryParam(c, "payment_number"), partyId, settlementMode, fromDate, toDate)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

// ---- maintenance ----

// statusRefreshHandler runs the overdue sweep for the acting company.
// The GUI fires it on startup; cmd/status-refresh covers cron installs.
func statusRefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		changed, err := models.RefreshOverdueStatuses(c.Request.Context(), time.Now())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"refreshed": changed})
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(func(c *gin.Context) {
		// The GUI launcher polls /healthz while the db file is prepared.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "starting up"})
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
	} else {
		// the bundled GUI serves from its own local origin
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "X-Company-Id", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length", "X-Correlation-Id")
	r.Use(cors.New(corsConfig))

	r.Use(customErrorLogger(logger))
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		config.LogError(logger, "server.go", "recovery", "panic recovered", recovered, fmt.Errorf("%v", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}))

	api := r.Group("/api", middlewares.CompanyMiddleware())

	api.POST("/calc/invoice-totals", calcInvoiceTotalsHandler())

	api.POST("/companies", createCompanyHandler())
	api.GET("/companies", getCompaniesHandler())
	api.PUT("/companies/:id", updateCompanyHandler())
	api.GET("/company", getCurrentCompanyHandler())

	api.POST("/parties", createPartyHandler())
	api.GET("/parties", paginatePartiesHandler())
	api.GET("/parties/all", listPartiesHandler())
	api.GET("/parties/:id", getPartyHandler())
	api.PUT("/parties/:id", updatePartyHandler())
	api.DELETE("/parties/:id", deletePartyHandler())
	api.POST("/parties/:id/toggle-active", togglePartyHandler())
	api.GET("/parties/:id/outstanding-invoices", outstandingInvoicesHandler())

	api.POST("/products", createProductHandler())
	api.GET("/products", paginateProductsHandler())
	api.GET("/products/all", listProductsHandler())
	api.GET("/products/:id", getProductHandler())
	api.PUT("/products/:id", updateProductHandler())
	api.DELETE("/products/:id", deleteProductHandler())
	api.POST("/products/:id/toggle-active", toggleProductHandler())

	api.POST("/invoices", createInvoiceHandler())
	api.GET("/invoices", paginateInvoicesHandler())
	api.GET("/invoices/:id", getInvoiceHandler())
	api.PUT("/invoices/:id", updateInvoiceHandler())
	api.DELETE("/invoices/:id", deleteInvoiceHandler())
	api.POST("/invoices/:id/finalize", finalizeInvoiceHandler())
	api.POST("/invoices/:id/cancel", cancelInvoiceHandler())
	api.GET("/invoices/:id/payments", invoicePaymentsHandler())

	api.POST("/payments", createPaymentHandler())
	api.GET("/payments", paginatePaymentsHandler())
	api.GET("/payments/:id", getPaymentHandler())
	api.DELETE("/payments/:id", deletePaymentHandler())

	api.POST("/status-refresh", statusRefreshHandler())

	r.NoRoute(customNotFoundHandler)

	// Open the port first so the launcher sees it, then prepare deps.
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisIfConfigured()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	log.Println("Server started successfully on port " + port)

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger logs only requests that collected errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
