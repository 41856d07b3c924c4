package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/config"
	"bitbucket.org/mmdatafocus/revenue_backend/middlewares"
	"bitbucket.org/mmdatafocus/revenue_backend/models"
	"bitbucket.org/mmdatafocus/revenue_backend/reports"
	"bitbucket.org/mmdatafocus/revenue_backend/utils"
	"bitbucket.org/mmdatafocus/revenue_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// writeError maps workflow errors onto HTTP statuses. Validation problems are
// the caller's to fix; everything else is a 500 with the detail in the logs.
func writeError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(err)})
	case errors.Is(err, utils.ErrInvalidAmount),
		errors.Is(err, utils.ErrInvalidRevenueSource),
		errors.Is(err, utils.ErrInvalidSnapshotPeriod),
		errors.Is(err, utils.ErrReasonRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrDuplicateRevenueSource),
		errors.Is(err, utils.ErrSnapshotAlreadyExists),
		errors.Is(err, utils.ErrSeatAlreadyAssigned),
		errors.Is(err, utils.ErrDistributionInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrInsufficientBalance):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrPoolNotFound),
		errors.Is(err, utils.ErrShareholderNotFound),
		errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		config.LogError(config.GetLogger(), "server.go", "writeError", c.FullPath(), nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func recordRevenueHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewRevenueTransaction
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		txn, err := workflow.RecordRevenue(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, txn)
	}
}

func manualAllocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewRevenueTransaction
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		txn, err := workflow.ManualAllocation(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, txn)
	}
}

func getRevenueTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
			return
		}
		txn, err := models.GetRevenueTransactionById(c.Request.Context(), id)
		if err != nil {
			writeError(c, utils.ErrorRecordNotFound)
			return
		}
		c.JSON(http.StatusOK, txn)
	}
}

func getPoolMembersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		poolId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pool id"})
			return
		}
		members, err := models.GetActivePoolMembers(c.Request.Context(), poolId)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, members)
	}
}

func distributeExecutiveHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := workflow.RunExecutiveDistribution(c.Request.Context(), logger)
		if err != nil {
			if errors.Is(err, utils.ErrDistributionInProgress) {
				writeError(c, err)
				return
			}
			// Retries exhausted; audit row and alerts are already written.
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":               true,
			"total_amount":          summary.TotalAmount,
			"recipient_count":       summary.RecipientCount,
			"allocations_processed": summary.AllocationsProcessed,
			"message":               summary.Message,
		})
	}
}

func distributePoolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		poolId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pool id"})
			return
		}
		summary, err := workflow.DistributePool(c.Request.Context(), poolId)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func addPoolMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		poolId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pool id"})
			return
		}
		var input workflow.NewPoolMember
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		member, err := workflow.AddPoolMember(c.Request.Context(), poolId, input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, member)
	}
}

func removePoolMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		poolId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pool id"})
			return
		}
		memberId, err := strconv.Atoi(c.Param("memberId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
			return
		}
		if err := workflow.RemovePoolMember(c.Request.Context(), poolId, memberId); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func assignExecutiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.AssignExecutiveInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		seat, err := workflow.AssignExecutive(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, seat)
	}
}

func removeExecutiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shareholderId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shareholder id"})
			return
		}
		if err := workflow.RemoveExecutive(c.Request.Context(), shareholderId); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type withdrawRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func withdrawHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shareholderId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shareholder id"})
			return
		}
		var req withdrawRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := workflow.WithdrawFromWallet(c.Request.Context(), shareholderId, req.Amount, req.Description); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type reserveSpendRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

func reserveSpendHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reserveSpendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		spend, err := workflow.SpendFromReserve(c.Request.Context(), req.Amount, req.Reason)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, spend)
	}
}

type createSnapshotRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func createSnapshotHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSnapshotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		snapshot, err := workflow.CreateSnapshot(c.Request.Context(), req.Month, req.Year)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, snapshot)
	}
}

func getSnapshotsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "12"))
		snapshots, err := models.GetSnapshots(c.Request.Context(), limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshots)
	}
}

func exportSnapshotHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snapshot id"})
			return
		}
		snapshot, err := models.GetSnapshotById(c.Request.Context(), id)
		if err != nil {
			writeError(c, utils.ErrorRecordNotFound)
			return
		}
		data, err := reports.ExportSnapshotExcel(snapshot)
		if err != nil {
			writeError(c, err)
			return
		}

		if os.Getenv("SNAPSHOT_BUCKET") != "" {
			objectName := reports.SnapshotObjectName(snapshot)
			if err := utils.UploadSnapshotReport(c.Request.Context(), objectName, data); err != nil {
				config.LogError(logger, "server.go", "exportSnapshotHandler", "UploadSnapshotReport", objectName, err)
			}
		}

		c.Header("Content-Disposition", `attachment; filename="`+path.Base(reports.SnapshotObjectName(snapshot))+`"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	}
}

func revenueBySourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
		rows, err := reports.GetRevenueBySource(c.Request.Context(), days)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func revenueSourceDetailsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		source, err := models.ParseRevenueSource(c.Param("source"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
		details, err := reports.GetRevenueSourceDetails(c.Request.Context(), source, days)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, details)
	}
}

func getAllocationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.AllocationFilter
		if v := c.Query("destinationType"); v != "" {
			dt := models.AllocationDestinationType(v)
			if !dt.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid destination type"})
				return
			}
			filter.DestinationType = &dt
		}
		if v := c.Query("status"); v != "" {
			st := models.AllocationStatus(v)
			if !st.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid allocation status"})
				return
			}
			filter.Status = &st
		}
		if v := c.Query("poolId"); v != "" {
			poolId, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pool id"})
				return
			}
			filter.PoolId = &poolId
		}
		filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))

		allocations, err := models.GetAllocations(c.Request.Context(), filter)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, allocations)
	}
}

func getAdminActionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		actions, err := models.GetAdminActions(c.Request.Context(), limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, actions)
	}
}

func invariantsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := workflow.VerifyInvariants(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = utils.UniqueSlice(splitAndTrim(allowedOrigins))
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.AuthMiddleware())

	r.POST("/revenue", recordRevenueHandler())
	r.POST("/revenue/manual", manualAllocationHandler())
	r.GET("/revenue/:id", getRevenueTransactionHandler())

	r.GET("/reports/revenue-by-source", revenueBySourceHandler())
	r.GET("/reports/revenue-by-source/:source", revenueSourceDetailsHandler())
	r.GET("/allocations", getAllocationsHandler())
	r.GET("/admin-actions", getAdminActionsHandler())

	r.POST("/snapshots", createSnapshotHandler())
	r.GET("/snapshots", getSnapshotsHandler())
	r.GET("/snapshots/:id/export", exportSnapshotHandler(logger))

	// Manual trigger; Cloud Scheduler hits this daily when the in-process
	// scheduler is disabled. Both paths share one runner.
	r.POST("/jobs/distribute-executive", distributeExecutiveHandler(logger))

	r.POST("/pools/:id/distribute", distributePoolHandler())
	r.GET("/pools/:id/members", getPoolMembersHandler())
	r.POST("/pools/:id/members", addPoolMemberHandler())
	r.DELETE("/pools/:id/members/:memberId", removePoolMemberHandler())

	r.POST("/executives/assign", assignExecutiveHandler())
	r.POST("/executives/:id/remove", removeExecutiveHandler())
	r.POST("/executives/:id/withdraw", withdrawHandler())

	r.POST("/reserve/spend", reserveSpendHandler())
	r.GET("/admin/invariants", invariantsHandler())

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
		models.SeedDefaults()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()
	if config.DistributionSchedulerEnabled() {
		go workflow.NewDistributionScheduler(logger, config.DistributeAtHour()).Run(schedulerCtx)
		logger.WithFields(logrus.Fields{
			"field":   "scheduler",
			"at_hour": config.DistributeAtHour(),
		}).Info("distribution scheduler started")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("revenue engine listening on port ", port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work mid-drain.
	cancelScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}
