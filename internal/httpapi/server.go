// Package httpapi exposes the vault session, snapshot, and operation state
// over HTTP for a presentation layer. It holds no state of its own: every
// response is derived from the vault service at request time.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lockvault/lockvault/pkg/vault"
)

// Run boots the HTTP façade using the supplied configuration and blocks
// until ctx is cancelled.
func Run(ctx context.Context, cfg Config, service *vault.Service, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)
	handler := &httpHandler{
		logger:  logger,
		service: service,
	}
	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("vault api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(handler.logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(authMiddleware([]byte(cfg.APISigningKey), cfg.APIIssuer))

	api.GET("/session", handler.handleSession)
	api.POST("/session", handler.handleConnect)
	api.DELETE("/session", handler.handleDisconnect)
	api.GET("/vault", handler.handleVault)
	api.POST("/vault/refresh", handler.handleRefresh)
	api.POST("/vault/deposit", handler.handleDeposit)
	api.POST("/vault/withdraw", handler.handleWithdraw)
	api.POST("/vault/extend", handler.handleExtend)
	api.GET("/operation", handler.handleOperation)

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requestID := uuid.NewString()
		ctx.Header("X-Request-Id", requestID)
		started := time.Now()
		ctx.Next()
		logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("elapsed", time.Since(started)),
		)
	}
}

type httpHandler struct {
	logger  *zap.Logger
	service *vault.Service
}

func (handler *httpHandler) handleSession(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, handler.sessionEnvelope())
}

func (handler *httpHandler) handleConnect(ctx *gin.Context) {
	if err := handler.service.Connect(ctx.Request.Context()); err != nil {
		if errors.Is(err, vault.ErrConnectionFailed) {
			ctx.JSON(http.StatusBadGateway, errorResponse("connection_failed", err.Error()))
			return
		}
		// Connected but the priming refresh failed; the session stands.
		handler.logger.Warn("initial refresh failed", zap.Error(err))
	}
	ctx.JSON(http.StatusOK, handler.sessionEnvelope())
}

func (handler *httpHandler) handleDisconnect(ctx *gin.Context) {
	handler.service.Disconnect()
	ctx.JSON(http.StatusOK, handler.sessionEnvelope())
}

func (handler *httpHandler) handleVault(ctx *gin.Context) {
	snapshot, populated := handler.service.Snapshot()
	if !populated {
		ctx.JSON(http.StatusNotFound, errorResponse("not_synchronized", "no snapshot yet; connect or refresh first"))
		return
	}
	ctx.JSON(http.StatusOK, vaultEnvelope(snapshot))
}

func (handler *httpHandler) handleRefresh(ctx *gin.Context) {
	if err := handler.service.Refresh(ctx.Request.Context()); err != nil {
		ctx.JSON(http.StatusBadGateway, errorResponse("sync_failed", err.Error()))
		return
	}
	snapshot, _ := handler.service.Snapshot()
	ctx.JSON(http.StatusOK, vaultEnvelope(snapshot))
}

func (handler *httpHandler) handleDeposit(ctx *gin.Context) {
	var request amountRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with amount"))
		return
	}
	operation := handler.service.Deposit(ctx.Request.Context(), request.Amount)
	ctx.JSON(http.StatusOK, operationEnvelope(operation))
}

func (handler *httpHandler) handleWithdraw(ctx *gin.Context) {
	var request amountRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with amount"))
		return
	}
	operation := handler.service.Withdraw(ctx.Request.Context(), request.Amount)
	ctx.JSON(http.StatusOK, operationEnvelope(operation))
}

func (handler *httpHandler) handleExtend(ctx *gin.Context) {
	var request extendRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with value and unit"))
		return
	}
	unit, err := vault.NewDurationUnit(request.Unit)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_unit", err.Error()))
		return
	}
	operation := handler.service.ExtendLock(ctx.Request.Context(), request.Value, unit)
	ctx.JSON(http.StatusOK, operationEnvelope(operation))
}

func (handler *httpHandler) handleOperation(ctx *gin.Context) {
	operation, tracked := handler.service.CurrentOperation()
	if !tracked {
		ctx.JSON(http.StatusNotFound, errorResponse("no_operation", "no operation tracked"))
		return
	}
	ctx.JSON(http.StatusOK, operationEnvelope(operation))
}

func (handler *httpHandler) sessionEnvelope() SessionEnvelope {
	session := handler.service.Session()
	return SessionEnvelope{
		Status:        string(session.Status),
		Address:       session.Address.String(),
		ChainID:       session.Chain.String(),
		ChainMismatch: handler.service.ChainMismatch(),
	}
}

func vaultEnvelope(snapshot vault.Snapshot) VaultEnvelope {
	return VaultEnvelope{Vault: VaultPayload{
		BalanceAtomic:    snapshot.BalanceAtomic.BigInt().String(),
		BalanceDecimal:   vault.FromAtomic(snapshot.BalanceAtomic),
		UnlockUnixUTC:    snapshot.UnlockUnixUTC,
		UnlockTime:       time.Unix(snapshot.UnlockUnixUTC, 0).UTC().Format(time.RFC3339),
		RefreshedUnixUTC: snapshot.RefreshedUnixUTC,
	}}
}

func operationEnvelope(operation vault.PendingOperation) OperationEnvelope {
	payload := OperationPayload{
		Kind:              string(operation.Kind),
		Status:            string(operation.Status),
		StatusText:        vault.StatusText(operation),
		AdditionalSeconds: operation.AdditionalSeconds,
		TxHandle:          operation.Handle.String(),
		FailureReason:     operation.FailureReason,
	}
	if !operation.Amount.IsZero() {
		payload.AmountAtomic = operation.Amount.BigInt().String()
		payload.AmountDecimal = vault.FromAtomic(operation.Amount)
	}
	return OperationEnvelope{Operation: payload}
}

func errorResponse(code string, message string) ErrorEnvelope {
	return ErrorEnvelope{Error: ErrorPayload{Code: code, Message: message}}
}
