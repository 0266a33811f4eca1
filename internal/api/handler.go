package api

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"market-service/internal/apperr"
	"market-service/internal/models"
	"market-service/internal/service"
	"market-service/internal/uploads"
	"market-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const maxUploadBytes = 8 << 20

// Handler contains HTTP handlers
type Handler struct {
	auth    *service.AuthService
	items   *service.ItemService
	deals   *service.DealService
	finance *service.FinanceService
	chats   *service.ChatService
	imports *service.ImportService
	uploads *uploads.Store
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	auth *service.AuthService,
	items *service.ItemService,
	deals *service.DealService,
	finance *service.FinanceService,
	chats *service.ChatService,
	imports *service.ImportService,
	uploadStore *uploads.Store,
) *Handler {
	return &Handler{
		auth:    auth,
		items:   items,
		deals:   deals,
		finance: finance,
		chats:   chats,
		imports: imports,
		uploads: uploadStore,
		logger:  util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.Static("/uploads", h.uploads.BaseDir())

	api := router.Group("/api")
	{
		api.POST("/register", h.register)
		api.POST("/login", h.login)
		api.GET("/games", h.listGames)
		api.GET("/items/hot", h.hotItems)
		api.GET("/items/all", h.allItems)
		api.GET("/items/game/:game_id", h.itemsByGame)

		authed := api.Group("")
		authed.Use(h.authMiddleware())
		{
			authed.GET("/me", h.me)
			authed.GET("/me/items", h.myItems)
			authed.GET("/me/purchases", h.myPurchases)
			authed.GET("/me/sales", h.mySales)

			authed.GET("/finance", h.listOperations)
			authed.POST("/finance/topup", h.topup)
			authed.POST("/finance/withdraw", h.withdraw)

			authed.POST("/items", h.createItem)
			authed.POST("/items/:id/buy", h.buyItem)

			authed.GET("/deals", h.listDeals)
			authed.GET("/deals/:id/chat", h.openDealChat)
			authed.POST("/deals/:id/seller-confirm", h.sellerConfirm)
			authed.POST("/deals/:id/buyer-complete", h.buyerComplete)
			authed.POST("/deals/:id/dispute", h.dispute)

			authed.GET("/chats", h.listChats)
			authed.GET("/chats/:id/messages", h.listMessages)
			authed.POST("/chats/:id/messages", h.sendMessage)

			authed.POST("/games", h.createGame)

			admin := authed.Group("")
			admin.Use(h.adminMiddleware())
			{
				admin.POST("/import/playerok", h.runImport)
				admin.GET("/admin/users", h.adminListUsers)
				admin.GET("/admin/users/:id", h.adminGetUser)
				admin.POST("/admin/users/:id/credit", h.adminCredit)
				admin.POST("/admin/items/sanitize-titles", h.adminSanitizeTitles)
			}
		}
	}
}

// --- auth ---

type credentialsRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("nickname and password are required"))
		return
	}
	resp, err := h.auth.Register(c.Request.Context(), req.Nickname, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("nickname and password are required"))
		return
	}
	resp, err := h.auth.Login(c.Request.Context(), req.Nickname, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// --- catalog ---

func (h *Handler) listGames(c *gin.Context) {
	games, err := h.items.ListGames(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, games)
}

type createGameRequest struct {
	Name      string `json:"name" binding:"required"`
	Category  string `json:"category" binding:"required"`
	BannerURL string `json:"banner_url"`
}

func (h *Handler) createGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("name and category are required"))
		return
	}
	game, err := h.items.CreateGame(c.Request.Context(), req.Name, req.Category, req.BannerURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, game)
}

func (h *Handler) hotItems(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	items, err := h.items.ListActive(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) allItems(c *gin.Context) {
	items, err := h.items.ListActive(c.Request.Context(), 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) itemsByGame(c *gin.Context) {
	gameID, err := parseID(c, "game_id")
	if err != nil {
		respondError(c, err)
		return
	}
	items, err := h.items.ListByGame(c.Request.Context(), gameID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) myItems(c *gin.Context) {
	items, err := h.items.ListBySeller(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// createItem accepts a multipart form: the photo file plus the listing
// fields.
func (h *Handler) createItem(c *gin.Context) {
	price, err := strconv.ParseInt(c.PostForm("price"), 10, 64)
	if err != nil || price <= 0 {
		respondError(c, apperr.Validation("price must be a positive integer"))
		return
	}
	gameID, err := strconv.ParseInt(c.PostForm("game_id"), 10, 64)
	if err != nil {
		respondError(c, apperr.Validation("game_id is required"))
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		respondError(c, apperr.Validation("photo is required"))
		return
	}
	if file.Size > maxUploadBytes {
		respondError(c, apperr.Validation("photo is too large"))
		return
	}
	photoURL, err := h.saveUpload(file, uploads.SubdirItems, "item")
	if err != nil {
		respondError(c, err)
		return
	}

	req := &service.CreateItemRequest{
		GameID:   gameID,
		Name:     c.PostForm("name"),
		Descr:    c.PostForm("desc"),
		Price:    price,
		PhotoURL: photoURL,
	}
	item, err := h.items.Create(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		h.uploads.Remove(photoURL)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// --- deals ---

func (h *Handler) buyItem(c *gin.Context) {
	itemID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	deal, err := h.deals.Buy(c.Request.Context(), itemID, currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, deal)
}

func (h *Handler) listDeals(c *gin.Context) {
	deals, err := h.deals.ListForUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deals)
}

func (h *Handler) sellerConfirm(c *gin.Context) {
	h.dealTransition(c, h.deals.SellerConfirm)
}

func (h *Handler) buyerComplete(c *gin.Context) {
	h.dealTransition(c, h.deals.Complete)
}

func (h *Handler) dispute(c *gin.Context) {
	h.dealTransition(c, h.deals.Dispute)
}

func (h *Handler) dealTransition(c *gin.Context, fn func(ctx context.Context, dealID, userID int64) error) {
	dealID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := fn(c.Request.Context(), dealID, currentUser(c).ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) myPurchases(c *gin.Context) {
	rows, err := h.deals.Purchases(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) mySales(c *gin.Context) {
	rows, err := h.deals.Sales(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// --- finance ---

type amountRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

func (h *Handler) topup(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("amount is required"))
		return
	}
	op, err := h.finance.Topup(c.Request.Context(), currentUser(c).ID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, op)
}

func (h *Handler) withdraw(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("amount is required"))
		return
	}
	if err := h.finance.Withdraw(c.Request.Context(), currentUser(c).ID, req.Amount); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) listOperations(c *gin.Context) {
	ops, err := h.finance.Operations(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ops)
}

// --- chats ---

func (h *Handler) listChats(c *gin.Context) {
	chats, err := h.chats.ListForUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

func (h *Handler) openDealChat(c *gin.Context) {
	dealID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	chat, err := h.chats.OpenForDeal(c.Request.Context(), dealID, currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (h *Handler) listMessages(c *gin.Context) {
	chatID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	msgs, err := h.chats.Messages(c.Request.Context(), chatID, currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// sendMessage accepts either a JSON body with text or a multipart form with
// an image file.
func (h *Handler) sendMessage(c *gin.Context) {
	chatID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	userID := currentUser(c).ID

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("image")
		if err != nil {
			respondError(c, apperr.Validation("image is required"))
			return
		}
		if file.Size > maxUploadBytes {
			respondError(c, apperr.Validation("image is too large"))
			return
		}
		imageURL, err := h.saveUpload(file, uploads.SubdirMessages, "msg")
		if err != nil {
			respondError(c, err)
			return
		}
		msg, err := h.chats.SendImage(c.Request.Context(), chatID, userID, imageURL)
		if err != nil {
			h.uploads.Remove(imageURL)
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("text is required"))
		return
	}
	msg, err := h.chats.SendText(c.Request.Context(), chatID, userID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// --- admin ---

func (h *Handler) runImport(c *gin.Context) {
	var req service.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("game_id and url or html are required"))
		return
	}
	report, err := h.imports.Run(c.Request.Context(), currentUser(c).ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) adminListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	users, err := h.auth.SearchUsers(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) adminGetUser(c *gin.Context) {
	userID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	user, err := h.auth.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type creditRequest struct {
	Delta int64 `json:"delta" binding:"required"`
}

func (h *Handler) adminCredit(c *gin.Context) {
	userID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req creditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("delta is required"))
		return
	}
	user, err := h.finance.AdminAdjust(c.Request.Context(), userID, req.Delta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) adminSanitizeTitles(c *gin.Context) {
	changed, err := h.items.SanitizeTitles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

// --- middleware and helpers ---

const userContextKey = "currentUser"

func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		userID, err := h.auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		user, err := h.auth.GetUser(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

func (h *Handler) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.auth.IsAdmin(currentUser(c).Nickname) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(userContextKey).(*models.User)
}

func parseID(c *gin.Context, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid " + param)
	}
	return id, nil
}

func (h *Handler) saveUpload(file *multipart.FileHeader, subdir, prefix string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
	default:
		return "", apperr.Validation("unsupported image type")
	}
	return h.uploads.Save(subdir, prefix, ext, data)
}

func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		util.GetLogger().Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": apperr.UserMessage(err)})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}
