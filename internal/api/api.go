package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clipscribe/clipscribe/internal/apperrors"
	"github.com/clipscribe/clipscribe/internal/auth"
	"github.com/clipscribe/clipscribe/internal/billing"
	"github.com/clipscribe/clipscribe/internal/database"
	"github.com/clipscribe/clipscribe/internal/entitlement"
	"github.com/clipscribe/clipscribe/internal/logger"
	"github.com/clipscribe/clipscribe/internal/pipeline"
	"github.com/clipscribe/clipscribe/internal/server/middleware"
	"github.com/clipscribe/clipscribe/internal/storage"
)

// Runner executes the transcription pipeline for one admitted request.
type Runner interface {
	Run(ctx context.Context, user *database.User, project *database.Project, mediaPath string, sizeBytes int64) (*pipeline.Result, error)
}

// SourceFetcher downloads a remote media source to a local file and
// reports its size.
type SourceFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, int64, error)
}

// AudioExtractor converts a media file into a transcription-ready
// audio track.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, src string) (string, error)
}

// Rewriter runs transcript text through the language model.
type Rewriter interface {
	Enhance(ctx context.Context, rawText string) (string, error)
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
}

// UsageReader reports entitlement counters without admitting anything.
type UsageReader interface {
	Usage(ctx context.Context, user *database.User) (entitlement.UsageSnapshot, error)
}

// Biller is the checkout surface the billing handlers need.
type Biller interface {
	KeyID() string
	CreateOrder(ctx context.Context, userID uuid.UUID, plan string) (*billing.Order, error)
	VerifyPayment(ctx context.Context, userID uuid.UUID, orderID, paymentID, signature string) (*billing.Activation, error)
	History(ctx context.Context, userID uuid.UUID) ([]database.Payment, error)
}

// EventPublisher emits domain events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, userID string, payload interface{}) error
}

// Deps collects everything the handlers touch. Events and Archive may
// be nil; the corresponding features degrade to no-ops.
type Deps struct {
	Log       *logger.Logger
	Tokens    *auth.Service
	Hasher    *auth.BcryptHasher
	Users     *database.UserStore
	Projects  *database.ProjectStore
	Usage     UsageReader
	Pipeline  Runner
	Fetcher   SourceFetcher
	Extractor AudioExtractor
	Rewriter  Rewriter
	Billing   Biller
	Events    EventPublisher
	Archive   storage.Store
	TempDir   string
	Version   string
}

// Handlers is the set of HTTP handlers for the service.
type Handlers struct {
	deps Deps
	log  *logger.Logger
}

// New creates the handler set.
func New(deps Deps) *Handlers {
	return &Handlers{deps: deps, log: deps.Log.WithComponent("api")}
}

// RegisterRoutes mounts all routes on the engine. Everything under
// /api except the auth endpoints requires a valid session token.
func (h *Handlers) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/health", h.health)
	engine.GET("/alive", h.health)
	engine.GET("/ready", h.health)

	api := engine.Group("/api")

	sessions := api.Group("/auth")
	sessions.POST("/register", h.register)
	sessions.POST("/login", h.login)
	sessions.POST("/logout", h.logout)

	private := api.Group("", middleware.Authenticate(h.deps.Tokens))
	private.GET("/user/me", h.me)
	private.GET("/usage", h.usage)

	private.POST("/transcribe", h.transcribe)
	private.POST("/extract-audio", h.extractAudio)

	private.GET("/projects", h.listProjects)
	private.GET("/projects/:id", h.getProject)
	private.PUT("/projects/:id", h.renameProject)
	private.DELETE("/projects/:id", h.deleteProject)
	private.PUT("/projects/:id/text", h.updateProjectText)
	private.GET("/projects/:id/captions", h.exportCaptions)

	private.POST("/enhance", h.enhance)
	private.POST("/translate", h.translate)

	checkout := private.Group("/billing")
	checkout.GET("/key", h.billingKey)
	checkout.POST("/order", h.createOrder)
	checkout.POST("/verify", h.verifyPayment)
	checkout.GET("/history", h.billingHistory)

	admin := private.Group("/admin", middleware.RequireAdmin())
	admin.GET("/users/:id", h.adminUserUsage)
}

func (h *Handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.deps.Version})
}

// callerID returns the verified caller's user id.
func (h *Handlers) callerID(c *gin.Context) (uuid.UUID, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return uuid.Nil, apperrors.Unauthorized("no identity on request")
	}
	userID, err := uuid.Parse(id.UserID)
	if err != nil {
		return uuid.Nil, apperrors.InvalidToken()
	}
	return userID, nil
}

// currentUser loads the caller's account. Handlers that consult
// entitlements need the full row, not just the token claims.
func (h *Handlers) currentUser(c *gin.Context) (*database.User, error) {
	userID, err := h.callerID(c)
	if err != nil {
		return nil, err
	}
	return h.deps.Users.ByID(c.Request.Context(), userID)
}

// publishEvent emits an event best-effort. Delivery failures are
// logged, never surfaced to the client.
func (h *Handlers) publishEvent(ctx context.Context, eventType string, userID uuid.UUID, payload interface{}) {
	if h.deps.Events == nil {
		return
	}
	if err := h.deps.Events.Publish(ctx, eventType, userID.String(), payload); err != nil {
		h.log.Warn("event publish failed", logger.Fields(
			"event_type", eventType,
			"user_id", userID.String(),
			"error", err.Error(),
		))
	}
}
