package repost

import (
	"errors"

	"repost-manager/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for reposts.
type Handler struct {
	engine *Engine
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(engine *Engine, logger *zap.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// RegisterRoutes registers the repost routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/reposts")
	group.Get("/status", h.HandleStatus)
	group.Post("/toggle", h.HandleToggle)
	group.Post("/sync", h.HandleSync)
	group.Get("/user/:pubkey", h.HandleFetchUser)
	group.Get("/count", h.HandleCount)
	group.Get("/count/event/:id", h.HandleCountByEventID)
}

// toggleRequest is the body for the toggle endpoint.
type toggleRequest struct {
	ContentRef     string `json:"content_ref"`
	OriginalAuthor string `json:"original_author"`
	ContentEventID string `json:"content_event_id"`
}

// HandleStatus reports whether the session user has reposted the content.
// @Summary Repost status
// @Description Reports whether the local user has reposted the referenced content.
// @Tags reposts
// @Produce json
// @Param ref query string true "Addressable content reference (kind:pubkey:d-tag)"
// @Success 200 {object} map[string]bool "Repost status"
// @Router /reposts/status [get]
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	ref := c.Query("ref")
	if ref == "" {
		return badRequest(c, ErrMissingReference.Error())
	}

	reposted, err := h.engine.IsReposted(c.Context(), ref)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"reposted": reposted})
}

// HandleToggle reposts or unreposts the referenced content.
// @Summary Toggle repost
// @Description Reposts the content if not reposted, unreposts it otherwise.
// @Tags reposts
// @Accept json
// @Produce json
// @Param request body toggleRequest true "Content to toggle"
// @Success 200 {object} map[string]bool "Resulting state"
// @Failure 409 {object} map[string]string "Precondition violation"
// @Router /reposts/toggle [post]
func (h *Handler) HandleToggle(c *fiber.Ctx) error {
	var req toggleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if req.ContentRef == "" {
		return badRequest(c, ErrMissingReference.Error())
	}

	reposted, err := h.engine.ToggleRepost(c.Context(), req.ContentRef, req.OriginalAuthor, req.ContentEventID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"reposted": reposted})
}

// HandleSync reconciles the local record set against the relays.
// @Summary Sync reposts
// @Description Runs the two-phase sync (local seed, then remote merge) for the session user.
// @Tags reposts
// @Produce json
// @Success 200 {object} models.SyncResult "Synced record set"
// @Router /reposts/sync [post]
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	result, err := h.engine.SyncUserReposts(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(result)
}

// HandleFetchUser returns any user's reposts, most recent first.
// @Summary Fetch a user's reposts
// @Description Read-only query of the relays for the given pubkey's reposts. Does not touch local state.
// @Tags reposts
// @Produce json
// @Param pubkey path string true "User pubkey"
// @Success 200 {array} models.Record "Repost records"
// @Router /reposts/user/{pubkey} [get]
func (h *Handler) HandleFetchUser(c *fiber.Ctx) error {
	pubkey := c.Params("pubkey")

	recs, err := h.engine.FetchUserRepostRecords(c.Context(), pubkey)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(recs)
}

// HandleCount returns the repost count for an addressable reference.
// @Summary Repost count
// @Description Counts repost assertions referencing the content, across all users.
// @Tags reposts
// @Produce json
// @Param ref query string true "Addressable content reference"
// @Success 200 {object} map[string]int64 "Count"
// @Router /reposts/count [get]
func (h *Handler) HandleCount(c *fiber.Ctx) error {
	ref := c.Query("ref")
	if ref == "" {
		return badRequest(c, ErrMissingReference.Error())
	}

	count, err := h.engine.RepostCount(c.Context(), ref)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

// HandleCountByEventID returns the repost count for a raw event id,
// including the legacy repost kind.
// @Summary Repost count by event id
// @Description Counts repost assertions referencing the content by event id.
// @Tags reposts
// @Produce json
// @Param id path string true "Event id"
// @Success 200 {object} map[string]int64 "Count"
// @Router /reposts/count/event/{id} [get]
func (h *Handler) HandleCountByEventID(c *fiber.Ctx) error {
	count, err := h.engine.RepostCountByEventID(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

// fail maps engine errors onto HTTP statuses: precondition violations are
// conflicts, relay failures are bad gateways. Reasons stay short diagnostic
// strings, never internal detail.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	l := logger.WithRayID(h.logger, c)

	var already *AlreadyRepostedError
	var notReposted *NotRepostedError
	if errors.As(err, &already) || errors.As(err, &notReposted) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	var repostFailed *RepostFailedError
	var unrepostFailed *UnrepostFailedError
	var syncFailed *SyncFailedError
	var fetchFailed *FetchRepostsFailedError
	if errors.As(err, &repostFailed) || errors.As(err, &unrepostFailed) ||
		errors.As(err, &syncFailed) || errors.As(err, &fetchFailed) {
		l.Error("relay operation failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	l.Error("repost operation failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, reason string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": reason})
}
