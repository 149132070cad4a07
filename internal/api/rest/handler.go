package rest

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-drug-registry/internal/adapter"
	"github.com/feral-file/ff-drug-registry/internal/api/middleware"
	"github.com/feral-file/ff-drug-registry/internal/api/shared/dto"
	"github.com/feral-file/ff-drug-registry/internal/domain"
	"github.com/feral-file/ff-drug-registry/internal/logger"
	"github.com/feral-file/ff-drug-registry/internal/pubsub"
	"github.com/feral-file/ff-drug-registry/internal/registry"
)

const (
	serviceName = "drug-registry"

	// DefaultStreamKeepAlive is how often an idle event stream sends a ping
	DefaultStreamKeepAlive = 15 * time.Second
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// RegisterDrug registers a drug owned by the authenticated caller
	// POST /api/v1/drugs
	RegisterDrug(c *gin.Context)

	// GetDrug retrieves a drug by id
	// GET /api/v1/drugs/:id
	GetDrug(c *gin.Context)

	// DrugExists reports whether an id is registered
	// GET /api/v1/drugs/:id/exists
	DrugExists(c *gin.Context)

	// DrugExpired reports whether a drug has expired at the time of the request
	// GET /api/v1/drugs/:id/expired
	DrugExpired(c *gin.Context)

	// ListOwnerDrugs lists an owner's drug ids in registration order
	// GET /api/v1/owners/:owner/drugs
	ListOwnerDrugs(c *gin.Context)

	// CountOwnerDrugs counts an owner's drugs
	// GET /api/v1/owners/:owner/drugs/count
	CountOwnerDrugs(c *gin.Context)

	// GetStats returns registry totals
	// GET /api/v1/stats
	GetStats(c *gin.Context)

	// GetEvents replays the registration journal in ascending sequence order
	// GET /api/v1/events?anchor=<sequence>&limit=<limit>&owner=<owner>
	GetEvents(c *gin.Context)

	// StreamEvents streams new registrations as server-sent events
	// GET /api/v1/events/stream?owner=<owner>
	StreamEvents(c *gin.Context)

	// VerifyLedger re-hashes the journal and reports the first broken link
	// GET /api/v1/ledger/verify
	VerifyLedger(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

type handler struct {
	registry  registry.Registry
	broker    *pubsub.Broker[domain.RegistrationEvent]
	clock     adapter.Clock
	keepAlive time.Duration
}

// NewHandler creates a new REST API handler
func NewHandler(reg registry.Registry, broker *pubsub.Broker[domain.RegistrationEvent], clock adapter.Clock, keepAlive time.Duration) Handler {
	if keepAlive <= 0 {
		keepAlive = DefaultStreamKeepAlive
	}
	return &handler{
		registry:  reg,
		broker:    broker,
		clock:     clock,
		keepAlive: keepAlive,
	}
}

func (h *handler) RegisterDrug(c *gin.Context) {
	owner, ok := middleware.Owner(c)
	if !ok {
		respondUnauthorized(c, "Authenticated owner required")
		return
	}

	var req dto.RegisterDrugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	id, err := h.registry.Register(c.Request.Context(), owner, req.ToInput())
	if err != nil {
		respondRegistryError(c, err, zap.String("id", req.ID), zap.String("owner", owner))
		return
	}

	c.JSON(http.StatusCreated, dto.RegisterDrugResponse{ID: id})
}

func (h *handler) GetDrug(c *gin.Context) {
	drug, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondRegistryError(c, err, zap.String("id", c.Param("id")))
		return
	}

	c.JSON(http.StatusOK, dto.DrugResponse{
		Drug:    *drug,
		Expired: drug.IsExpiredAt(h.clock.Now()),
	})
}

func (h *handler) DrugExists(c *gin.Context) {
	id := c.Param("id")
	exists, err := h.registry.Exists(c.Request.Context(), id)
	if err != nil {
		respondRegistryError(c, err, zap.String("id", id))
		return
	}

	c.JSON(http.StatusOK, dto.ExistsResponse{ID: id, Exists: exists})
}

func (h *handler) DrugExpired(c *gin.Context) {
	id := c.Param("id")
	checkedAt := h.clock.Now().Unix()
	expired, err := h.registry.IsExpired(c.Request.Context(), id)
	if err != nil {
		respondRegistryError(c, err, zap.String("id", id))
		return
	}

	c.JSON(http.StatusOK, dto.ExpiredResponse{ID: id, Expired: expired, CheckedAt: checkedAt})
}

func (h *handler) ListOwnerDrugs(c *gin.Context) {
	owner := c.Param("owner")
	ids, err := h.registry.ListByOwner(c.Request.Context(), owner)
	if err != nil {
		respondRegistryError(c, err, zap.String("owner", owner))
		return
	}

	c.JSON(http.StatusOK, dto.OwnerDrugsResponse{
		Owner: normalizedOwner(owner),
		IDs:   ids,
		Count: uint64(len(ids)),
	})
}

func (h *handler) CountOwnerDrugs(c *gin.Context) {
	owner := c.Param("owner")
	count, err := h.registry.CountByOwner(c.Request.Context(), owner)
	if err != nil {
		respondRegistryError(c, err, zap.String("owner", owner))
		return
	}

	c.JSON(http.StatusOK, dto.OwnerCountResponse{Owner: normalizedOwner(owner), Count: count})
}

func (h *handler) GetStats(c *gin.Context) {
	total, err := h.registry.Total(c.Request.Context())
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.StatsResponse{Total: total})
}

func (h *handler) GetEvents(c *gin.Context) {
	var query dto.EventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}

	events, err := h.registry.Events(c.Request.Context(), query.ToFilter())
	if err != nil {
		respondRegistryError(c, err, zap.Uint64("anchor", query.Anchor))
		return
	}

	c.JSON(http.StatusOK, dto.NewEventsResponse(events, query.Anchor))
}

func (h *handler) StreamEvents(c *gin.Context) {
	var filter pubsub.Filter[domain.RegistrationEvent]
	if raw := c.Query("owner"); raw != "" {
		owner, err := domain.NormalizeOwner(raw)
		if err != nil {
			respondBadRequest(c, "Invalid owner", err.Error())
			return
		}
		filter = func(ev domain.RegistrationEvent) bool {
			return ev.Owner == owner
		}
	}

	ctx := c.Request.Context()
	events := h.broker.Subscribe(ctx, filter)
	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	logger.DebugCtx(ctx, "Event stream opened", zap.String("client_ip", c.ClientIP()))

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(domain.EventTypeDrugRegistered, ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", h.clock.Now().Unix())
			return true
		case <-ctx.Done():
			return false
		}
	})

	logger.DebugCtx(ctx, "Event stream closed", zap.String("client_ip", c.ClientIP()))
}

func (h *handler) VerifyLedger(c *gin.Context) {
	report, err := h.registry.VerifyLedger(c.Request.Context())
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok", Service: serviceName})
}

// normalizedOwner echoes an owner path parameter in its canonical form
func normalizedOwner(raw string) string {
	owner, err := domain.NormalizeOwner(raw)
	if err != nil {
		return raw
	}
	return owner.String()
}
