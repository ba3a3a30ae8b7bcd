package relay

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alisoliman/realtime-api/internal/shared"
	"github.com/labstack/echo/v4"
)

const defaultVoice = "alloy"

type Handler struct {
	upstream *Upstream
	store    *Store
	log      *slog.Logger
}

func NewHandler(upstream *Upstream, store *Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{upstream: upstream, store: store, log: log}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, limiter RateLimiterConfig) {
	e.GET("/health", h.Health)

	api := e.Group("/api/v1")
	api.POST("/token", h.IssueToken, RateLimiter(limiter))
	api.GET("/stats", h.GetStats)
}

type TokenRequest struct {
	Voice string `json:"voice"`
}

type TokenResponse struct {
	Token    string `json:"token"`
	Endpoint string `json:"endpoint"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Message: "Azure OpenAI Realtime Token Service is running",
	})
}

// IssueToken mints an ephemeral session token for the requested output voice
// and returns it with the WebRTC endpoint to dial.
func (h *Handler) IssueToken(c echo.Context) error {
	var req TokenRequest
	// An empty body means default voice; only malformed JSON is rejected.
	if err := c.Bind(&req); err != nil && c.Request().ContentLength > 0 {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if req.Voice == "" {
		req.Voice = defaultVoice
	}

	ctx := c.Request().Context()

	token, err := h.upstream.Mint(ctx, req.Voice)
	if err != nil {
		if h.store != nil {
			if rerr := h.store.RecordUpstreamError(ctx); rerr != nil {
				h.log.Error("failed to record upstream error", "error", rerr)
			}
		}

		var ue *UpstreamError
		if errors.As(err, &ue) {
			h.log.Error("upstream rejected token request", "status", ue.Status)
			return shared.NewAPIError("upstream_error", "Azure API error: "+ue.Body).ToHTTP(ue.Status)
		}
		if errors.Is(err, ErrMissingToken) {
			h.log.Error("upstream response had no token")
			return shared.InternalError("missing_token", err.Error())
		}
		h.log.Error("token mint failed", "error", err)
		return shared.BadGateway("upstream_unreachable", err.Error())
	}

	if h.store != nil {
		grant, err := h.store.RecordIssued(ctx, req.Voice, c.RealIP())
		if err != nil {
			h.log.Error("failed to record issuance", "error", err)
		} else {
			h.log.Info("token issued", "grant_id", grant.ID, "voice", req.Voice)
		}
	}

	return c.JSON(http.StatusOK, TokenResponse{
		Token:    token,
		Endpoint: h.upstream.CallsEndpoint(),
	})
}

func (h *Handler) GetStats(c echo.Context) error {
	if h.store == nil {
		return c.JSON(http.StatusOK, []*Stats{})
	}
	stats, err := h.store.GetStats(c.Request().Context(), 24)
	if err != nil {
		return shared.InternalError("stats_unavailable", err.Error())
	}
	if stats == nil {
		stats = []*Stats{}
	}
	return c.JSON(http.StatusOK, stats)
}
