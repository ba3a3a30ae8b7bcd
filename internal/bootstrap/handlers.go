package bootstrap

import (
	"log/slog"

	"github.com/alisoliman/realtime-api/internal/history"
	"github.com/alisoliman/realtime-api/internal/relay"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

func ProvideUpstream(cfg *Config) *relay.Upstream {
	return relay.NewUpstream(relay.UpstreamConfig{
		Endpoint:           cfg.AzureEndpoint,
		APIKey:             cfg.AzureAPIKey,
		Deployment:         cfg.AzureDeployment,
		TranscriptionModel: cfg.TranscriptionModel,
	})
}

func ProvideRelayHandler(upstream *relay.Upstream, store *relay.Store, logger *slog.Logger) *relay.Handler {
	return relay.NewHandler(upstream, store, logger.With("handler", "relay"))
}

func ProvideHistoryHandler(store *history.Store, logger *slog.Logger) *history.Handler {
	return history.NewHandler(store, logger.With("handler", "history"))
}

type HandlerParams struct {
	fx.In

	RelayHandler   *relay.Handler
	HistoryHandler *history.Handler
	Config         *Config
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	params.RelayHandler.RegisterRoutes(e, relay.RateLimiterConfig{
		RequestsPerSecond: params.Config.RateLimitRPS,
		Burst:             params.Config.RateLimitBurst,
		CleanupInterval:   relay.DefaultRateLimiterConfig().CleanupInterval,
	})
	params.HistoryHandler.RegisterRoutes(e.Group("/api/v1/conversations"))
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideUpstream,
		ProvideRelayHandler,
		ProvideHistoryHandler,
	),
	fx.Invoke(RegisterRoutes),
)
