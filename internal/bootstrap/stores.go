package bootstrap

import (
	"time"

	"github.com/alisoliman/realtime-api/internal/history"
	"github.com/alisoliman/realtime-api/internal/relay"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideHistoryStore(db *gorm.DB) *history.Store {
	return history.NewStore(db)
}

func ProvideRelayStore(cfg *Config, redisClient *redis.Client) *relay.Store {
	return relay.NewStore(redisClient, time.Duration(cfg.TokenTTLSeconds)*time.Second)
}

func RunMigrations(historyStore *history.Store) error {
	return historyStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideHistoryStore,
		ProvideRelayStore,
	),
	fx.Invoke(RunMigrations),
)
