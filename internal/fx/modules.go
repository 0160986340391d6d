package fx

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"territory-engine/internal/config"
	"territory-engine/internal/database"
	"territory-engine/internal/limiter"
	"territory-engine/internal/logger"
	"territory-engine/internal/notify"
	"territory-engine/internal/repository"
	"territory-engine/internal/server"
	"territory-engine/internal/service"
	"territory-engine/internal/tuning"
)

func ProvideTuning(cfg *config.Config, log zerolog.Logger) (tuning.Tuning, error) {
	t, err := tuning.Load(cfg.TuningPath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.TuningPath).Msg("failed to load tuning")
		return t, err
	}
	return t, nil
}

func ProvideTicker(
	captures *service.CaptureService,
	rounds *service.RoundService,
	regions *repository.RegionRepository,
	t tuning.Tuning,
	cfg *config.Config,
	log zerolog.Logger,
) *service.Ticker {
	return service.NewTicker(captures, rounds, regions, t, cfg.TickerInterval, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(ProvideTuning),
	fx.Provide(limiter.New),
	// repos
	fx.Provide(repository.NewRoundRepository),
	fx.Provide(repository.NewRegionRepository),
	fx.Provide(repository.NewContributionRepository),
	fx.Provide(repository.NewRepeatKillRepository),
	fx.Provide(repository.NewRateLimitRepository),
	// svc
	fx.Provide(service.NewRoundService),
	fx.Provide(service.NewCaptureService),
	fx.Provide(service.NewInfluenceService),
	fx.Provide(service.NewBinarySupplyModel),
	fx.Provide(service.NewQueryService),
	fx.Provide(ProvideTicker),
	// collaborators
	fx.Provide(notify.NewWebhookNotifier),
	// server
	fx.Provide(server.NewEngineServer),
)
