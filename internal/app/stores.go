// Package app opens the storage shared by the server and the batch CLI.
package app

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"kata_review/internal/adapters"
	"kata_review/internal/bootstrap"
	"kata_review/internal/repository"
	analysisUC "kata_review/internal/usecase/analysis"
)

// Stores holds whatever store.driver and cache.redis_url asked for. Nil
// fields are simply not configured.
type Stores struct {
	redisAdapter *adapters.AdapterRedis
	mongoAdapter *adapters.AdapterMongo
	sqlite       *repository.RunRepositorySqlite

	cache   *repository.VerdictCache
	archive analysisUC.RunStore
}

// OpenArchive connects the run archive. A failure leaves the returned
// Stores usable without an archive, so a caller may choose to carry on.
func (s *Stores) OpenArchive(ctx context.Context, cfg *bootstrap.Config, log *zap.SugaredLogger) error {
	switch cfg.Store.Driver {
	case "mongo":
		mongoAdapter := adapters.NewAdapterMongo(cfg, log)
		if err := mongoAdapter.Init(ctx); err != nil {
			return errors.Wrap(err, "open mongo archive")
		}
		s.mongoAdapter = mongoAdapter
		s.archive = repository.NewRunRepositoryMongo(log, mongoAdapter.Database)
	case "sqlite":
		sqlite, err := repository.NewRunRepositorySqlite(cfg.Store.SqlitePath)
		if err != nil {
			return errors.Wrapf(err, "open sqlite archive %s", cfg.Store.SqlitePath)
		}
		s.sqlite = sqlite
		s.archive = sqlite
	}
	return nil
}

// OpenCache connects the redis verdict cache when cache.redis_url is set.
// The cache is optional: an unreachable redis is logged and skipped.
func (s *Stores) OpenCache(ctx context.Context, cfg *bootstrap.Config, log *zap.SugaredLogger) {
	if cfg.Cache.RedisUrl == "" {
		return
	}
	redisAdapter := adapters.NewAdapterRedis(cfg, log)
	if err := redisAdapter.Init(ctx); err != nil {
		log.Warnw("Redis недоступен, кэш вердиктов отключён", "error", err)
		_ = redisAdapter.Close(ctx)
		return
	}
	s.redisAdapter = redisAdapter
	s.cache = repository.NewVerdictCache(redisAdapter.GetClient(), cfg.Cache.TTL, log)
}

// Wire hands the opened stores to the analyzer.
func (s *Stores) Wire(analyzer *analysisUC.Analyzer) {
	if s.cache != nil {
		analyzer.WithCache(s.cache)
	}
	if s.archive != nil {
		analyzer.WithStore(s.archive)
	}
}

func (s *Stores) HasArchive() bool { return s.archive != nil }

func (s *Stores) HasCache() bool { return s.cache != nil }

func (s *Stores) Close(ctx context.Context) {
	if s.mongoAdapter != nil {
		_ = s.mongoAdapter.Close(ctx)
	}
	if s.redisAdapter != nil {
		_ = s.redisAdapter.Close(ctx)
	}
	if s.sqlite != nil {
		_ = s.sqlite.Close()
	}
}
