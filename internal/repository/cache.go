package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stdErrors "errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"kata_review/internal/domain"
)

// VerdictCache remembers verdicts by position and search settings, so that
// re-running a game or a shared opening does not cost engine time.
type VerdictCache struct {
	redis *redis.Client
	ttl   time.Duration
	log   *zap.SugaredLogger
}

func NewVerdictCache(client *redis.Client, ttl time.Duration, log *zap.SugaredLogger) *VerdictCache {
	return &VerdictCache{redis: client, ttl: ttl, log: log}
}

type cacheKey struct {
	Rules   string                `json:"r"`
	Komi    float32               `json:"k"`
	Board   domain.BoardSize      `json:"b"`
	Visits  uint32                `json:"v"`
	Outputs domain.OutputChannels `json:"o"`
	Setup   []domain.Move         `json:"s,omitempty"`
	Moves   domain.MoveSequence   `json:"m"`
}

func verdictKey(q domain.AnalysisQuery) (string, error) {
	raw, err := json.Marshal(cacheKey{
		Rules:   q.Rules,
		Komi:    q.Komi,
		Board:   q.BoardSize,
		Visits:  q.MaxVisits,
		Outputs: q.RequestedOutputs,
		Setup:   q.InitialStones,
		Moves:   q.MovesSoFar,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return "verdict:" + hex.EncodeToString(sum[:]), nil
}

// Get returns the cached verdict re-keyed to q.ID.
func (c *VerdictCache) Get(ctx context.Context, q domain.AnalysisQuery) (domain.Verdict, bool, error) {
	key, err := verdictKey(q)
	if err != nil {
		return domain.Verdict{}, false, err
	}
	raw, err := c.redis.Get(ctx, key).Bytes()
	if stdErrors.Is(err, redis.Nil) {
		return domain.Verdict{}, false, nil
	}
	if err != nil {
		return domain.Verdict{}, false, err
	}
	var v domain.Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		c.log.Warnw("dropping unreadable cached verdict", "key", key, "error", err)
		return domain.Verdict{}, false, nil
	}
	v.ID = q.ID
	return v, true, nil
}

func (c *VerdictCache) Put(ctx context.Context, q domain.AnalysisQuery, v domain.Verdict) error {
	key, err := verdictKey(q)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key, raw, c.ttl).Err()
}
