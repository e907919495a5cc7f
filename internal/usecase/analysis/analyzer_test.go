package analysis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kata_review/internal/bootstrap"
	"kata_review/internal/domain"
	ownErrors "kata_review/internal/errors"
	"kata_review/internal/usecase/katago"
)

const threeMoveGame = "(;GM[1]FF[4]SZ[19];B[dp];W[pd];B[dd])"

func testConfig() bootstrap.Config {
	return bootstrap.Config{
		Analysis: bootstrap.AnalysisConfig{
			MaxVisits:     500,
			Rules:         "chinese",
			Komi:          7.5,
			BoardSize:     19,
			ReportAs:      bootstrap.ReportSideToMove,
			Authoritative: bootstrap.AuthorityConfig,
		},
		Save: bootstrap.SaveConfig{AIWinrate: true},
	}
}

// lineEngine answers every query with a raw response line, run through the
// real interpreter the way a session would.
type lineEngine struct {
	respond     func(q domain.AnalysisQuery) string
	interpreter *katago.Interpreter
	queries     []domain.AnalysisQuery
}

func newLineEngine(respond func(q domain.AnalysisQuery) string) *lineEngine {
	return &lineEngine{
		respond:     respond,
		interpreter: katago.NewInterpreter(bootstrap.ReportSideToMove, false, zap.NewNop().Sugar()),
	}
}

func (e *lineEngine) Submit(ctx context.Context, q domain.AnalysisQuery) (domain.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return domain.Verdict{}, err
	}
	e.queries = append(e.queries, q)
	return e.interpreter.Interpret([]byte(e.respond(q)), q)
}

func rising(q domain.AnalysisQuery) string {
	n, _ := strconv.Atoi(q.ID)
	return fmt.Sprintf(`{"id":"%d","winrate":%g,"scoreLead":1.0,"visits":500}`, n, 0.5+0.01*float64(n))
}

func TestAnalyzerThreeMoveGame(t *testing.T) {
	engine := newLineEngine(rising)
	analyzer := NewAnalyzer(testConfig(), engine, zap.NewNop().Sugar())

	var observed []int
	run, err := analyzer.RunText(context.Background(), "three.sgf", threeMoveGame, func(n domain.AnnotatedNode) {
		observed = append(observed, n.Ply)
	})
	require.NoError(t, err)

	require.Len(t, run.Nodes, 3)
	for i, want := range []float32{0.50, 0.51, 0.52} {
		node := run.Nodes[i]
		assert.Equal(t, i, node.Ply)
		assert.Equal(t, strconv.Itoa(i), node.Verdict.ID)
		assert.InDelta(t, want, node.Verdict.Winrate, 1e-6)
		assert.NotEmpty(t, node.Comment)
	}
	assert.Equal(t, domain.Play(domain.Black, 3, 3), run.Nodes[0].Move)
	assert.Equal(t, domain.Play(domain.White, 15, 15), run.Nodes[1].Move)
	assert.Equal(t, domain.Play(domain.Black, 3, 15), run.Nodes[2].Move)
	assert.Equal(t, []int{0, 1, 2}, observed)

	require.Len(t, engine.queries, 3)
	for i, q := range engine.queries {
		assert.Len(t, q.MovesSoFar, i+1)
		assert.Equal(t, uint32(500), q.MaxVisits)
	}

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "three.sgf", run.Source)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
}

func TestAnalyzerStopsAtFailingPly(t *testing.T) {
	engine := newLineEngine(func(q domain.AnalysisQuery) string {
		if q.ID == "1" {
			return `{"id":"7","winrate":0.5,"scoreLead":0,"visits":1}`
		}
		return rising(q)
	})
	analyzer := NewAnalyzer(testConfig(), engine, zap.NewNop().Sugar())

	run, err := analyzer.RunText(context.Background(), "", threeMoveGame, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ownErrors.ErrProtocolViolation))

	var plyErr *ownErrors.PlyError
	require.True(t, errors.As(err, &plyErr))
	assert.Equal(t, 1, plyErr.Ply)
	assert.Len(t, run.Nodes, 1, "nodes before the failure are kept")
	assert.Len(t, engine.queries, 2, "no query after the failure")
}

func TestAnalyzerIncompleteVerdict(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.IncludeOwnership = true
	analyzer := NewAnalyzer(cfg, newLineEngine(rising), zap.NewNop().Sugar())

	_, err := analyzer.RunText(context.Background(), "", threeMoveGame, nil)
	assert.True(t, errors.Is(err, ownErrors.ErrIncompleteVerdict))
	var plyErr *ownErrors.PlyError
	require.True(t, errors.As(err, &plyErr))
	assert.Equal(t, 0, plyErr.Ply)
}

func TestAnalyzerMalformedRecord(t *testing.T) {
	engine := newLineEngine(rising)
	analyzer := NewAnalyzer(testConfig(), engine, zap.NewNop().Sugar())

	for _, text := range []string{"(;B[dp]", "(;SZ[9];B[zz])", "(;KM[x];B[aa])"} {
		_, err := analyzer.RunText(context.Background(), "", text, nil)
		assert.True(t, errors.Is(err, ownErrors.ErrMalformedRecord), text)
	}
	assert.Empty(t, engine.queries)
}

func TestAnalyzerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	analyzer := NewAnalyzer(testConfig(), newLineEngine(rising), zap.NewNop().Sugar())

	_, err := analyzer.RunText(ctx, "", threeMoveGame, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAnalyzerUsesRecordSize(t *testing.T) {
	engine := newLineEngine(rising)
	analyzer := NewAnalyzer(testConfig(), engine, zap.NewNop().Sugar())

	run, err := analyzer.RunText(context.Background(), "", "(;SZ[9]KM[5.5];B[ee];W[cc])", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Square(9), run.Params.BoardSize)
	assert.Equal(t, float32(7.5), run.Params.Komi)
	assert.Equal(t, domain.Play(domain.Black, 4, 4), run.Nodes[0].Move)
	assert.Equal(t, domain.Play(domain.White, 2, 6), run.Nodes[1].Move)
}

func TestAnalyzerSetupStones(t *testing.T) {
	engine := newLineEngine(rising)
	analyzer := NewAnalyzer(testConfig(), engine, zap.NewNop().Sugar())

	run, err := analyzer.RunText(context.Background(), "", "(;AB[dd][pp];W[dp])", nil)
	require.NoError(t, err)
	assert.Len(t, run.InitialStones, 2)
	require.Len(t, engine.queries, 1)
	assert.Len(t, engine.queries[0].InitialStones, 2)
}

type memoryCache struct {
	mu       sync.Mutex
	verdicts map[string]domain.Verdict
	hits     int
}

func cacheKey(q domain.AnalysisQuery) string {
	return fmt.Sprint(q.MovesSoFar, q.Komi, q.Rules)
}

func (c *memoryCache) Get(_ context.Context, q domain.AnalysisQuery) (domain.Verdict, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.verdicts[cacheKey(q)]
	if ok {
		c.hits++
		v.ID = q.ID
	}
	return v, ok, nil
}

func (c *memoryCache) Put(_ context.Context, q domain.AnalysisQuery, v domain.Verdict) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verdicts[cacheKey(q)] = v
	return nil
}

type memoryStore struct {
	runs map[string]domain.Analysis
}

func (s *memoryStore) SaveRun(_ context.Context, run domain.Analysis) error {
	s.runs[run.ID] = run
	return nil
}

func (s *memoryStore) GetRun(_ context.Context, id string) (domain.Analysis, error) {
	run, ok := s.runs[id]
	if !ok {
		return domain.Analysis{}, ownErrors.ErrRunNotFound
	}
	return run, nil
}

func (s *memoryStore) ListRuns(context.Context, int) ([]domain.Analysis, error) {
	var out []domain.Analysis
	for _, run := range s.runs {
		out = append(out, run)
	}
	return out, nil
}

func TestAnalyzerCacheAndStore(t *testing.T) {
	engine := newLineEngine(rising)
	cache := &memoryCache{verdicts: map[string]domain.Verdict{}}
	store := &memoryStore{runs: map[string]domain.Analysis{}}
	analyzer := NewAnalyzer(testConfig(), engine, zap.NewNop().Sugar()).WithCache(cache).WithStore(store)

	first, err := analyzer.RunText(context.Background(), "a.sgf", threeMoveGame, nil)
	require.NoError(t, err)
	second, err := analyzer.RunText(context.Background(), "b.sgf", threeMoveGame, nil)
	require.NoError(t, err)

	assert.Len(t, engine.queries, 3, "second run is served from the cache")
	assert.Equal(t, 3, cache.hits)
	assert.NotEqual(t, first.ID, second.ID)
	for i := range second.Nodes {
		assert.Equal(t, first.Nodes[i].Verdict, second.Nodes[i].Verdict)
	}

	stored, err := analyzer.GetRun(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.sgf", stored.Source)

	runs, err := analyzer.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestAnalyzerWithoutStore(t *testing.T) {
	analyzer := NewAnalyzer(testConfig(), newLineEngine(rising), zap.NewNop().Sugar())
	_, err := analyzer.GetRun(context.Background(), "x")
	assert.True(t, errors.Is(err, ownErrors.ErrRunNotFound))
}
