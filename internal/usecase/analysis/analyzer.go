// Package analysis drives a whole game record through the engine: it
// linearizes the record, queries every ply in order and assembles the
// annotated nodes.
package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"kata_review/internal/bootstrap"
	"kata_review/internal/domain"
	"kata_review/internal/domain/sgf"
	ownErrors "kata_review/internal/errors"
	"kata_review/internal/usecase/katago"
	"kata_review/internal/usecase/linearize"
	"kata_review/internal/usecase/record"
)

type Engine interface {
	Submit(ctx context.Context, q domain.AnalysisQuery) (domain.Verdict, error)
}

type VerdictCache interface {
	Get(ctx context.Context, q domain.AnalysisQuery) (domain.Verdict, bool, error)
	Put(ctx context.Context, q domain.AnalysisQuery, v domain.Verdict) error
}

type RunStore interface {
	SaveRun(ctx context.Context, run domain.Analysis) error
	GetRun(ctx context.Context, id string) (domain.Analysis, error)
	ListRuns(ctx context.Context, limit int) ([]domain.Analysis, error)
}

// Observer is told about every node as soon as it is assembled.
type Observer func(node domain.AnnotatedNode)

// Analyzer is the single worker of the pipeline. Runs are serialized: a
// second Run waits until the first one has finished with the engine.
type Analyzer struct {
	analysis bootstrap.AnalysisConfig
	save     bootstrap.SaveConfig
	engine   Engine
	cache    VerdictCache
	store    RunStore
	log      *zap.SugaredLogger

	mu sync.Mutex
}

func NewAnalyzer(cfg bootstrap.Config, engine Engine, log *zap.SugaredLogger) *Analyzer {
	return &Analyzer{
		analysis: cfg.Analysis,
		save:     cfg.Save,
		engine:   engine,
		log:      log,
	}
}

func (a *Analyzer) WithCache(cache VerdictCache) *Analyzer {
	a.cache = cache
	return a
}

func (a *Analyzer) WithStore(store RunStore) *Analyzer {
	a.store = store
	return a
}

// RunText parses an SGF document and analyses its first game tree.
func (a *Analyzer) RunText(ctx context.Context, source, text string, observe Observer) (domain.Analysis, error) {
	doc, err := record.Parse(text)
	if err != nil {
		return domain.Analysis{}, err
	}
	return a.Run(ctx, source, doc.Root, observe)
}

// Run analyses every position of the record's main line. On failure the
// returned error is a *errors.PlyError naming the ply that could not be
// analysed, except for failures that happen before the first query.
func (a *Analyzer) Run(ctx context.Context, source string, tree *sgf.GameTree, observe Observer) (domain.Analysis, error) {
	if tree == nil {
		return domain.Analysis{}, errors.Wrap(ownErrors.ErrMalformedRecord, "empty record")
	}
	info, err := record.ReadInfo(tree)
	if err != nil {
		return domain.Analysis{}, err
	}
	params := ResolveParams(a.analysis, info)

	line, err := linearize.NewLinearizer(params.BoardSize, nil).Walk(tree)
	if err != nil {
		return domain.Analysis{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	run := domain.Analysis{
		ID:            uuid.NewString(),
		Source:        source,
		Params:        params,
		InitialStones: line.Setup,
		StartedAt:     time.Now(),
	}
	log := a.log.With("run", run.ID, "source", source)
	log.Infow("analysis started", "moves", len(line.Moves), "rules", params.Rules,
		"komi", params.Komi, "board", params.BoardSize.String(), "visits", params.MaxVisits)

	encoder := katago.NewEncoder(params, line.Setup)
	assembler := NewAssembler(NewCommenter(a.save, params.BoardSize))

	fail := func(ply int, err error) (domain.Analysis, error) {
		log.Errorw("analysis stopped", "ply", ply, "error", err)
		run.Nodes = assembler.Nodes()
		return run, &ownErrors.PlyError{Ply: ply, Err: err}
	}

	for ply, move := range line.Moves {
		q, err := encoder.Encode(ply, line.Moves.Prefix(ply))
		if err != nil {
			return fail(ply, err)
		}
		v, err := a.verdict(ctx, q)
		if err != nil {
			return fail(ply, err)
		}
		node, err := assembler.Append(move, v)
		if err != nil {
			return fail(ply, err)
		}
		if observe != nil {
			observe(node)
		}
	}

	run.Nodes = assembler.Nodes()
	run.FinishedAt = time.Now()
	log.Infow("analysis finished", "nodes", len(run.Nodes), "took", run.FinishedAt.Sub(run.StartedAt).String())

	if a.store != nil {
		if err := a.store.SaveRun(ctx, run); err != nil {
			return run, errors.Wrap(err, "save run")
		}
	}
	return run, nil
}

func (a *Analyzer) verdict(ctx context.Context, q domain.AnalysisQuery) (domain.Verdict, error) {
	if a.cache != nil {
		v, ok, err := a.cache.Get(ctx, q)
		if err != nil {
			a.log.Warnw("verdict cache unavailable", "id", q.ID, "error", err)
		}
		if ok {
			return v, nil
		}
	}

	v, err := a.engine.Submit(ctx, q)
	if err != nil {
		return domain.Verdict{}, err
	}

	if a.cache != nil {
		if err := a.cache.Put(ctx, q, v); err != nil {
			a.log.Warnw("failed to cache verdict", "id", q.ID, "error", err)
		}
	}
	return v, nil
}

// GetRun looks up an archived run.
func (a *Analyzer) GetRun(ctx context.Context, id string) (domain.Analysis, error) {
	if a.store == nil {
		return domain.Analysis{}, ownErrors.ErrRunNotFound
	}
	return a.store.GetRun(ctx, id)
}

func (a *Analyzer) ListRuns(ctx context.Context, limit int) ([]domain.Analysis, error) {
	if a.store == nil {
		return nil, nil
	}
	return a.store.ListRuns(ctx, limit)
}
