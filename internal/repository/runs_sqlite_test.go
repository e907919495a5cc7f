package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kata_review/internal/domain"
	ownErrors "kata_review/internal/errors"
)

func testRun(id string, started time.Time) domain.Analysis {
	best := domain.Play(domain.White, 15, 3)
	return domain.Analysis{
		ID:     id,
		Source: "game.sgf",
		Params: domain.AnalysisParams{
			Rules:            "japanese",
			Komi:             6.5,
			BoardSize:        domain.Square(19),
			MaxVisits:        200,
			RequestedOutputs: domain.PrincipalVariation,
		},
		InitialStones: []domain.Move{domain.Play(domain.Black, 3, 3)},
		Nodes: []domain.AnnotatedNode{{
			Ply:  0,
			Move: domain.Play(domain.Black, 15, 15),
			Verdict: domain.Verdict{
				ID:            "0",
				Winrate:       0.45,
				ScoreLead:     -1.5,
				Visits:        200,
				PlayerToMove:  domain.White,
				SuggestedMove: &best,
			},
			Comment: "Black winrate: 55.0%",
		}},
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
	}
}

func TestRunRepositorySqlite(t *testing.T) {
	repo, err := NewRunRepositorySqlite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer repo.Close()
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	first := testRun("run-1", base)
	second := testRun("run-2", base.Add(time.Minute))
	require.NoError(t, repo.SaveRun(ctx, first))
	require.NoError(t, repo.SaveRun(ctx, second))

	got, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	if diff := cmp.Diff(first, got); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Empty(t, runs[0].Nodes)
	assert.Equal(t, "japanese", runs[0].Params.Rules)

	_, err = repo.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ownErrors.ErrRunNotFound))
}

func TestRunRepositorySqliteReplace(t *testing.T) {
	repo, err := NewRunRepositorySqlite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer repo.Close()
	ctx := context.Background()

	run := testRun("run-1", time.Now().UTC())
	require.NoError(t, repo.SaveRun(ctx, run))
	run.Source = "renamed.sgf"
	require.NoError(t, repo.SaveRun(ctx, run))

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "renamed.sgf", runs[0].Source)
}

func TestVerdictKey(t *testing.T) {
	a := testQuery(3)
	b := testQuery(3)
	b.ID = "other"

	ka, err := verdictKey(a)
	require.NoError(t, err)
	kb, err := verdictKey(b)
	require.NoError(t, err)
	assert.Equal(t, ka, kb, "the id is not part of the position")

	c := testQuery(3)
	c.Komi = 6.5
	kc, err := verdictKey(c)
	require.NoError(t, err)
	assert.NotEqual(t, ka, kc)

	kd, err := verdictKey(testQuery(4))
	require.NoError(t, err)
	assert.NotEqual(t, ka, kd)
}

func TestRunRepositorySqliteOpenFailure(t *testing.T) {
	// a directory cannot be opened as a database file
	repo, err := NewRunRepositorySqlite(t.TempDir())
	assert.Error(t, err)
	assert.Nil(t, repo)
}

func TestMigrateOnClosedDB(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.Error(t, migrate(db))
}
