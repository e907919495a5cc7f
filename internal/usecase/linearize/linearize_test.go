package linearize

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kata_review/internal/domain"
	"kata_review/internal/domain/sgf"
	ownErrors "kata_review/internal/errors"
	"kata_review/internal/usecase/record"
)

var board19 = domain.Square(19)

func parse(t *testing.T, text string) *sgf.GameTree {
	t.Helper()
	doc, err := record.Parse(text)
	require.NoError(t, err)
	return doc.Root
}

func TestLinearizeMainLine(t *testing.T) {
	tree := parse(t, "(;GM[1]SZ[19];B[dp];W[pd];B[dd])")

	moves, err := NewLinearizer(board19, nil).Linearize(tree)
	require.NoError(t, err)

	want := domain.MoveSequence{
		domain.Play(domain.Black, 3, 3),
		domain.Play(domain.White, 15, 15),
		domain.Play(domain.Black, 3, 15),
	}
	if diff := cmp.Diff(want, moves); diff != "" {
		t.Errorf("moves mismatch (-want +got):\n%s", diff)
	}
}

func TestLinearizeIgnoresSideBranches(t *testing.T) {
	tree := parse(t, "(;B[dp](;W[pd](;B[dd])(;B[qq]))(;W[aa];B[bb]))")

	moves, err := NewLinearizer(board19, nil).Linearize(tree)
	require.NoError(t, err)
	require.Len(t, moves, 3)
	assert.Equal(t, domain.Play(domain.White, 15, 15), moves[1])
	assert.Equal(t, domain.Play(domain.Black, 3, 15), moves[2])
}

func TestLinearizeSkipsNodesWithoutMoves(t *testing.T) {
	tree := parse(t, "(;GM[1];C[comment only];B[dp];C[another])")

	moves, err := NewLinearizer(board19, nil).Linearize(tree)
	require.NoError(t, err)
	assert.Len(t, moves, 1)
}

func TestLinearizeRootOnly(t *testing.T) {
	moves, err := NewLinearizer(board19, nil).Linearize(parse(t, "(;GM[1]SZ[19])"))
	require.NoError(t, err)
	assert.Empty(t, moves)
}

func TestLinearizePasses(t *testing.T) {
	moves, err := NewLinearizer(board19, nil).Linearize(parse(t, "(;B[];W[tt];B[aa])"))
	require.NoError(t, err)
	require.Len(t, moves, 3)
	assert.True(t, moves[0].IsPass())
	assert.Equal(t, domain.Black, moves[0].Player)
	assert.True(t, moves[1].IsPass())
	assert.Equal(t, domain.White, moves[1].Player)
	assert.Equal(t, domain.Point{X: 0, Y: 18}, moves[2].Point)
}

func TestWalkSetupStones(t *testing.T) {
	line, err := NewLinearizer(board19, nil).Walk(parse(t, "(;AB[aa][bb];AW[cc];B[dd])"))
	require.NoError(t, err)

	want := []domain.Move{
		domain.Play(domain.Black, 0, 18),
		domain.Play(domain.Black, 1, 17),
		domain.Play(domain.White, 2, 16),
	}
	if diff := cmp.Diff(want, line.Setup); diff != "" {
		t.Errorf("setup mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, line.Moves, 1)
}

func TestWalkRejectsLateSetupStones(t *testing.T) {
	for name, tc := range map[string]struct {
		text string
		ply  int
	}{
		"after first move": {"(;AB[aa];B[dd];AW[ee];W[pp])", 1},
		"beside a move":    {"(;B[dd];W[pp]AB[ee])", 1},
		"bad setup point":  {"(;AB[zz];B[dd])", 0},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewLinearizer(board19, nil).Walk(parse(t, tc.text))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ownErrors.ErrMalformedRecord))

			var plyErr *ownErrors.PlyError
			require.True(t, errors.As(err, &plyErr))
			assert.Equal(t, tc.ply, plyErr.Ply)
		})
	}
}

func TestLinearizeOutOfBounds(t *testing.T) {
	tree := parse(t, "(;SZ[9];B[cc];W[jj])")

	_, err := NewLinearizer(domain.Square(9), nil).Linearize(tree)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ownErrors.ErrMalformedRecord))

	var plyErr *ownErrors.PlyError
	require.True(t, errors.As(err, &plyErr))
	assert.Equal(t, 1, plyErr.Ply)
}

func TestLinearizeRejectsAmbiguousNodes(t *testing.T) {
	for name, text := range map[string]string{
		"both colours":  "(;B[aa]W[bb])",
		"two points":    "(;B[aa][bb])",
		"bad point":     "(;B[a])",
		"setup is pass": "(;AB[])",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewLinearizer(board19, nil).Linearize(parse(t, text))
			assert.True(t, errors.Is(err, ownErrors.ErrMalformedRecord))
		})
	}
}

type lastChild struct{}

func (lastChild) Next(t *sgf.GameTree) *sgf.GameTree {
	if len(t.Children) == 0 {
		return nil
	}
	return t.Children[len(t.Children)-1]
}

func TestCustomBranchSelector(t *testing.T) {
	tree := parse(t, "(;B[dp](;W[pd])(;W[aa]))")

	moves, err := NewLinearizer(board19, lastChild{}).Linearize(tree)
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, domain.Play(domain.White, 0, 18), moves[1])
}

func TestParsePoint(t *testing.T) {
	p, pass, err := ParsePoint("pd", board19)
	require.NoError(t, err)
	assert.False(t, pass)
	assert.Equal(t, domain.Point{X: 15, Y: 15}, p)

	// "tt" is a regular point on large boards
	p, pass, err = ParsePoint("tt", domain.Square(21))
	require.NoError(t, err)
	assert.False(t, pass)
	assert.Equal(t, domain.Point{X: 19, Y: 1}, p)
}
