// Package linearize turns an SGF game tree into the ordered list of moves
// along one line of play.
//
// Only the line chosen by a BranchSelector is followed. The default,
// PrincipalVariation, takes the first child of every tree and never looks
// at sibling variations: analysing side branches is deliberately not
// supported.
package linearize

import (
	"github.com/pkg/errors"

	"kata_review/internal/domain"
	"kata_review/internal/domain/sgf"
	ownErrors "kata_review/internal/errors"
)

// BranchSelector picks the continuation of a game tree.
type BranchSelector interface {
	// Next returns the subtree to follow after t, or nil when the line ends.
	Next(t *sgf.GameTree) *sgf.GameTree
}

// PrincipalVariation follows the first child only.
type PrincipalVariation struct{}

func (PrincipalVariation) Next(t *sgf.GameTree) *sgf.GameTree {
	if len(t.Children) == 0 {
		return nil
	}
	return t.Children[0]
}

// Line is what a walk over the record yields.
type Line struct {
	// Setup holds AB/AW stones placed before the first move. Setup stones
	// anywhere later make the record unusable.
	Setup []domain.Move
	Moves domain.MoveSequence
}

type Linearizer struct {
	board    domain.BoardSize
	selector BranchSelector
}

func NewLinearizer(board domain.BoardSize, selector BranchSelector) *Linearizer {
	if selector == nil {
		selector = PrincipalVariation{}
	}
	return &Linearizer{board: board, selector: selector}
}

// Linearize returns one move per node carrying B or W, in play order.
func (l *Linearizer) Linearize(tree *sgf.GameTree) (domain.MoveSequence, error) {
	line, err := l.Walk(tree)
	if err != nil {
		return nil, err
	}
	return line.Moves, nil
}

func (l *Linearizer) Walk(tree *sgf.GameTree) (Line, error) {
	var line Line
	for t := tree; t != nil; t = l.selector.Next(t) {
		for _, node := range t.Nodes {
			ply := len(line.Moves)
			stones, err := l.setupStones(node)
			if err != nil {
				return Line{}, &ownErrors.PlyError{Ply: ply, Err: err}
			}
			if len(stones) > 0 {
				// queries carry setup only as initial stones
				if ply > 0 {
					return Line{}, &ownErrors.PlyError{Ply: ply, Err: errors.Wrapf(ownErrors.ErrMalformedRecord,
						"%d setup stones after move %d", len(stones), ply)}
				}
				line.Setup = append(line.Setup, stones...)
			}

			move, ok, err := l.nodeMove(node)
			if err != nil {
				return Line{}, &ownErrors.PlyError{Ply: ply, Err: err}
			}
			if ok {
				line.Moves = append(line.Moves, move)
			}
		}
	}
	return line, nil
}

func (l *Linearizer) nodeMove(node sgf.Node) (domain.Move, bool, error) {
	b, hasB := node.Properties["B"]
	w, hasW := node.Properties["W"]
	switch {
	case hasB && hasW:
		return domain.Move{}, false, errors.Wrap(ownErrors.ErrMalformedRecord, "node has both B and W")
	case hasB:
		return l.move(domain.Black, b)
	case hasW:
		return l.move(domain.White, w)
	}
	return domain.Move{}, false, nil
}

func (l *Linearizer) move(player domain.Player, values []string) (domain.Move, bool, error) {
	if len(values) != 1 {
		return domain.Move{}, false, errors.Wrapf(ownErrors.ErrMalformedRecord, "%v move with %d values", player, len(values))
	}
	pt, pass, err := ParsePoint(values[0], l.board)
	if err != nil {
		return domain.Move{}, false, err
	}
	if pass {
		return domain.PassMove(player), true, nil
	}
	return domain.Move{Player: player, Point: pt}, true, nil
}

func (l *Linearizer) setupStones(node sgf.Node) ([]domain.Move, error) {
	var stones []domain.Move
	for _, prop := range []struct {
		key    string
		player domain.Player
	}{{"AB", domain.Black}, {"AW", domain.White}} {
		for _, v := range node.Properties[prop.key] {
			pt, pass, err := ParsePoint(v, l.board)
			if err != nil {
				return nil, err
			}
			if pass {
				return nil, errors.Wrapf(ownErrors.ErrMalformedRecord, "%s[%s] is not a point", prop.key, v)
			}
			stones = append(stones, domain.Move{Player: prop.player, Point: pt})
		}
	}
	return stones, nil
}

// ParsePoint decodes an SGF point ("pd"). An empty value, or "tt" on boards
// up to 19x19, is a pass. SGF rows count from the top; the returned point
// counts from the bottom.
func ParsePoint(v string, board domain.BoardSize) (domain.Point, bool, error) {
	if v == "" || (v == "tt" && board.X <= 19 && board.Y <= 19) {
		return domain.Point{}, true, nil
	}
	if len(v) != 2 {
		return domain.Point{}, false, errors.Wrapf(ownErrors.ErrMalformedRecord, "bad point %q", v)
	}
	col, okC := letterIndex(v[0])
	row, okR := letterIndex(v[1])
	if !okC || !okR || col >= board.X || row >= board.Y {
		return domain.Point{}, false, errors.Wrapf(ownErrors.ErrMalformedRecord,
			"point %q is outside %dx%d board", v, board.X, board.Y)
	}
	return domain.Point{X: col, Y: board.Y - 1 - row}, false, nil
}

func letterIndex(c byte) (int, bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return int(c - 'a'), true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 26, true
	}
	return 0, false
}
