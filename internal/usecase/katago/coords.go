package katago

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"kata_review/internal/domain"
	ownErrors "kata_review/internal/errors"
)

// GTP column letters; "I" is skipped.
const columns = "ABCDEFGHJKLMNOPQRSTUVWXYZ"

const passCoordinate = "pass"

// EncodeCoordinate renders a point the way KataGo expects it: column letter
// plus 1-based row counted from the bottom, e.g. (3,3) -> "D4".
func EncodeCoordinate(p domain.Point, board domain.BoardSize) (string, error) {
	if !board.Contains(p) || p.X >= len(columns) {
		return "", errors.Wrapf(ownErrors.ErrCoordinateOutOfRange, "(%d,%d) on %dx%d", p.X, p.Y, board.X, board.Y)
	}
	return string(columns[p.X]) + strconv.Itoa(p.Y+1), nil
}

// DecodeCoordinate is the inverse of EncodeCoordinate.
func DecodeCoordinate(s string, board domain.BoardSize) (domain.Point, error) {
	if len(s) < 2 {
		return domain.Point{}, errors.Wrapf(ownErrors.ErrCoordinateOutOfRange, "coordinate %q too short", s)
	}
	x := strings.IndexByte(columns, upper(s[0]))
	if x < 0 {
		return domain.Point{}, errors.Wrapf(ownErrors.ErrCoordinateOutOfRange, "bad column in %q", s)
	}
	row, err := strconv.Atoi(s[1:])
	if err != nil {
		return domain.Point{}, errors.Wrapf(ownErrors.ErrCoordinateOutOfRange, "bad row in %q", s)
	}
	p := domain.Point{X: x, Y: row - 1}
	if !board.Contains(p) {
		return domain.Point{}, errors.Wrapf(ownErrors.ErrCoordinateOutOfRange, "%q on %dx%d", s, board.X, board.Y)
	}
	return p, nil
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// EncodeMove gives the [color, coordinate] pair used in "moves".
func EncodeMove(m domain.Move, board domain.BoardSize) ([2]string, error) {
	if m.IsPass() {
		return [2]string{m.Player.String(), passCoordinate}, nil
	}
	coord, err := EncodeCoordinate(m.Point, board)
	if err != nil {
		return [2]string{}, err
	}
	return [2]string{m.Player.String(), coord}, nil
}

// DecodeMove reads an engine move string for player.
func DecodeMove(player domain.Player, s string, board domain.BoardSize) (domain.Move, error) {
	if strings.EqualFold(s, passCoordinate) {
		return domain.PassMove(player), nil
	}
	p, err := DecodeCoordinate(s, board)
	if err != nil {
		return domain.Move{}, err
	}
	return domain.Move{Player: player, Point: p}, nil
}

// MoveLabel is a human readable form such as "B D4" or "W pass".
func MoveLabel(m domain.Move, board domain.BoardSize) string {
	pair, err := EncodeMove(m, board)
	if err != nil {
		return m.String()
	}
	return pair[0] + " " + pair[1]
}
