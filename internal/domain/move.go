package domain

import (
	"fmt"
	"strings"
)

type Player int

const (
	Black Player = iota
	White
)

func (p Player) String() string {
	if p == White {
		return "W"
	}
	return "B"
}

func (p Player) Opponent() Player {
	if p == White {
		return Black
	}
	return White
}

// ParsePlayer понимает "B"/"W" в любом регистре, а также "black"/"white".
func ParsePlayer(s string) (Player, error) {
	switch strings.ToLower(s) {
	case "b", "black":
		return Black, nil
	case "w", "white":
		return White, nil
	}
	return Black, fmt.Errorf("unknown player %q", s)
}

func (p Player) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Player) UnmarshalText(text []byte) error {
	parsed, err := ParsePlayer(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Point is a zero-based board coordinate. Y grows from the bottom edge,
// the same way GTP rows do.
type Point struct {
	X int `json:"x" bson:"x"`
	Y int `json:"y" bson:"y"`
}

type BoardSize struct {
	X int `json:"x" bson:"x"`
	Y int `json:"y" bson:"y"`
}

func Square(n int) BoardSize { return BoardSize{X: n, Y: n} }

func (b BoardSize) Contains(p Point) bool {
	return p.X >= 0 && p.X < b.X && p.Y >= 0 && p.Y < b.Y
}

func (b BoardSize) Area() int { return b.X * b.Y }

func (b BoardSize) String() string {
	if b.X == b.Y {
		return fmt.Sprintf("%d", b.X)
	}
	return fmt.Sprintf("%d:%d", b.X, b.Y)
}

// Move is a stone placement or a pass.
type Move struct {
	Player Player `json:"player" bson:"player"`
	Point  Point  `json:"point" bson:"point"`
	Pass   bool   `json:"pass,omitempty" bson:"pass,omitempty"`
}

func Play(p Player, x, y int) Move {
	return Move{Player: p, Point: Point{X: x, Y: y}}
}

func PassMove(p Player) Move {
	return Move{Player: p, Pass: true}
}

func (m Move) IsPass() bool { return m.Pass }

func (m Move) String() string {
	if m.Pass {
		return m.Player.String() + " pass"
	}
	return fmt.Sprintf("%v (%d,%d)", m.Player, m.Point.X, m.Point.Y)
}

// MoveSequence is the principal line from the start of the game.
type MoveSequence []Move

// Prefix returns the moves through ply (inclusive). The result has its
// capacity clipped, so appending to it never writes into s.
func (s MoveSequence) Prefix(ply int) MoveSequence {
	n := ply + 1
	if n > len(s) {
		n = len(s)
	}
	if n < 0 {
		n = 0
	}
	return s[:n:n]
}

// ToMove returns the player who moves after the last move of s.
func (s MoveSequence) ToMove() Player {
	if len(s) == 0 {
		return Black
	}
	return s[len(s)-1].Player.Opponent()
}
