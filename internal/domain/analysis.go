package domain

import (
	"strings"
	"time"
)

// OutputChannels is the set of optional outputs a query asks the engine for.
type OutputChannels uint8

const (
	Policy OutputChannels = 1 << iota
	Ownership
	PrincipalVariation
)

func (c OutputChannels) Has(ch OutputChannels) bool { return c&ch == ch }

func (c OutputChannels) String() string {
	var parts []string
	if c.Has(Policy) {
		parts = append(parts, "policy")
	}
	if c.Has(Ownership) {
		parts = append(parts, "ownership")
	}
	if c.Has(PrincipalVariation) {
		parts = append(parts, "pv")
	}
	return strings.Join(parts, ",")
}

type AnalysisParams struct {
	Rules            string         `json:"rules" bson:"rules"`
	Komi             float32        `json:"komi" bson:"komi"`
	BoardSize        BoardSize      `json:"board_size" bson:"board_size"`
	MaxVisits        uint32         `json:"max_visits" bson:"max_visits"`
	RequestedOutputs OutputChannels `json:"requested_outputs" bson:"requested_outputs"`
}

type AnalysisQuery struct {
	ID            string
	Ply           int
	MovesSoFar    MoveSequence
	InitialStones []Move
	AnalysisParams
}

// OwnershipGrid holds KataGo's ownership estimate, row-major from the top row,
// +1 meaning the point belongs to the player to move.
type OwnershipGrid struct {
	Width  int       `json:"width" bson:"width"`
	Height int       `json:"height" bson:"height"`
	Values []float32 `json:"values" bson:"values"`
}

// At reads the estimate for a point in board coordinates.
func (o *OwnershipGrid) At(p Point) float32 {
	return o.Values[(o.Height-1-p.Y)*o.Width+p.X]
}

func (o *OwnershipGrid) Rows() [][]float32 {
	rows := make([][]float32, o.Height)
	for i := range rows {
		rows[i] = o.Values[i*o.Width : (i+1)*o.Width]
	}
	return rows
}

type Verdict struct {
	ID string `json:"id" bson:"id"`
	// Winrate and ScoreLead are from the point of view of PlayerToMove.
	Winrate            float32        `json:"winrate" bson:"winrate"`
	ScoreLead          float32        `json:"score_lead" bson:"score_lead"`
	Visits             uint32         `json:"visits" bson:"visits"`
	PlayerToMove       Player         `json:"player_to_move" bson:"player_to_move"`
	SuggestedMove      *Move          `json:"suggested_move,omitempty" bson:"suggested_move,omitempty"`
	PrincipalVariation []Move         `json:"pv,omitempty" bson:"pv,omitempty"`
	Ownership          *OwnershipGrid `json:"ownership,omitempty" bson:"ownership,omitempty"`
	Policy             []float32      `json:"policy,omitempty" bson:"policy,omitempty"`
}

// BlackWinrate returns the winrate seen from Black's side.
func (v Verdict) BlackWinrate() float32 {
	if v.PlayerToMove == Black {
		return v.Winrate
	}
	return 1 - v.Winrate
}

// BlackScoreLead returns the score lead seen from Black's side.
func (v Verdict) BlackScoreLead() float32 {
	if v.PlayerToMove == Black {
		return v.ScoreLead
	}
	return -v.ScoreLead
}

type AnnotatedNode struct {
	Ply     int     `json:"ply" bson:"ply"`
	Move    Move    `json:"move" bson:"move"`
	Verdict Verdict `json:"verdict" bson:"verdict"`
	Comment string  `json:"comment" bson:"comment"`
}

// Analysis is one finished run over a game record.
type Analysis struct {
	ID            string          `json:"id" bson:"_id"`
	Source        string          `json:"source" bson:"source"`
	Params        AnalysisParams  `json:"params" bson:"params"`
	InitialStones []Move          `json:"initial_stones,omitempty" bson:"initial_stones,omitempty"`
	Nodes         []AnnotatedNode `json:"nodes" bson:"nodes"`
	StartedAt     time.Time       `json:"started_at" bson:"started_at"`
	FinishedAt    time.Time       `json:"finished_at" bson:"finished_at"`
}
