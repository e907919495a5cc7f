package katago

import (
	"strconv"

	"github.com/pkg/errors"

	"kata_review/internal/domain"
)

// Encoder builds one analysis query per ply. Params are fixed for the whole
// game.
type Encoder struct {
	params        domain.AnalysisParams
	initialStones []domain.Move
}

func NewEncoder(params domain.AnalysisParams, initialStones []domain.Move) *Encoder {
	return &Encoder{params: params, initialStones: initialStones}
}

// Encode builds the query for ply from the prefix that ends with that ply.
// The query id is the ply index.
func (e *Encoder) Encode(ply int, prefix domain.MoveSequence) (domain.AnalysisQuery, error) {
	if ply < 0 || len(prefix) != ply+1 {
		return domain.AnalysisQuery{}, errors.Errorf("prefix for ply %d has %d moves", ply, len(prefix))
	}
	for _, m := range prefix {
		if _, err := EncodeMove(m, e.params.BoardSize); err != nil {
			return domain.AnalysisQuery{}, err
		}
	}
	for _, m := range e.initialStones {
		if _, err := EncodeMove(m, e.params.BoardSize); err != nil {
			return domain.AnalysisQuery{}, err
		}
	}
	return domain.AnalysisQuery{
		ID:             strconv.Itoa(ply),
		Ply:            ply,
		MovesSoFar:     prefix,
		InitialStones:  e.initialStones,
		AnalysisParams: e.params,
	}, nil
}

// Request converts a query to its wire form.
func Request(q domain.AnalysisQuery) (domain.AnalysisRequest, error) {
	board := q.BoardSize
	moves := make([][2]string, 0, len(q.MovesSoFar))
	for _, m := range q.MovesSoFar {
		pair, err := EncodeMove(m, board)
		if err != nil {
			return domain.AnalysisRequest{}, err
		}
		moves = append(moves, pair)
	}

	var stones [][2]string
	for _, m := range q.InitialStones {
		pair, err := EncodeMove(m, board)
		if err != nil {
			return domain.AnalysisRequest{}, err
		}
		stones = append(stones, pair)
	}

	return domain.AnalysisRequest{
		ID:               q.ID,
		Moves:            moves,
		InitialStones:    stones,
		Rules:            q.Rules,
		Komi:             q.Komi,
		BoardXSize:       board.X,
		BoardYSize:       board.Y,
		MaxVisits:        q.MaxVisits,
		IncludePolicy:    q.RequestedOutputs.Has(domain.Policy),
		IncludeOwnership: q.RequestedOutputs.Has(domain.Ownership),
	}, nil
}
