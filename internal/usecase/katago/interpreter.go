package katago

import (
	"encoding/json"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorgonia.org/vecf32"

	"kata_review/internal/bootstrap"
	"kata_review/internal/domain"
	ownErrors "kata_review/internal/errors"
)

// Interpreter turns one response line into a verdict for the query that
// produced it.
type Interpreter struct {
	reportAs string
	tolerate bool
	log      *zap.SugaredLogger
}

// NewInterpreter: reportAs is the perspective the engine reports winrates
// in (bootstrap.ReportBlack etc). With tolerate set, a missing optional
// channel (policy, ownership, pv) is logged instead of failing.
func NewInterpreter(reportAs string, tolerate bool, log *zap.SugaredLogger) *Interpreter {
	if reportAs == "" {
		reportAs = bootstrap.ReportSideToMove
	}
	return &Interpreter{reportAs: reportAs, tolerate: tolerate, log: log}
}

func (i *Interpreter) Interpret(line []byte, q domain.AnalysisQuery) (domain.Verdict, error) {
	var resp domain.AnalysisResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return domain.Verdict{}, errors.Wrapf(ownErrors.ErrProtocolViolation, "undecodable response: %v", err)
	}
	if resp.ID != q.ID {
		return domain.Verdict{}, errors.Wrapf(ownErrors.ErrProtocolViolation, "response id %q, query id %q", resp.ID, q.ID)
	}
	if resp.Error != "" {
		return domain.Verdict{}, errors.Wrapf(ownErrors.ErrProtocolViolation, "engine rejected query %s: %s (field %q)", q.ID, resp.Error, resp.Field)
	}
	if resp.Warning != "" {
		i.log.Warnw("engine warning", "id", q.ID, "warning", resp.Warning, "field", resp.Field)
		if !resp.HasAnalysis() {
			return domain.Verdict{}, errors.Wrapf(ownErrors.ErrEngineWarning, "query %s: %s", q.ID, resp.Warning)
		}
	}

	winrate, scoreLead, visits := resp.Winrate, resp.ScoreLead, resp.Visits
	toMove := q.MovesSoFar.ToMove()
	if root := resp.RootInfo; root != nil {
		if winrate == nil {
			winrate = root.Winrate
		}
		if scoreLead == nil {
			scoreLead = root.ScoreLead
		}
		if visits == nil {
			visits = root.Visits
		}
		if root.CurrentPlayer != "" {
			p, err := domain.ParsePlayer(root.CurrentPlayer)
			if err != nil {
				return domain.Verdict{}, errors.Wrap(ownErrors.ErrProtocolViolation, err.Error())
			}
			toMove = p
		}
	}
	switch {
	case winrate == nil:
		return domain.Verdict{}, errors.Wrapf(ownErrors.ErrIncompleteVerdict, "query %s: no winrate", q.ID)
	case scoreLead == nil:
		return domain.Verdict{}, errors.Wrapf(ownErrors.ErrIncompleteVerdict, "query %s: no scoreLead", q.ID)
	case visits == nil:
		return domain.Verdict{}, errors.Wrapf(ownErrors.ErrIncompleteVerdict, "query %s: no visits", q.ID)
	}

	flip := i.flips(toMove)
	v := domain.Verdict{
		ID:           q.ID,
		Winrate:      *winrate,
		ScoreLead:    *scoreLead,
		Visits:       *visits,
		PlayerToMove: toMove,
	}
	if flip {
		v.Winrate = 1 - v.Winrate
		v.ScoreLead = -v.ScoreLead
	}

	if err := i.readPV(&v, resp, q, toMove); err != nil {
		return domain.Verdict{}, err
	}
	if err := i.readOwnership(&v, resp, q, flip); err != nil {
		return domain.Verdict{}, err
	}
	if err := i.readPolicy(&v, resp, q); err != nil {
		return domain.Verdict{}, err
	}
	return v, nil
}

// flips reports whether numbers arrive from the side opposite toMove.
func (i *Interpreter) flips(toMove domain.Player) bool {
	switch i.reportAs {
	case bootstrap.ReportBlack:
		return toMove == domain.White
	case bootstrap.ReportWhite:
		return toMove == domain.Black
	}
	return false
}

func (i *Interpreter) missing(q domain.AnalysisQuery, ch domain.OutputChannels) error {
	if !q.RequestedOutputs.Has(ch) {
		return nil
	}
	if i.tolerate {
		i.log.Warnw("engine response lacks requested output", "id", q.ID, "output", ch.String())
		return nil
	}
	return errors.Wrapf(ownErrors.ErrIncompleteVerdict, "query %s: no %s", q.ID, ch)
}

func (i *Interpreter) readPV(v *domain.Verdict, resp domain.AnalysisResponse, q domain.AnalysisQuery, toMove domain.Player) error {
	if len(resp.MoveInfos) == 0 {
		return i.missing(q, domain.PrincipalVariation)
	}
	best := resp.MoveInfos[0]
	for _, mi := range resp.MoveInfos {
		if mi.Order == 0 {
			best = mi
			break
		}
	}
	move, err := DecodeMove(toMove, best.Move, q.BoardSize)
	if err != nil {
		return errors.Wrapf(ownErrors.ErrProtocolViolation, "suggested move %q: %v", best.Move, err)
	}
	v.SuggestedMove = &move

	player := toMove
	for _, s := range best.PV {
		m, err := DecodeMove(player, s, q.BoardSize)
		if err != nil {
			return errors.Wrapf(ownErrors.ErrProtocolViolation, "pv move %q: %v", s, err)
		}
		v.PrincipalVariation = append(v.PrincipalVariation, m)
		player = player.Opponent()
	}
	return nil
}

func (i *Interpreter) readOwnership(v *domain.Verdict, resp domain.AnalysisResponse, q domain.AnalysisQuery, flip bool) error {
	if len(resp.Ownership) == 0 {
		return i.missing(q, domain.Ownership)
	}
	if len(resp.Ownership) != q.BoardSize.Area() {
		return errors.Wrapf(ownErrors.ErrProtocolViolation, "ownership has %d values for %dx%d board",
			len(resp.Ownership), q.BoardSize.X, q.BoardSize.Y)
	}
	values := make([]float32, len(resp.Ownership))
	copy(values, resp.Ownership)
	if flip {
		vecf32.Scale(values, -1)
	}
	v.Ownership = &domain.OwnershipGrid{Width: q.BoardSize.X, Height: q.BoardSize.Y, Values: values}
	return nil
}

// Policy has one entry per point plus a trailing pass entry.
func (i *Interpreter) readPolicy(v *domain.Verdict, resp domain.AnalysisResponse, q domain.AnalysisQuery) error {
	if len(resp.Policy) == 0 {
		return i.missing(q, domain.Policy)
	}
	if len(resp.Policy) != q.BoardSize.Area()+1 {
		return errors.Wrapf(ownErrors.ErrProtocolViolation, "policy has %d values for %dx%d board",
			len(resp.Policy), q.BoardSize.X, q.BoardSize.Y)
	}
	v.Policy = append([]float32(nil), resp.Policy...)
	return nil
}

// TerritoryBalance sums the ownership estimate, giving the expected point
// balance on the board for Black (positive) or White (negative).
func TerritoryBalance(v domain.Verdict) (float32, bool) {
	if v.Ownership == nil {
		return 0, false
	}
	sum := vecf32.Sum(v.Ownership.Values)
	if v.PlayerToMove == domain.White {
		sum = -sum
	}
	return sum, true
}
