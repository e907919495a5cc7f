package analysis

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"

	"kata_review/internal/bootstrap"
	"kata_review/internal/domain"
	"kata_review/internal/usecase/katago"
)

// pvLength caps how much of the engine's line goes into a comment.
const pvLength = 8

// Commenter writes the node comment from a verdict, honouring the save
// flags of the config.
type Commenter struct {
	save  bootstrap.SaveConfig
	board domain.BoardSize
}

func NewCommenter(save bootstrap.SaveConfig, board domain.BoardSize) *Commenter {
	return &Commenter{save: save, board: board}
}

// Comment describes the position after move. prev is the verdict for the
// position before it, nil on the first ply.
func (c *Commenter) Comment(move domain.Move, v domain.Verdict, prev *domain.Verdict) string {
	var lines []string

	if c.save.AIWinrate {
		lines = append(lines, fmt.Sprintf("Black winrate: %.1f%%", 100*v.BlackWinrate()))
	}
	lines = append(lines, "Score lead: "+formatLead(v.BlackScoreLead()))
	if balance, ok := katago.TerritoryBalance(v); ok {
		lines = append(lines, "Territory estimate: "+formatLead(balance))
	}
	if c.save.AIVisits {
		lines = append(lines, fmt.Sprintf("Visits: %d", v.Visits))
	}

	if c.save.HumanWinrate && prev != nil {
		before := prev.Winrate
		if prev.PlayerToMove != move.Player {
			before = 1 - before
		}
		after := 1 - v.Winrate
		if v.PlayerToMove == move.Player {
			after = v.Winrate
		}
		swing := after - before
		if math32.Abs(swing) >= 0.001 {
			lines = append(lines, fmt.Sprintf("%s: winrate %+.1f%%", katago.MoveLabel(move, c.board), 100*swing))
		}
	}

	if c.save.AIBranches && v.SuggestedMove != nil {
		best := "Best for " + v.PlayerToMove.String() + ": " + coord(*v.SuggestedMove, c.board)
		if len(v.PrincipalVariation) > 1 {
			pv := v.PrincipalVariation
			if len(pv) > pvLength {
				pv = pv[:pvLength]
			}
			parts := make([]string, 0, len(pv))
			for _, m := range pv {
				parts = append(parts, coord(m, c.board))
			}
			best += " (" + strings.Join(parts, " ") + ")"
		}
		lines = append(lines, best)
	}
	return strings.Join(lines, "\n")
}

func coord(m domain.Move, board domain.BoardSize) string {
	pair, err := katago.EncodeMove(m, board)
	if err != nil {
		return m.String()
	}
	return pair[1]
}

func formatLead(lead float32) string {
	switch {
	case lead > 0:
		return fmt.Sprintf("B+%.1f", lead)
	case lead < 0:
		return fmt.Sprintf("W+%.1f", -lead)
	}
	return "even"
}
