// Package report renders a finished analysis run as YAML, PDF or a
// Graphviz graph of the main line.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/chewxy/math32"

	"kata_review/internal/domain"
	"kata_review/internal/usecase/katago"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatPDF  Format = "pdf"
	FormatDOT  Format = "dot"
)

// ParseFormat accepts the format names used on the command line.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatYAML, FormatPDF, FormatDOT:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Ext is the file extension for the format, with the dot.
func (f Format) Ext() string {
	if f == FormatDOT {
		return ".dot"
	}
	return "." + string(f)
}

func Write(w io.Writer, f Format, run domain.Analysis) error {
	switch f {
	case FormatYAML:
		return WriteYAML(w, run)
	case FormatPDF:
		return WritePDF(w, run)
	case FormatDOT:
		return WriteDOT(w, run)
	}
	return fmt.Errorf("unknown report format %q", f)
}

// mistakeThreshold is the winrate loss, for the player who moved, above
// which a move is flagged.
const mistakeThreshold = 0.1

type row struct {
	Ply          int
	Move         string
	BlackWinrate float32
	BlackLead    float32
	Visits       uint32
	// Best is what the engine preferred in the position the move was
	// played in, empty on the first ply.
	Best string
	// Loss is the winrate the mover gave away compared with the previous
	// position, zero on the first ply.
	Loss    float32
	Comment string
}

func rows(run domain.Analysis) []row {
	board := run.Params.BoardSize
	out := make([]row, 0, len(run.Nodes))
	for i, n := range run.Nodes {
		r := row{
			Ply:          n.Ply,
			Move:         katago.MoveLabel(n.Move, board),
			BlackWinrate: n.Verdict.BlackWinrate(),
			BlackLead:    n.Verdict.BlackScoreLead(),
			Visits:       n.Verdict.Visits,
			Comment:      n.Comment,
		}
		if i > 0 {
			before := run.Nodes[i-1].Verdict
			if best := before.SuggestedMove; best != nil {
				r.Best = katago.MoveLabel(*best, board)
			}
			delta := r.BlackWinrate - before.BlackWinrate()
			if n.Move.Player == domain.White {
				delta = -delta
			}
			r.Loss = math32.Max(0, -delta)
		}
		out = append(out, r)
	}
	return out
}

func (r row) mistake() bool { return r.Loss >= mistakeThreshold }
