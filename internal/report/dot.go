package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/awalterschulze/gographviz"

	"kata_review/internal/domain"
)

// WriteDOT draws the main line as a chain of plies. Each node shows the
// move and Black's winrate after it; mistakes are filled red and get a
// dashed edge to the engine's preferred move.
func WriteDOT(w io.Writer, run domain.Analysis) error {
	g := gographviz.NewGraph()
	if err := g.SetName("G"); err != nil {
		return err
	}
	if err := g.SetDir(true); err != nil {
		return err
	}
	if err := g.AddAttr("G", "rankdir", "LR"); err != nil {
		return err
	}

	prev := ""
	for _, r := range rows(run) {
		name := fmt.Sprintf("ply%d", r.Ply)
		attrs := map[string]string{
			"shape": "box",
			"label": strconv.Quote(fmt.Sprintf("%d. %s\n%.1f%%", r.Ply+1, r.Move, 100*r.BlackWinrate)),
		}
		if r.mistake() {
			attrs["style"] = "filled"
			attrs["fillcolor"] = "\"#ffb0b0\""
		}
		if err := g.AddNode("G", name, attrs); err != nil {
			return err
		}
		if prev != "" {
			if err := g.AddEdge(prev, name, true, nil); err != nil {
				return err
			}
		}
		if r.mistake() && r.Best != "" && prev != "" {
			alt := name + "_best"
			if err := g.AddNode("G", alt, map[string]string{
				"shape": "ellipse",
				"label": strconv.Quote(r.Best),
			}); err != nil {
				return err
			}
			if err := g.AddEdge(prev, alt, true, map[string]string{"style": "dashed"}); err != nil {
				return err
			}
		}
		prev = name
	}

	_, err := io.WriteString(w, g.String())
	return err
}
