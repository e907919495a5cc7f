package analysis

import (
	"strconv"

	"github.com/pkg/errors"

	"kata_review/internal/domain"
	ownErrors "kata_review/internal/errors"
)

// Assembler pairs each move of the line with the verdict for the position
// it produces. Verdicts must arrive in ply order.
type Assembler struct {
	commenter *Commenter
	nodes     []domain.AnnotatedNode
}

func NewAssembler(commenter *Commenter) *Assembler {
	return &Assembler{commenter: commenter}
}

// Append adds the node for the next ply. A verdict for any other ply means
// the engine and the run are out of step and is rejected.
func (a *Assembler) Append(move domain.Move, v domain.Verdict) (domain.AnnotatedNode, error) {
	ply := len(a.nodes)
	if v.ID != strconv.Itoa(ply) {
		return domain.AnnotatedNode{}, errors.Wrapf(ownErrors.ErrProtocolViolation,
			"verdict %q arrived while assembling ply %d", v.ID, ply)
	}

	var prev *domain.Verdict
	if ply > 0 {
		prev = &a.nodes[ply-1].Verdict
	}
	node := domain.AnnotatedNode{
		Ply:     ply,
		Move:    move,
		Verdict: v,
	}
	if a.commenter != nil {
		node.Comment = a.commenter.Comment(move, v, prev)
	}
	a.nodes = append(a.nodes, node)
	return node, nil
}

func (a *Assembler) Len() int { return len(a.nodes) }

// Nodes returns a copy of the nodes assembled so far.
func (a *Assembler) Nodes() []domain.AnnotatedNode {
	out := make([]domain.AnnotatedNode, len(a.nodes))
	copy(out, a.nodes)
	return out
}
