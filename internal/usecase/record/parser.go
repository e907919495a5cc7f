package record

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"kata_review/internal/domain/sgf"
	ownErrors "kata_review/internal/errors"
)

// Parse reads SGF text and returns its first game tree. Further trees of a
// collection are ignored.
func Parse(text string) (*sgf.SGF, error) {
	p := &parser{src: text}
	p.skipSpace()
	if p.eof() {
		return nil, errors.Wrap(ownErrors.ErrMalformedRecord, "empty record")
	}
	tree, err := p.gameTree()
	if err != nil {
		return nil, err
	}
	return &sgf.SGF{Root: tree}, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(rune(p.peek())) {
		p.pos++
	}
}

func (p *parser) fail(format string, args ...interface{}) error {
	return errors.Wrapf(ownErrors.ErrMalformedRecord, "offset %d: "+format, append([]interface{}{p.pos}, args...)...)
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.eof() {
		return p.fail("expected %q, got end of input", c)
	}
	if p.peek() != c {
		return p.fail("expected %q, got %q", c, p.peek())
	}
	p.pos++
	return nil
}

// gameTree = "(" node+ gameTree* ")"
func (p *parser) gameTree() (*sgf.GameTree, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	tree := &sgf.GameTree{}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.fail("unterminated game tree")
		}
		if p.peek() != ';' {
			break
		}
		p.pos++
		node, err := p.node()
		if err != nil {
			return nil, err
		}
		tree.Nodes = append(tree.Nodes, node)
	}
	if len(tree.Nodes) == 0 {
		return nil, p.fail("game tree without nodes")
	}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.fail("unterminated game tree")
		}
		if p.peek() != '(' {
			break
		}
		child, err := p.gameTree()
		if err != nil {
			return nil, err
		}
		tree.Children = append(tree.Children, child)
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return tree, nil
}

func (p *parser) node() (sgf.Node, error) {
	node := sgf.Node{Properties: map[string][]string{}}
	for {
		p.skipSpace()
		if p.eof() {
			return node, nil
		}
		c := p.peek()
		if !unicode.IsLetter(rune(c)) {
			return node, nil
		}
		ident := p.ident()
		values, err := p.values()
		if err != nil {
			return node, err
		}
		if ident == "" {
			continue
		}
		node.Properties[ident] = append(node.Properties[ident], values...)
	}
}

// FF[3] allowed lowercase letters inside identifiers (AddBlack); only the
// uppercase part is significant.
func (p *parser) ident() string {
	var b strings.Builder
	for !p.eof() && unicode.IsLetter(rune(p.peek())) {
		if c := p.peek(); c >= 'A' && c <= 'Z' {
			b.WriteByte(c)
		}
		p.pos++
	}
	return b.String()
}

func (p *parser) values() ([]string, error) {
	var values []string
	for {
		p.skipSpace()
		if p.eof() || p.peek() != '[' {
			break
		}
		p.pos++
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, p.fail("property without value")
	}
	return values, nil
}

func (p *parser) value() (string, error) {
	var b strings.Builder
	for !p.eof() {
		c := p.peek()
		p.pos++
		switch c {
		case ']':
			return b.String(), nil
		case '\\':
			if p.eof() {
				return "", p.fail("dangling escape")
			}
			next := p.peek()
			p.pos++
			// soft line break
			if next == '\n' || next == '\r' {
				if !p.eof() && (p.peek() == '\n' || p.peek() == '\r') && p.peek() != next {
					p.pos++
				}
				continue
			}
			b.WriteByte(next)
		default:
			b.WriteByte(c)
		}
	}
	return "", p.fail("unterminated property value")
}
