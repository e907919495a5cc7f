package sgf

// GameTree представляет одно дерево в SGF (узел + варианты)
type GameTree struct {
	Nodes    []Node      // Последовательность узлов (основная линия)
	Children []*GameTree // Варианты (вариативные линии)
}

// Node представляет один узел SGF (набор свойств, таких как B[pd], W[dd], C[...])
type Node struct {
	Properties map[string][]string // Свойства могут повторяться (например, AB[aa][bb])
}

// SGF представляет корневой элемент SGF-файла
type SGF struct {
	Root *GameTree
}

// Value returns the first value of a property and whether it is present.
func (n Node) Value(key string) (string, bool) {
	values, ok := n.Properties[key]
	if !ok || len(values) == 0 {
		return "", ok
	}
	return values[0], true
}

// Root returns the first node of the tree, or an empty node.
func (t *GameTree) Root() Node {
	if t == nil || len(t.Nodes) == 0 {
		return Node{}
	}
	return t.Nodes[0]
}
