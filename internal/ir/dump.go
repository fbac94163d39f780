package ir

import (
	"fmt"
	"io"

	asciitree "github.com/thediveo/go-asciitree"

	"github.com/wippyai/wasm-lua/wasm"
)

type dumpNode struct {
	Label    string     `asciitree:"label"`
	Props    []string   `asciitree:"properties"`
	Children []dumpNode `asciitree:"children"`
}

// Dump renders the tree rooted at n as box-drawn text, one line per node.
func Dump(w io.Writer, label string, n Node) error {
	_, err := fmt.Fprintln(w, asciitree.RenderFancy(convertToTree(label, n)))
	return err
}

func convertToTree(label string, n Node) dumpNode {
	switch n := n.(type) {
	case *SeqNode:
		d := dumpNode{Label: label}
		for _, child := range n.Children {
			d.Children = append(d.Children, convertToTree("", child))
		}
		return d

	case *BlockNode:
		d := convertToTree(wasm.OpcodeName(n.Opcode), n.Body)
		d.Props = typeProps(n)
		return d

	case *IfNode:
		d := dumpNode{Label: "if", Props: typeProps(n)}
		d.Children = append(d.Children, convertToTree("then", n.Then))
		if n.Else != nil {
			d.Children = append(d.Children, convertToTree("else", n.Else))
		}
		return d

	case *InstrNode:
		return dumpNode{Label: n.Instr.String()}

	default:
		return dumpNode{Label: fmt.Sprintf("%T", n)}
	}
}

func typeProps(n Node) []string {
	var props []string
	for _, p := range n.Params() {
		props = append(props, "param: "+p.String())
	}
	for _, r := range n.Results() {
		props = append(props, "result: "+r.String())
	}
	return props
}
