package normalize

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"
)

// normalizeMarkdown extracts the textual content of a markdown document by
// walking the goldmark AST, so headings, emphasis and link markup do not
// leak into the index.
func normalizeMarkdown(data []byte) string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(gmtext.NewReader(data))

	var blob strings.Builder
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if node.Type() == ast.TypeBlock && blob.Len() > 0 {
				blob.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Text:
			blob.Write(n.Segment.Value(data))
			if n.SoftLineBreak() || n.HardLineBreak() {
				blob.WriteString("\n")
			}
		case *ast.FencedCodeBlock:
			writeLines(&blob, n.Lines(), data)
		case *ast.CodeBlock:
			writeLines(&blob, n.Lines(), data)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(blob.String())
}

func writeLines(blob *strings.Builder, lines *gmtext.Segments, data []byte) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		blob.Write(seg.Value(data))
	}
}
