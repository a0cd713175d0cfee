package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// extractMarkdown parses a markdown file with GFM extensions, lifting
// pipe tables out as table chunks and flattening everything else to
// running text.
func extractMarkdown(filePath string) (extraction, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return extraction{}, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	var ex extraction
	var body strings.Builder
	tableIdx := 0

	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *east.Table:
			if grid := tableGrid(node, source); len(grid) > 0 {
				ex.tables = append(ex.tables, tableRef{
					Rows:    grid,
					Caption: fmt.Sprintf("Table %d in document", tableIdx+1),
					Index:   tableIdx,
				})
				tableIdx++
			}
			return ast.WalkSkipChildren, nil
		case *ast.Heading, *ast.Paragraph:
			if t := strings.TrimSpace(nodeText(n, source)); t != "" {
				body.WriteString(t)
				body.WriteString("\n\n")
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			writeLines(&body, node.Lines(), source)
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			writeLines(&body, node.Lines(), source)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return extraction{}, err
	}

	ex.text = body.String()
	return ex, nil
}

func tableGrid(table *east.Table, source []byte) [][]string {
	var grid [][]string
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(nodeText(cell, source)))
		}
		if len(cells) > 0 {
			grid = append(grid, cells)
		}
	}
	return grid
}

// nodeText collects the raw text segments under a node.
func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				sb.Write(t.Segment.Value(source))
				if t.SoftLineBreak() || t.HardLineBreak() {
					sb.WriteByte(' ')
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func writeLines(sb *strings.Builder, lines *text.Segments, source []byte) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	sb.WriteString("\n")
}
