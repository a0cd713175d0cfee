package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
)

// extractDOCX pulls paragraph text, embedded tables and media images
// out of a Word document. Tables are cut from the document XML first
// so their cell text is not duplicated into the running text.
func (p *Parser) extractDOCX(filePath string) (extraction, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return extraction{}, err
	}
	defer r.Close()
	content := r.Editable().GetContent()

	var ex extraction
	body := content
	tableIdx := 0
	for {
		start := strings.Index(body, "<w:tbl>")
		if start < 0 {
			break
		}
		end := strings.Index(body[start:], "</w:tbl>")
		if end < 0 {
			break
		}
		end += start + len("</w:tbl>")
		if grid := parseDocxTable(body[start:end]); len(grid) > 0 {
			ex.tables = append(ex.tables, tableRef{
				Rows:    grid,
				Caption: fmt.Sprintf("Table %d in document", tableIdx+1),
				Index:   tableIdx,
			})
			tableIdx++
		}
		body = body[:start] + body[end:]
	}

	ex.text = docxParagraphText(body)
	ex.images = p.extractDOCXImages(filePath)
	return ex, nil
}

// extractDOCXImages persists every file under word/media/ of the docx
// archive, named from the source file stem and the media target name.
func (p *Parser) extractDOCXImages(filePath string) []imageRef {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		log.Warn().Err(err).Str("file", filePath).Msg("failed to open docx archive for images")
		return nil
	}
	defer zr.Close()

	stem := fileStem(filePath)
	var refs []imageRef
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "word/media/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil || len(data) == 0 {
			continue
		}
		name := fmt.Sprintf("%s_%s", stem, path.Base(f.Name))
		stored, err := p.persistImage(name, data)
		if err != nil {
			log.Warn().Err(err).Str("image", name).Msg("failed to persist image")
			continue
		}
		refs = append(refs, imageRef{
			File:    stored,
			Caption: fmt.Sprintf("Image in document: %s", name),
		})
	}
	return refs
}

func parseDocxTable(section string) [][]string {
	var grid [][]string
	for _, rowXML := range xmlElements(section, "w:tr") {
		var cells []string
		for _, cellXML := range xmlElements(rowXML, "w:tc") {
			cells = append(cells, strings.TrimSpace(runText(cellXML)))
		}
		if len(cells) > 0 {
			grid = append(grid, cells)
		}
	}
	return grid
}

// docxParagraphText joins the text runs of each paragraph, one
// paragraph per line.
func docxParagraphText(body string) string {
	var paragraphs []string
	for _, para := range xmlElements(body, "w:p") {
		if text := strings.TrimSpace(runText(para)); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return strings.Join(paragraphs, "\n")
}

// runText concatenates the contents of every <w:t> run in a fragment.
func runText(fragment string) string {
	return xmlUnescape(strings.Join(xmlElements(fragment, "w:t"), ""))
}

// xmlElements returns the inner content of each <tag ...>...</tag>
// occurrence, in order. The character after the tag name must close or
// continue the element so prefixed names (w:t vs w:tbl) do not match.
func xmlElements(s, tag string) []string {
	var out []string
	open := "<" + tag
	closeTag := "</" + tag + ">"
	for {
		i := strings.Index(s, open)
		if i < 0 {
			break
		}
		rest := s[i+len(open):]
		if len(rest) == 0 {
			break
		}
		if rest[0] != '>' && rest[0] != ' ' && rest[0] != '\t' {
			s = rest
			continue
		}
		gt := strings.Index(rest, ">")
		if gt < 0 {
			break
		}
		if gt > 0 && rest[gt-1] == '/' { // self-closing
			s = rest[gt+1:]
			continue
		}
		body := rest[gt+1:]
		j := strings.Index(body, closeTag)
		if j < 0 {
			break
		}
		out = append(out, body[:j])
		s = body[j+len(closeTag):]
	}
	return out
}

var xmlUnescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

func xmlUnescape(s string) string {
	return xmlUnescaper.Replace(s)
}
