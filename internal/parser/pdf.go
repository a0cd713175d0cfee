package parser

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// extractPDF pulls page text, embedded raster images and table-like
// row/column grids out of a PDF.
func (p *Parser) extractPDF(filePath string) (extraction, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return extraction{}, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return extraction{}, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return extraction{}, err
	}

	var ex extraction
	stem := fileStem(filePath)
	var text strings.Builder

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("failed to extract page text")
		} else {
			text.WriteString(pageText)
		}

		ex.images = append(ex.images, p.extractPageImages(page, stem, i)...)

		for n, grid := range extractPageTables(page) {
			ex.tables = append(ex.tables, tableRef{
				Rows:    grid,
				Caption: fmt.Sprintf("Table %d on page %d", n+1, i),
				Page:    i,
			})
		}
	}
	ex.text = text.String()
	return ex, nil
}

// extractPageImages walks the page's XObject resources for image
// streams and persists each under a deterministic name encoding the
// source stem, page and image index.
func (p *Parser) extractPageImages(page pdf.Page, stem string, pageNum int) []imageRef {
	xobj := page.Resources().Key("XObject")
	if xobj.Kind() != pdf.Dict {
		return nil
	}

	var refs []imageRef
	imgIndex := 0
	for _, key := range xobj.Keys() {
		obj := xobj.Key(key)
		if obj.Kind() != pdf.Stream || obj.Key("Subtype").Name() != "Image" {
			continue
		}
		rd := obj.Reader()
		data, err := io.ReadAll(rd)
		rd.Close()
		if err != nil || len(data) == 0 {
			continue
		}
		imgIndex++
		name := fmt.Sprintf("%s_page%d_img%d.%s", stem, pageNum, imgIndex, imageExt(obj.Key("Filter")))
		path, err := p.persistImage(name, data)
		if err != nil {
			log.Warn().Err(err).Str("image", name).Msg("failed to persist image")
			continue
		}
		refs = append(refs, imageRef{
			File:    path,
			Caption: fmt.Sprintf("Image on page %d", pageNum),
			Page:    pageNum,
		})
	}
	return refs
}

// imageExt maps the stream's filter to a file extension.
func imageExt(filter pdf.Value) string {
	name := filter.Name()
	if filter.Kind() == pdf.Array && filter.Len() > 0 {
		name = filter.Index(0).Name()
	}
	switch name {
	case "DCTDecode":
		return "jpg"
	case "JPXDecode":
		return "jp2"
	case "CCITTFaxDecode":
		return "tiff"
	default:
		return "raw"
	}
}

// extractPageTables detects table-like regions: runs of two or more
// consecutive rows sharing the same column count (>= 2 columns).
func extractPageTables(page pdf.Page) [][][]string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil
	}

	var grids [][][]string
	var current [][]string
	flush := func() {
		if len(current) >= 2 {
			grids = append(grids, current)
		}
		current = nil
	}

	for _, row := range rows {
		cells := clusterCells(row.Content)
		if len(cells) < 2 {
			flush()
			continue
		}
		if len(current) > 0 && len(current[len(current)-1]) != len(cells) {
			flush()
		}
		current = append(current, cells)
	}
	flush()
	return grids
}

// column gap threshold in points; text fragments closer than this are
// joined into one cell.
const cellGap = 18.0

func clusterCells(texts pdf.TextHorizontal) []string {
	if len(texts) == 0 {
		return nil
	}
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var cells []string
	var sb strings.Builder
	lastEnd := sorted[0].X
	for i, t := range sorted {
		if i > 0 && t.X-lastEnd > cellGap {
			if cell := strings.TrimSpace(sb.String()); cell != "" {
				cells = append(cells, cell)
			}
			sb.Reset()
		}
		sb.WriteString(t.S)
		if end := t.X + t.W; end > lastEnd {
			lastEnd = end
		}
	}
	if cell := strings.TrimSpace(sb.String()); cell != "" {
		cells = append(cells, cell)
	}
	return cells
}
