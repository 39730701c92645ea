package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/reviewlens/reviews-cli/internal/model"
)

// ImportXLSX parses the first sheet of an XLSX review export. The first row
// must be a header; the same column aliases as the CSV importer apply.
func ImportXLSX(path string) ([]model.RawReview, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: xlsx file has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("ingest: xlsx sheet is empty")
	}

	header, err := canonicalizeHeader(rowStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}

	var reviews []model.RawReview
	dropped := 0
	for _, r := range sheet.Rows[1:] {
		cells := rowStrings(r)
		row := fileRow{
			Text:   cellAt(cells, cols, "text"),
			Rating: cellAt(cells, cols, "rating"),
			Author: cellAt(cells, cols, "author"),
			Date:   cellAt(cells, cols, "date"),
		}
		review, ok := row.toRawReview()
		if !ok {
			dropped++
			continue
		}
		reviews = append(reviews, review)
	}

	zap.L().Debug("imported xlsx reviews",
		zap.Int("kept", len(reviews)),
		zap.Int("dropped", dropped),
	)
	return reviews, nil
}

func rowStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}

func cellAt(cells []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}
