package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reviewlens/reviews-cli/internal/model"
)

// ImportCSV parses a CSV review export. The header row is required; column
// names are matched case-insensitively against known aliases and unknown
// columns are ignored. Rows with empty text are dropped.
func ImportCSV(path string) ([]model.RawReview, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open csv %s", path)
	}
	defer f.Close()

	return readCSV(f)
}

func readCSV(r io.Reader) ([]model.RawReview, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rawHeader, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, eris.New("ingest: csv file is empty")
		}
		return nil, eris.Wrap(err, "ingest: read csv header")
	}

	header, err := canonicalizeHeader(rawHeader)
	if err != nil {
		return nil, err
	}

	dec, err := csvutil.NewDecoder(cr, header...)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: create csv decoder")
	}

	var reviews []model.RawReview
	dropped := 0
	for {
		var row fileRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrap(err, "ingest: decode csv row")
		}
		review, ok := row.toRawReview()
		if !ok {
			dropped++
			continue
		}
		reviews = append(reviews, review)
	}

	zap.L().Debug("imported csv reviews",
		zap.Int("kept", len(reviews)),
		zap.Int("dropped", dropped),
	)
	return reviews, nil
}
