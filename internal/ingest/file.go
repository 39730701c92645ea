package ingest

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/reviewlens/reviews-cli/internal/model"
)

// ImportFile parses a review export, dispatching on the file extension.
// Supported formats: .csv, .xlsx.
func ImportFile(path string) ([]model.RawReview, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ImportCSV(path)
	case ".xlsx":
		return ImportXLSX(path)
	default:
		return nil, eris.Errorf("ingest: unsupported file format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

// headerAliases maps the column names seen in real review exports onto the
// canonical field names the row decoder understands.
var headerAliases = map[string]string{
	"text":        "text",
	"review":      "text",
	"review_text": "text",
	"reviewtext":  "text",
	"comment":     "text",
	"comments":    "text",
	"feedback":    "text",
	"body":        "text",

	"rating":       "rating",
	"stars":        "rating",
	"star_rating":  "rating",
	"score":        "rating",
	"review_score": "rating",

	"author":        "author",
	"name":          "author",
	"reviewer":      "author",
	"reviewer_name": "author",
	"user":          "author",
	"username":      "author",

	"date":        "date",
	"time":        "date",
	"datetime":    "date",
	"created":     "date",
	"created_at":  "date",
	"review_date": "date",
	"published":   "date",
}

// canonicalizeHeader rewrites a raw header row into canonical field names.
// Unrecognized columns keep a unique placeholder so the decoder skips them.
// Returns an error if no column maps to review text.
func canonicalizeHeader(raw []string) ([]string, error) {
	out := make([]string, len(raw))
	hasText := false
	for i, col := range raw {
		key := strings.ToLower(strings.TrimSpace(col))
		key = strings.ReplaceAll(key, " ", "_")
		canonical, ok := headerAliases[key]
		if !ok {
			out[i] = "_skip" + strconv.Itoa(i)
			continue
		}
		out[i] = canonical
		if canonical == "text" {
			hasText = true
		}
	}
	if !hasText {
		return nil, eris.Errorf("ingest: no review text column found in header %v", raw)
	}
	return out, nil
}

// fileRow is one decoded spreadsheet row. All fields arrive as strings;
// typing happens in toRawReview.
type fileRow struct {
	Text   string `csv:"text"`
	Rating string `csv:"rating"`
	Author string `csv:"author"`
	Date   string `csv:"date"`
}

// toRawReview converts a decoded row, reporting false for rows with no
// usable text.
func (r fileRow) toRawReview() (model.RawReview, bool) {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return model.RawReview{}, false
	}
	return model.RawReview{
		Text:       text,
		Rating:     parseRowRating(r.Rating),
		Author:     strings.TrimSpace(r.Author),
		OccurredOn: parseRowDate(r.Date),
		Source:     model.SourceCSV,
	}, true
}

// parseRowRating accepts integers and decimals, defaulting to neutral for
// anything absent or out of the 1..5 domain.
func parseRowRating(raw string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 3
	}
	rating := int(f + 0.5)
	if rating < 1 || rating > 5 {
		return 3
	}
	return rating
}

var rowDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

func parseRowDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range rowDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
