package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewlens/reviews-cli/internal/model"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviews.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportCSVBasic(t *testing.T) {
	path := writeCSV(t, `text,rating,author,date
"Best bagels in the neighborhood",5,Priya,2026-01-15
"Waited forty minutes for a sandwich",1,Tom,2026-02-20
`)

	reviews, err := ImportCSV(path)
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	assert.Equal(t, "Best bagels in the neighborhood", reviews[0].Text)
	assert.Equal(t, 5, reviews[0].Rating)
	assert.Equal(t, "Priya", reviews[0].Author)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), reviews[0].OccurredOn)
	assert.Equal(t, model.SourceCSV, reviews[0].Source)
}

func TestImportCSVHeaderAliases(t *testing.T) {
	path := writeCSV(t, `Reviewer Name,Comment,Stars,Created At,Internal ID
Ana,"Cozy interior and strong espresso",4.6,01/15/2026,xyz-1
`)

	reviews, err := ImportCSV(path)
	require.NoError(t, err)
	require.Len(t, reviews, 1)

	assert.Equal(t, "Cozy interior and strong espresso", reviews[0].Text)
	assert.Equal(t, 5, reviews[0].Rating, "4.6 rounds to 5")
	assert.Equal(t, "Ana", reviews[0].Author)
	assert.False(t, reviews[0].OccurredOn.IsZero())
}

func TestImportCSVDropsEmptyTextRows(t *testing.T) {
	path := writeCSV(t, `text,rating
"Kept row with actual content",3
"",2
"   ",4
`)

	reviews, err := ImportCSV(path)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestImportCSVDefaultsMissingFields(t *testing.T) {
	path := writeCSV(t, `text
"Only a text column in this export"
`)

	reviews, err := ImportCSV(path)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 3, reviews[0].Rating, "missing rating defaults to neutral")
	assert.Empty(t, reviews[0].Author)
	assert.True(t, reviews[0].OccurredOn.IsZero())
}

func TestImportCSVNoTextColumn(t *testing.T) {
	path := writeCSV(t, `rating,author
5,Bob
`)

	_, err := ImportCSV(path)
	assert.Error(t, err)
}

func TestImportCSVEmptyFile(t *testing.T) {
	path := writeCSV(t, "")
	_, err := ImportCSV(path)
	assert.Error(t, err)
}

func TestImportFileDispatch(t *testing.T) {
	path := writeCSV(t, `text
"Dispatched through the extension switch"
`)

	reviews, err := ImportFile(path)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)

	_, err = ImportFile(filepath.Join(t.TempDir(), "reviews.pdf"))
	assert.Error(t, err)
}

func TestParseRowRating(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"5", 5},
		{"4.6", 5},
		{"2.4", 2},
		{"0", 3},
		{"11", 3},
		{"", 3},
		{"five", 3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseRowRating(tc.raw), "raw=%q", tc.raw)
	}
}
