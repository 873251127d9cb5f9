package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Roster Go 101",
		Headers: []string{"Name", "Email", "Progress"},
		Rows: []map[string]string{
			{"Name": "Sam", "Email": "sam@example.com", "Progress": "40"},
			{"Name": "Ana", "Progress": "100"},
		},
	}
}

func TestCSVRenderFollowsHeaderOrder(t *testing.T) {
	body, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Name,Email,Progress\nSam,sam@example.com,40\nAna,,100\n", string(body))
}

func TestRendererDispatchesByFormat(t *testing.T) {
	r := NewRenderer()

	doc, err := r.Render(FormatPDF, "roster go/101", sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "roster_go-101.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Body, []byte("%PDF")))

	doc, err = r.Render(FormatCSV, "", sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "export.csv", doc.Filename)
	assert.Equal(t, "text/csv", doc.ContentType)
}

func TestRenderRejectsEmptyHeaders(t *testing.T) {
	_, err := NewRenderer().Render(FormatCSV, "x", Dataset{})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}
