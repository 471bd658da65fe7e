package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradebookTable() Table {
	return Table{
		Columns: []string{"username", "percent", "grade"},
		Rows: []map[string]string{
			{"username": "alice", "percent": "0.85", "grade": "Pass"},
			{"username": "bob", "percent": "0.2"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(gradebookTable(), "")
	require.NoError(t, err)
	assert.Equal(t, "username,percent,grade\nalice,0.85,Pass\nbob,0.2,\n", string(out))
}

func TestCSVExporterRequiresColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{}, "")
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(gradebookTable(), "Gradebook")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
