package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Title:   "CS101 Roster",
		Columns: []string{"Student", "Marks", "Grade"},
		Rows: [][]string{
			{"S-001", "82.50", "A-"},
			{"S-002", "91.00", "A+"},
		},
		Summary: [][2]string{{"Average marks", "86.75"}},
	}
}

func TestCSVRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTable())
	require.NoError(t, err)
	assert.Equal(t, "Student,Marks,Grade\nS-001,82.50,A-\nS-002,91.00,A+\n\nAverage marks,86.75\n", string(out))
}

func TestCSVRejectsRaggedRows(t *testing.T) {
	tbl := sampleTable()
	tbl.Rows = append(tbl.Rows, []string{"S-003"})
	_, err := NewCSVExporter().Render(tbl)
	assert.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleTable())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRequiresColumns(t *testing.T) {
	_, err := NewPDFExporter().Render(Table{})
	assert.Error(t, err)
}
