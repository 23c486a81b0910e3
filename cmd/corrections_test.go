package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/mathcheck/internal/model"
)

func TestWriteCorrectionsXLSX(t *testing.T) {
	out := filepath.Join(t.TempDir(), "corrections.xlsx")
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	err := writeCorrectionsXLSX([]model.Correction{
		{EquationID: "eq-1", Original: `x^2+2x+l=0`, Corrected: `x^2+2x+1=0`, Timestamp: ts},
		{Original: `\frac{1}{2}`, Corrected: `\frac{1}{3}`, Timestamp: ts.Add(time.Minute)},
	}, out)
	require.NoError(t, err)

	file, err := xlsx.OpenFile(out)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	require.Len(t, sheet.Rows, 3) // header + two entries
	assert.Equal(t, "Timestamp", sheet.Rows[0].Cells[0].Value)
	assert.Equal(t, "eq-1", sheet.Rows[1].Cells[1].Value)
	assert.Equal(t, `x^2+2x+1=0`, sheet.Rows[1].Cells[3].Value)
	assert.Equal(t, "2026-03-14T09:27:53Z", sheet.Rows[2].Cells[0].Value)
	assert.Empty(t, sheet.Rows[2].Cells[1].Value)
}

func TestWriteCorrectionsXLSX_EmptyLog(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, writeCorrectionsXLSX(nil, out))

	file, err := xlsx.OpenFile(out)
	require.NoError(t, err)
	require.Len(t, file.Sheets[0].Rows, 1)
}
