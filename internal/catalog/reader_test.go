package catalog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadRowsCSV(t *testing.T) {
	input := "\ufeffHandle *, Title ,Variant Price\n" +
		"gate-hinge,Heavy Gate Hinge,12.50\n" +
		",,\n" +
		"gate-hinge,,14\n"

	rows, err := ReadRows(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, "gate-hinge", rows[0].Get("handle"))
	assert.Equal(t, "Heavy Gate Hinge", rows[0].Get("title"))
	assert.Equal(t, 4, rows[1].Number)
	assert.Equal(t, "14", rows[1].Get("variant price"))
	assert.True(t, rows[1].Has("title"))
	assert.Equal(t, "", rows[1].Get("title"))
}

func TestReadRowsXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Handle", "Title", "Variant Price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"bollard", "Steel Bollard", "199"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ReadRows(bytes.NewReader(buf.Bytes()), FormatXLSX)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, "Steel Bollard", rows[0].Get("title"))
	assert.Equal(t, "199", rows[0].Get("variant price"))
}

func TestReadRowsUnknownFormat(t *testing.T) {
	_, err := ReadRows(strings.NewReader(""), Format("json"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatFromFilename(t *testing.T) {
	f, err := FormatFromFilename("catalog.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = FormatFromFilename("catalog")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
