package limits

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbookOneSheetPerMonth(t *testing.T) {
	grouped := Group(mustRows(t, `[
		["a","e1","d1","x","10","5","5","0","100","2024-03-05"],
		["b","e1","d2","y","20","10","10","2","100","2024-03-05"],
		["c","e2","d3","z","1","1","1","1","50","2024-01-02"]
	]`))

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, grouped))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetName("1"), SheetName("3")}, f.GetSheetList())

	rows, err := f.GetRows(SheetName("3"))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "Total (2)", rows[3][1])
	assert.Equal(t, "30", rows[3][4])
}

func TestWriteWorkbookEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, Grouped{}))
	assert.NotZero(t, buf.Len())
}
