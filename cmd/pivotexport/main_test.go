package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/locvowork/pivotgrid/pkg/pivotexcel"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "rows.json")
	require.NoError(t, os.WriteFile(data, []byte(`[
		{"Esercizio": "2023", "Zona": "Nord", "Venduto": 10, "Costo": 4},
		{"Esercizio": "2024", "Zona": "Nord", "Venduto": 12, "Costo": 5},
		{"Esercizio": "2023", "Zona": "Sud", "Venduto": 7, "Costo": 1}
	]`), 0644))
	out := filepath.Join(dir, "out.xlsx")

	err := run(context.Background(), options{dataPath: data, outPath: out, periodField: "Esercizio", rowGroups: "Zona"})
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(pivotexcel.DefaultSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Nord", rows[2][0])
	assert.Equal(t, "Sud", rows[3][0])
}

func TestRunMissingFile(t *testing.T) {
	err := run(context.Background(), options{dataPath: filepath.Join(t.TempDir(), "none.json")})
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Zona", "Cliente"}, splitList(" Zona, ,Cliente "))
	assert.Empty(t, splitList(""))
}
