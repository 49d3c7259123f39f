package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableRender(t *testing.T) {
	tbl := NewTable(Column{Header: "ENTRY"}, Column{Header: "CRC", AlignRight: true})
	tbl.AddRow("assets/data/a.txt", "deadbeef")
	tbl.AddRow("assets/b", "1")

	lines := strings.Split(strings.TrimSuffix(tbl.Render(), "\n"), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], "ENTRY")
	require.Equal(t, "assets/data/a.txt  deadbeef", lines[2])
	require.Equal(t, "assets/b                  1", lines[3])
}

func TestTableRenderWithoutColumns(t *testing.T) {
	require.Equal(t, "", NewTable().Render())
}
