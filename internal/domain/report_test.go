package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanReportPath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		err  error
	}{
		{"plain", "vendite/mensile", "vendite/mensile", nil},
		{"suffix", "vendite/mensile.rep", "vendite/mensile", nil},
		{"backslash", `vendite\mensile`, "vendite/mensile", nil},
		{"inner dots", "a/../b", "b", nil},
		{"absolute", "/vendite/x", "vendite/x", nil},
		{"empty", "  ", "", ErrInvalidPath},
		{"root", "/", "", ErrInvalidPath},
		{"escape", "../etc/passwd", "", ErrPathOutsideRoot},
		{"deep escape", "a/../../x", "", ErrPathOutsideRoot},
		{"dotted name", "..report", "..report", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanReportPath(tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescriptorFor(t *testing.T) {
	assert.Equal(t, ReportDescriptor{Name: "mensile", Path: "vendite/mensile", Category: "vendite"}, DescriptorFor("vendite/mensile"))
	assert.Equal(t, ReportDescriptor{Name: "top", Path: "top", Category: DefaultCategory}, DescriptorFor("top"))
}

func TestCatalogDescriptors(t *testing.T) {
	c := Catalog{}
	c.Add(ReportDescriptor{Name: "zeta", Path: "vendite/zeta", Category: "vendite"})
	c.Add(ReportDescriptor{Name: "alfa", Path: "vendite/alfa", Category: "vendite"})
	c.Add(ReportDescriptor{Name: "root", Path: "root"})
	c.SortByName()

	got := c.Descriptors()
	require.Len(t, got, 3)
	assert.Equal(t, DefaultCategory, got[0].Category)
	assert.Equal(t, "alfa", got[1].Name)
	assert.Equal(t, "zeta", got[2].Name)
}
