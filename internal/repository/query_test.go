package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildOrderClause(t *testing.T) {
	fields := map[string]string{"createdAt": "created_at", "total": "total"}

	tests := []struct {
		name   string
		config SortConfig
		want   string
	}{
		{"mapped asc", SortConfig{Field: "total", Order: SortOrderAsc}, "total ASC"},
		{"mapped desc", SortConfig{Field: "createdAt", Order: SortOrderDesc}, "created_at DESC"},
		{"unknown field falls back", SortConfig{Field: "password; DROP TABLE", Order: SortOrderAsc}, "created_at ASC"},
		{"empty order is desc", SortConfig{Field: "total"}, "total DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildOrderClause(tt.config, fields, "created_at"))
		})
	}
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortOrderAsc, ParseSortOrder("ASC"))
	assert.Equal(t, SortOrderAsc, ParseSortOrder("asc"))
	assert.Equal(t, SortOrderDesc, ParseSortOrder("sideways"))
	assert.Equal(t, SortOrderDesc, ParseSortOrder(""))
}

func TestNormalizePage(t *testing.T) {
	page, size := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)

	page, size = NormalizePage(3, 5000)
	assert.Equal(t, 3, page)
	assert.Equal(t, MaxPageSize, size)
}
