package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns DESC", "", "DESC"},
		{"asc lowercase returns ASC", "asc", "ASC"},
		{"whitespace around ASC returns ASC", "  ASC  ", "ASC"},
		{"desc returns DESC", "desc", "DESC"},
		{"sql injection attempt returns DESC", "ASC; DROP TABLE orders;--", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "price ASC", orderClause("price", "asc", ProductSortFields, "created_at"))
	assert.Equal(t, "created_at DESC", orderClause("price; --", "asc; --", ProductSortFields, "created_at"))
	assert.Equal(t, "created_at DESC", orderClause("", "", OrderSortFields, "created_at"))
	assert.Equal(t, "email ASC", orderClause("email", "ASC", UserSortFields, "created_at"))
}
