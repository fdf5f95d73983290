package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr string
	}{
		{"ok", "Buy milk", ""},
		{"exactly max", strings.Repeat("a", MaxTitleLength), ""},
		{"max in runes", strings.Repeat("é", MaxTitleLength), ""},
		{"empty", "", "validation failed: task title cannot be empty"},
		{"blank", "  \t ", "validation failed: task title cannot be empty"},
		{"too long", strings.Repeat("a", MaxTitleLength+1), "validation failed: task title cannot exceed 100 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTitle(tt.title)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestParseStatusFilter(t *testing.T) {
	assert.Nil(t, ParseStatusFilter("").Completed)
	assert.Nil(t, ParseStatusFilter("done").Completed)

	c := ParseStatusFilter(FilterCompleted).Completed
	if assert.NotNil(t, c) {
		assert.True(t, *c)
	}
	i := ParseStatusFilter(FilterIncomplete).Completed
	if assert.NotNil(t, i) {
		assert.False(t, *i)
	}
}

func TestDescriptionText(t *testing.T) {
	assert.Equal(t, "", Task{}.DescriptionText())
	d := "details"
	assert.Equal(t, "details", Task{Description: &d}.DescriptionText())
}
