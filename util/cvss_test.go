package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCVSSScore(t *testing.T) {
	tests := []struct {
		name   string
		vector string
		want   float64
	}{
		{"critical v3.1", "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", 9.8},
		{"medium v3.1", "CVSS:3.1/AV:N/AC:L/PR:L/UI:N/S:U/C:L/I:L/A:N", 5.4},
		{"empty", "", 0},
		{"garbage", "not-a-vector", 0},
		{"unsupported version", "CVSS:2.0/AV:N/AC:L/Au:N/C:C/I:C/A:C", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateCVSSScore(tt.vector), 0.01)
		})
	}
}

func TestGetSeverityRating(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0, "NONE"},
		{0.1, "LOW"},
		{3.9, "LOW"},
		{4.0, "MEDIUM"},
		{6.9, "MEDIUM"},
		{7.0, "HIGH"},
		{8.9, "HIGH"},
		{9.0, "CRITICAL"},
		{10.0, "CRITICAL"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetSeverityRating(tt.score), "score %.1f", tt.score)
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty("   "))
	assert.False(t, IsEmpty("aurora"))
}

func TestContains(t *testing.T) {
	statuses := []string{"QUEUED", "CLONING", "OK", "FAILED"}
	assert.True(t, Contains(statuses, "OK"))
	assert.False(t, Contains(statuses, "EXPLODED"))
	assert.False(t, Contains(nil, "OK"))
}
