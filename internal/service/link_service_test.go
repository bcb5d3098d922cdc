package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classtrack/classtrack-api/pkg/config"
)

func TestLinkBuilderUsesRequestOrigin(t *testing.T) {
	builder := NewLinkBuilder(config.LinkConfig{})
	link := builder.AttendanceLink("https://classtrack.example.edu", "sess-1", "abc123")
	assert.Equal(t, "https://classtrack.example.edu/attendance/sess-1?token=abc123", link)
}

func TestLinkBuilderPublicBaseURLOverride(t *testing.T) {
	builder := NewLinkBuilder(config.LinkConfig{PublicBaseURL: "https://attend.example.edu"})
	link := builder.AttendanceLink("http://localhost:8080", "sess-1", "abc123")
	assert.Equal(t, "https://attend.example.edu/attendance/sess-1?token=abc123", link)
}
