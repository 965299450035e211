package servicehub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanHandle(t *testing.T) {
	p := New("https://servicehub.example/")

	tests := []struct {
		url  string
		want bool
	}{
		{"https://servicehub.example/projects", true},
		{"https://servicehub.example/projects/", true},
		{"https://ServiceHub.example/projects?category=design", true},
		{"https://servicehub.example/projects/7", false},
		{"https://servicehub.example/services", false},
		{"https://other.example/projects", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, p.CanHandle(tt.url))
		})
	}

	assert.False(t, New("not a url").CanHandle("https://servicehub.example/projects"))
}

func TestResolve(t *testing.T) {
	p := New("https://servicehub.example/hub")

	info, err := p.Resolve(context.Background(), "https://servicehub.example/hub/projects?category=design#top", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://servicehub.example/hub/projects.rss?category=design", info.FeedURL)
	assert.Equal(t, "ServiceHub projects: design", info.Title)
	assert.Equal(t, "servicehub", info.Plugin)
	assert.Equal(t, "design", info.Metadata["category"])

	info, err = p.Resolve(context.Background(), "https://servicehub.example/hub/projects", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://servicehub.example/hub/projects.rss", info.FeedURL)
	assert.Equal(t, "ServiceHub projects", info.Title)
}
