package browser

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/hubsearch/internal/config"
)

func newTestOpener(t *testing.T, opener, goos string) *Opener {
	t.Helper()
	cfg := config.TestConfig()
	cfg.Web.BaseURL = "https://servicehub.example/"
	cfg.Web.Opener = opener

	o, err := New(cfg)
	require.NoError(t, err)
	o.goos = goos
	return o
}

func TestURLFor(t *testing.T) {
	o := newTestOpener(t, "xdg-open", "linux")

	got, err := o.URLFor("/projects/7")
	require.NoError(t, err)
	assert.Equal(t, "https://servicehub.example/projects/7", got)

	got, err = o.URLFor("/search?q=web+design")
	require.NoError(t, err)
	assert.Equal(t, "https://servicehub.example/search?q=web+design", got)

	_, err = o.URLFor("projects/7")
	assert.Error(t, err)
}

func TestCommand(t *testing.T) {
	tests := []struct {
		opener string
		goos   string
		want   []string
	}{
		{opener: "xdg-open", goos: "linux", want: []string{"xdg-open", "https://servicehub.example/profiles/42"}},
		{opener: "open", goos: "darwin", want: []string{"open", "https://servicehub.example/profiles/42"}},
		{opener: "start", goos: "windows", want: []string{"cmd", "/c", "start", "", "https://servicehub.example/profiles/42"}},
		{opener: "firefox", goos: "linux", want: []string{"firefox", "https://servicehub.example/profiles/42"}},
	}

	for _, tt := range tests {
		t.Run(tt.opener, func(t *testing.T) {
			cmd, err := newTestOpener(t, tt.opener, tt.goos).Command("/profiles/42")
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd.Args)
		})
	}
}

func TestCommandWrongPlatform(t *testing.T) {
	_, err := newTestOpener(t, "open", "linux").Command("/projects/7")
	assert.ErrorContains(t, err, "not supported on linux")
}

func TestOpen(t *testing.T) {
	o := newTestOpener(t, "xdg-open", "linux")

	var started *exec.Cmd
	o.start = func(cmd *exec.Cmd) error {
		started = cmd
		return nil
	}
	require.NoError(t, o.Open("/services/12"))
	require.NotNil(t, started)
	assert.Equal(t, "https://servicehub.example/services/12", started.Args[len(started.Args)-1])

	o.start = func(*exec.Cmd) error { return errors.New("no display") }
	assert.ErrorContains(t, o.Open("/services/12"), "failed to start xdg-open")
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	cfg := config.TestConfig()
	cfg.Web.BaseURL = "ftp://servicehub.example"
	_, err := New(cfg)
	assert.Error(t, err)
}
