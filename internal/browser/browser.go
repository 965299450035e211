// Package browser opens navigation routes on the marketplace website.
package browser

import (
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/pders01/hubsearch/internal/config"
	"github.com/pders01/hubsearch/internal/validation"
)

//go:embed openers.toml
var openersTOML []byte

// OpenerDefinition describes how to invoke an opener. Command defaults to
// the opener name.
type OpenerDefinition struct {
	Description string   `toml:"description"`
	Platforms   []string `toml:"platforms"`
	Command     string   `toml:"command,omitempty"`
	Args        []string `toml:"args"`
}

type openersConfig struct {
	Openers map[string]OpenerDefinition `toml:"openers"`
}

// Opener turns routes into website URLs and starts the configured opener.
type Opener struct {
	baseURL string
	name    string
	openers map[string]OpenerDefinition
	goos    string
	// start runs the command detached; replaced in tests
	start func(*exec.Cmd) error
}

func New(cfg *config.Config) (*Opener, error) {
	var defs openersConfig
	if err := toml.Unmarshal(openersTOML, &defs); err != nil {
		return nil, fmt.Errorf("parsing openers.toml: %w", err)
	}
	loadUserOpeners(defs.Openers)

	base, err := validation.NewPermissiveURLValidator().ValidateBaseURL(cfg.Web.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid web.base_url: %w", err)
	}

	name := cfg.Web.Opener
	if name == "" {
		name = config.Default().Web.Opener
	}

	return &Opener{
		baseURL: base,
		name:    name,
		openers: defs.Openers,
		goos:    runtime.GOOS,
		start:   startDetached,
	}, nil
}

// loadUserOpeners merges ~/.config/hubsearch/openers.toml over the built-ins.
func loadUserOpeners(into map[string]OpenerDefinition) {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	data, err := os.ReadFile(filepath.Join(home, ".config", "hubsearch", "openers.toml"))
	if err != nil {
		return
	}
	var user openersConfig
	if err := toml.Unmarshal(data, &user); err != nil {
		return
	}
	for name, def := range user.Openers {
		into[name] = def
	}
}

// URLFor joins a route such as /projects/7 onto the website base URL.
func (o *Opener) URLFor(route string) (string, error) {
	if !strings.HasPrefix(route, "/") {
		return "", fmt.Errorf("route must start with /: %q", route)
	}
	return o.baseURL + route, nil
}

// Command builds the process that opens route.
func (o *Opener) Command(route string) (*exec.Cmd, error) {
	target, err := o.URLFor(route)
	if err != nil {
		return nil, err
	}

	def, ok := o.openers[o.name]
	if !ok {
		return exec.Command(o.name, target), nil
	}
	if len(def.Platforms) > 0 && !slices.Contains(def.Platforms, o.goos) {
		return nil, fmt.Errorf("%s is not supported on %s", o.name, o.goos)
	}

	command := def.Command
	if command == "" {
		command = o.name
	}
	args := append(slices.Clone(def.Args), target)
	return exec.Command(command, args...), nil
}

// Open opens route in the system browser without waiting for it to exit.
func (o *Opener) Open(route string) error {
	cmd, err := o.Command(route)
	if err != nil {
		return err
	}
	if err := o.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", o.name, err)
	}
	return nil
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
