// Package gate decides whether a destination may be entered given the
// capabilities of the current session. Sign-in and subscription tier checks
// are evaluated together, before the destination is rendered.
package gate

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/miroir/internal/client/models"
)

//go:embed destinations.yaml
var defaultTable []byte

// Capabilities is what the session can prove about the caller.
type Capabilities struct {
	SignedIn bool
	Tier     models.Tier
}

// Decision is the gate outcome. RedirectTo is set only when Allow is false.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Destination is one row of the destination table.
type Destination struct {
	Path     string       `yaml:"path"`
	Title    string       `yaml:"title"`
	SignedIn bool         `yaml:"signedIn"`
	MinTier  *models.Tier `yaml:"minTier,omitempty"`
}

// Protected reports whether entering requires a current identity.
func (d Destination) Protected() bool {
	return d.SignedIn || d.MinTier != nil
}

type table struct {
	SignIn       string        `yaml:"signIn"`
	Upgrade      string        `yaml:"upgrade"`
	Fallback     string        `yaml:"fallback"`
	Destinations []Destination `yaml:"destinations"`
}

// Gate is immutable after Load and safe for concurrent use.
type Gate struct {
	t      table
	byPath map[string]Destination
}

// Default returns the gate built from the embedded destination table.
func Default() *Gate {
	g, err := Load(bytes.NewReader(defaultTable))
	if err != nil {
		panic(fmt.Sprintf("embedded destination table: %v", err))
	}
	return g
}

// Load parses and validates a destination table.
func Load(r io.Reader) (*Gate, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var t table
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode destination table: %w", err)
	}

	g := &Gate{t: t, byPath: make(map[string]Destination, len(t.Destinations))}
	for i, d := range t.Destinations {
		if !strings.HasPrefix(d.Path, "/") {
			return nil, fmt.Errorf("destination %d: path %q must start with /", i, d.Path)
		}
		d.Path = normalize(d.Path)
		if _, dup := g.byPath[d.Path]; dup {
			return nil, fmt.Errorf("destination %q declared twice", d.Path)
		}
		g.t.Destinations[i] = d
		g.byPath[d.Path] = d
	}

	for _, target := range []struct{ name, path string }{
		{"signIn", t.SignIn}, {"upgrade", t.Upgrade}, {"fallback", t.Fallback},
	} {
		d, ok := g.byPath[normalize(target.path)]
		if !ok {
			return nil, fmt.Errorf("%s target %q is not a declared destination", target.name, target.path)
		}
		if target.name != "upgrade" && d.Protected() {
			return nil, fmt.Errorf("%s target %q must be public", target.name, target.path)
		}
	}
	g.t.SignIn = normalize(t.SignIn)
	g.t.Upgrade = normalize(t.Upgrade)
	g.t.Fallback = normalize(t.Fallback)

	if up := g.byPath[g.t.Upgrade]; up.MinTier != nil {
		return nil, errors.New("upgrade target cannot itself be tier gated")
	}
	return g, nil
}

// CanEnter is a pure function of the destination and caps.
func (g *Gate) CanEnter(destination string, caps Capabilities) Decision {
	d, ok := g.byPath[normalize(destination)]
	if !ok {
		return Decision{RedirectTo: g.t.Fallback}
	}
	if d.Protected() && !caps.SignedIn {
		return Decision{RedirectTo: g.t.SignIn}
	}
	if d.MinTier != nil && caps.Tier < *d.MinTier {
		return Decision{RedirectTo: g.t.Upgrade}
	}
	return Decision{Allow: true}
}

// Lookup returns the table row for a destination.
func (g *Gate) Lookup(destination string) (Destination, bool) {
	d, ok := g.byPath[normalize(destination)]
	return d, ok
}

// Destinations returns the table rows in declaration order.
func (g *Gate) Destinations() []Destination {
	return append([]Destination(nil), g.t.Destinations...)
}

// SignInPath is where signed-out callers are sent.
func (g *Gate) SignInPath() string { return g.t.SignIn }

func normalize(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
