// Package symptom holds the three severity tiers of COVID-19 symptoms used
// by the on-site interview.
package symptom

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

//go:embed data/*.txt
var builtin embed.FS

type Tier string

const (
	Mild     Tier = "mild"
	Moderate Tier = "moderate"
	Severe   Tier = "severe"
)

// Tiers lists the tiers in interview order.
var Tiers = []Tier{Mild, Moderate, Severe}

var ErrEmptyTier = errors.New("symptom tier is empty")

// Catalog is immutable once built and safe for concurrent reads.
type Catalog struct {
	tiers map[Tier][]string
}

// New builds a catalog from explicit tier lists. Names are trimmed and
// blank entries dropped; every tier must keep at least one symptom.
func New(mild, moderate, severe []string) (*Catalog, error) {
	c := &Catalog{tiers: make(map[Tier][]string, len(Tiers))}
	for tier, names := range map[Tier][]string{Mild: mild, Moderate: moderate, Severe: severe} {
		cleaned := clean(names)
		if len(cleaned) == 0 {
			return nil, fmt.Errorf("%s: %w", tier, ErrEmptyTier)
		}
		c.tiers[tier] = cleaned
	}
	return c, nil
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return load(builtin, "data")
}

// LoadDir reads mild.txt, moderate.txt and severe.txt from dir. Each file
// holds one comma separated line of symptom names.
func LoadDir(dir string) (*Catalog, error) {
	return load(os.DirFS(dir), ".")
}

func load(fsys fs.FS, dir string) (*Catalog, error) {
	lists := make(map[Tier][]string, len(Tiers))
	for _, tier := range Tiers {
		raw, err := fs.ReadFile(fsys, path.Join(dir, string(tier)+".txt"))
		if err != nil {
			return nil, fmt.Errorf("read %s symptoms: %w", tier, err)
		}
		firstLine, _, _ := strings.Cut(string(raw), "\n")
		lists[tier] = strings.Split(firstLine, ",")
	}
	return New(lists[Mild], lists[Moderate], lists[Severe])
}

func clean(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Symptoms returns a copy of the tier in catalog order.
func (c *Catalog) Symptoms(t Tier) []string {
	return append([]string(nil), c.tiers[t]...)
}

func (c *Catalog) Mild() []string     { return c.Symptoms(Mild) }
func (c *Catalog) Moderate() []string { return c.Symptoms(Moderate) }
func (c *Catalog) Severe() []string   { return c.Symptoms(Severe) }

// Size is the number of symptoms in a tier.
func (c *Catalog) Size(t Tier) int {
	return len(c.tiers[t])
}
