package bamboo

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	grerrors "github.com/julianstephens/grove/internal/errors"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Species is one plantable bamboo type
type Species struct {
	Type        string `yaml:"type" json:"type"`
	Name        string `yaml:"name" json:"name"`
	Cost        int    `yaml:"cost" json:"cost"`
	Description string `yaml:"description" json:"description"`
}

// Catalog maps species types to their definitions
type Catalog struct {
	species []Species
	byType  map[string]Species
}

type catalogFile struct {
	Species []Species `yaml:"species"`
}

// DefaultCatalog returns the built-in species list
func DefaultCatalog() *Catalog {
	cat, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return cat
}

// LoadCatalog reads a catalog file, or returns the built-in catalog when path is empty
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cat, err := ParseCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalog decodes and validates catalog YAML
func ParseCatalog(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog yaml: %w", err)
	}
	if len(f.Species) == 0 {
		return nil, fmt.Errorf("catalog has no species")
	}

	cat := &Catalog{byType: make(map[string]Species, len(f.Species))}
	for _, s := range f.Species {
		s.Type = strings.ToLower(strings.TrimSpace(s.Type))
		if s.Type == "" {
			return nil, fmt.Errorf("species without type")
		}
		if s.Cost < 0 {
			return nil, fmt.Errorf("species %s: negative cost %d", s.Type, s.Cost)
		}
		if _, dup := cat.byType[s.Type]; dup {
			return nil, fmt.Errorf("duplicate species %s", s.Type)
		}
		if s.Name == "" {
			s.Name = s.Type
		}
		cat.byType[s.Type] = s
		cat.species = append(cat.species, s)
	}
	return cat, nil
}

// Lookup returns the species for a type
func (c *Catalog) Lookup(speciesType string) (Species, error) {
	s, ok := c.byType[strings.ToLower(strings.TrimSpace(speciesType))]
	if !ok {
		return Species{}, fmt.Errorf("%w: %s", grerrors.ErrUnknownPlantType, speciesType)
	}
	return s, nil
}

// All returns species in catalog order
func (c *Catalog) All() []Species {
	out := make([]Species, len(c.species))
	copy(out, c.species)
	return out
}
