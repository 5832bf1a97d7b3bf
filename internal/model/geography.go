package model

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed geography.yaml
var defaultGeographyYAML []byte

// Municipality is one of the fixed statistical units. Code defines the
// canonical display order.
type Municipality struct {
	Name string `yaml:"name" json:"name"`
	Code int    `yaml:"code" json:"code"`
}

// Area is a named grouping of municipalities.
type Area struct {
	Name    string   `yaml:"name" json:"name"`
	Members []string `yaml:"members" json:"members"`
}

// Geography is the municipality universe, its area partition and the
// prefecture name. It is immutable after construction.
type Geography struct {
	Prefecture     string         `yaml:"prefecture" json:"prefecture"`
	Municipalities []Municipality `yaml:"municipalities" json:"municipalities"`
	Areas          []Area         `yaml:"areas" json:"areas"`

	codes    map[string]int
	areas    map[string]int
	memberOf map[string]string
	pseudo   map[string]bool
}

// DefaultGeography returns the built-in Okinawa geography.
func DefaultGeography() *Geography {
	g, err := ParseGeography(defaultGeographyYAML)
	if err != nil {
		panic(fmt.Sprintf("model: embedded geography: %v", err))
	}
	return g
}

// LoadGeography reads a geography document from path. An empty path returns
// the built-in geography.
func LoadGeography(path string) (*Geography, error) {
	if path == "" {
		return DefaultGeography(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "model: read geography %s", path)
	}
	return ParseGeography(data)
}

// ParseGeography decodes a YAML geography document and builds its indexes.
func ParseGeography(data []byte) (*Geography, error) {
	var g Geography
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, eris.Wrap(err, "model: parse geography")
	}
	if g.Prefecture == "" {
		return nil, eris.New("model: geography: prefecture is required")
	}
	if len(g.Municipalities) == 0 {
		return nil, eris.New("model: geography: no municipalities")
	}
	g.index()
	return &g, nil
}

func (g *Geography) index() {
	sort.SliceStable(g.Municipalities, func(i, j int) bool {
		return g.Municipalities[i].Code < g.Municipalities[j].Code
	})

	g.codes = make(map[string]int, len(g.Municipalities))
	for _, m := range g.Municipalities {
		g.codes[m.Name] = m.Code
	}

	g.areas = make(map[string]int, len(g.Areas))
	g.memberOf = make(map[string]string)
	for i, a := range g.Areas {
		g.areas[a.Name] = i
		for _, m := range a.Members {
			if _, dup := g.memberOf[m]; !dup {
				g.memberOf[m] = a.Name
			}
		}
	}

	g.pseudo = map[string]bool{g.Prefecture: true}
	for _, a := range g.Areas {
		g.pseudo[a.Name] = true
	}
}

// Check reports partition violations: members outside the universe,
// municipalities in several areas or in none, and empty areas. Issues are
// informational; a geography with issues is still usable.
func (g *Geography) Check() []string {
	var issues []string
	seen := make(map[string]string)
	for _, a := range g.Areas {
		if len(a.Members) == 0 {
			issues = append(issues, fmt.Sprintf("area %q has no members", a.Name))
		}
		for _, m := range a.Members {
			if !g.IsMunicipality(m) {
				issues = append(issues, fmt.Sprintf("area %q member %q is not a municipality", a.Name, m))
				continue
			}
			if prev, ok := seen[m]; ok && prev != a.Name {
				issues = append(issues, fmt.Sprintf("municipality %q is in areas %q and %q", m, prev, a.Name))
				continue
			}
			seen[m] = a.Name
		}
	}
	for _, m := range g.Municipalities {
		if _, ok := seen[m.Name]; !ok {
			issues = append(issues, fmt.Sprintf("municipality %q belongs to no area", m.Name))
		}
	}
	return issues
}

// MunicipalityNames returns the universe in canonical code order.
func (g *Geography) MunicipalityNames() []string {
	names := make([]string, len(g.Municipalities))
	for i, m := range g.Municipalities {
		names[i] = m.Name
	}
	return names
}

// IsMunicipality reports whether name is in the universe.
func (g *Geography) IsMunicipality(name string) bool {
	_, ok := g.codes[name]
	return ok
}

// Code returns the municipality code for name.
func (g *Geography) Code(name string) (int, bool) {
	c, ok := g.codes[name]
	return c, ok
}

// AreaNames returns the area names in configured order.
func (g *Geography) AreaNames() []string {
	names := make([]string, len(g.Areas))
	for i, a := range g.Areas {
		names[i] = a.Name
	}
	return names
}

// AreaMembers returns the member municipalities of the named area.
func (g *Geography) AreaMembers(area string) ([]string, bool) {
	i, ok := g.areas[area]
	if !ok {
		return nil, false
	}
	return g.Areas[i].Members, true
}

// IsArea reports whether name is a configured area.
func (g *Geography) IsArea(name string) bool {
	_, ok := g.areas[name]
	return ok
}

// AreaOf returns the area a municipality belongs to, or "".
func (g *Geography) AreaOf(municipality string) string {
	return g.memberOf[municipality]
}

// IsPseudoEntity reports whether name is a pre-aggregated row label (the
// prefecture or an area name) rather than a municipality.
func (g *Geography) IsPseudoEntity(name string) bool {
	return g.pseudo[name]
}

// PseudoEntities returns the exclusion set, prefecture first.
func (g *Geography) PseudoEntities() []string {
	out := []string{g.Prefecture}
	out = append(out, g.AreaNames()...)
	return out
}

// OrderMunicipalities sorts names in place by municipality code. Unknown
// names sort last by name.
func (g *Geography) OrderMunicipalities(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ci, oki := g.codes[names[i]]
		cj, okj := g.codes[names[j]]
		switch {
		case oki && okj:
			return ci < cj
		case oki != okj:
			return oki
		default:
			return names[i] < names[j]
		}
	})
}
