package analytics

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lodging-cli/internal/model"
)

// LocationType selects how a query's locations are interpreted.
type LocationType string

// LocationType values.
const (
	LocationOverall      LocationType = "overall"
	LocationMunicipality LocationType = "municipality"
	LocationArea         LocationType = "area"
)

// ParseLocationType accepts the English names and the dashboard's labels.
func ParseLocationType(s string) (LocationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overall", "all", "全体":
		return LocationOverall, nil
	case "municipality", "municipalities", "city", "市町村":
		return LocationMunicipality, nil
	case "area", "areas", "エリア":
		return LocationArea, nil
	default:
		return "", eris.Errorf("analytics: unknown location type %q (valid: overall, municipality, area)", s)
	}
}

// AreaScope is a resolved area with the municipalities that count toward it.
type AreaScope struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Scope is a resolved location selection.
type Scope struct {
	Type           LocationType `json:"type"`
	Municipalities []string     `json:"municipalities"`
	Areas          []AreaScope  `json:"areas,omitempty"`
	Label          string       `json:"label"`
}

// Empty reports whether no municipality is in scope.
func (s Scope) Empty() bool {
	return len(s.Municipalities) == 0
}

// AreaNames returns the names of the resolved areas.
func (s Scope) AreaNames() []string {
	out := make([]string, len(s.Areas))
	for i, a := range s.Areas {
		out[i] = a.Name
	}
	return out
}

// Resolver turns location selections into concrete municipality sets.
type Resolver struct {
	geo *model.Geography
}

// NewResolver returns a Resolver over geo.
func NewResolver(geo *model.Geography) *Resolver {
	return &Resolver{geo: geo}
}

var placeholders = map[string]bool{"": true, "全体": true, "all": true, "overall": true}

func isPlaceholder(locations []string) bool {
	for _, l := range locations {
		if !placeholders[strings.ToLower(strings.TrimSpace(l))] {
			return false
		}
	}
	return true
}

// Resolve never fails: unknown names are ignored and an empty result is a
// valid Scope.
func (r *Resolver) Resolve(lt LocationType, locations []string) Scope {
	if lt == LocationOverall || isPlaceholder(locations) {
		return Scope{
			Type:           LocationOverall,
			Municipalities: r.filter(r.geo.MunicipalityNames()),
			Label:          "all municipalities",
		}
	}

	switch lt {
	case LocationMunicipality:
		var names []string
		for _, l := range locations {
			names = append(names, strings.TrimSpace(l))
		}
		munis := r.filter(names)
		return Scope{Type: lt, Municipalities: munis, Label: municipalityLabel(munis)}

	case LocationArea:
		var (
			areas []AreaScope
			union []string
			seen  = make(map[string]bool)
		)
		for _, l := range locations {
			name := strings.TrimSpace(l)
			members, ok := r.geo.AreaMembers(name)
			if !ok || seen["area:"+name] {
				continue
			}
			seen["area:"+name] = true
			kept := r.filter(members)
			areas = append(areas, AreaScope{Name: name, Members: kept})
			union = append(union, kept...)
		}
		return Scope{Type: lt, Municipalities: r.filter(union), Areas: areas, Label: areaLabel(areas)}
	}

	return Scope{Type: lt, Label: string(lt)}
}

// filter keeps known, non-pseudo municipalities, de-duplicated, in code order.
func (r *Resolver) filter(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] || r.geo.IsPseudoEntity(n) || !r.geo.IsMunicipality(n) {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	r.geo.OrderMunicipalities(out)
	return out
}

func municipalityLabel(names []string) string {
	switch {
	case len(names) == 0:
		return "no municipalities"
	case len(names) <= 3:
		return "selected municipalities (" + strings.Join(names, "・") + ")"
	default:
		return fmt.Sprintf("selected municipalities (%s and %d more)", strings.Join(names[:3], "・"), len(names)-3)
	}
}

func areaLabel(areas []AreaScope) string {
	if len(areas) == 0 {
		return "no areas"
	}
	names := make([]string, len(areas))
	for i, a := range areas {
		names[i] = a.Name
	}
	return strings.Join(names, "・") + " area"
}
