package analytics

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
)

// RateKind tags the variant held by a Rate.
type RateKind int

// Rate variants.
const (
	RateUndefined RateKind = iota
	RateFinite
	RateUnbounded
)

func (k RateKind) String() string {
	switch k {
	case RateFinite:
		return "finite"
	case RateUnbounded:
		return "unbounded"
	default:
		return "undefined"
	}
}

// Rate is a percentage change. Unbounded marks growth from a zero baseline
// and never compares against finite values. The zero value is Undefined.
type Rate struct {
	kind    RateKind
	percent float64
}

// Finite returns a numeric rate.
func Finite(percent float64) Rate {
	return Rate{kind: RateFinite, percent: percent}
}

// Unbounded returns the growth-from-nothing rate.
func Unbounded() Rate {
	return Rate{kind: RateUnbounded}
}

// Undefined returns the rate of a change that could not be computed.
func Undefined() Rate {
	return Rate{}
}

// ComputeRate applies the zero-baseline policy: a zero baseline with no
// change is 0%, with any change it is Unbounded.
func ComputeRate(baseline, delta int64) Rate {
	if baseline != 0 {
		return Finite(100 * float64(delta) / float64(baseline))
	}
	if delta == 0 {
		return Finite(0)
	}
	return Unbounded()
}

// Kind returns the variant.
func (r Rate) Kind() RateKind { return r.kind }

// IsFinite reports whether the rate holds a percentage.
func (r Rate) IsFinite() bool { return r.kind == RateFinite }

// IsUnbounded reports whether the rate is growth from a zero baseline.
func (r Rate) IsUnbounded() bool { return r.kind == RateUnbounded }

// Percent returns the percentage and whether it is finite.
func (r Rate) Percent() (float64, bool) {
	return r.percent, r.kind == RateFinite
}

func (r Rate) String() string {
	switch r.kind {
	case RateFinite:
		return fmt.Sprintf("%+.1f%%", r.percent)
	case RateUnbounded:
		return "new"
	default:
		return "n/a"
	}
}

type rateJSON struct {
	Kind    string   `json:"kind"`
	Percent *float64 `json:"percent,omitempty"`
}

// MarshalJSON encodes the variant explicitly so no infinity reaches the wire.
func (r Rate) MarshalJSON() ([]byte, error) {
	out := rateJSON{Kind: r.kind.String()}
	if r.kind == RateFinite {
		p := r.percent
		out.Percent = &p
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the MarshalJSON form.
func (r *Rate) UnmarshalJSON(data []byte) error {
	var in rateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return eris.Wrap(err, "analytics: decode rate")
	}
	switch in.Kind {
	case "finite":
		if in.Percent == nil {
			return eris.New("analytics: finite rate without percent")
		}
		*r = Finite(*in.Percent)
	case "unbounded":
		*r = Unbounded()
	case "undefined", "":
		*r = Undefined()
	default:
		return eris.Errorf("analytics: unknown rate kind %q", in.Kind)
	}
	return nil
}
