// Package translate rewrites declarative constraints on a new point into the
// constructive predicates the model builder understands.
package translate

import (
	"fmt"

	"github.com/snow-ghost/geosynth/core"
)

// Family is a constrained predicate family.
type Family int

const (
	Perp Family = iota
	Para
	Cong
	Coll
	EqAngle
	Cyclic
)

// Families lists every supported family in declaration order.
var Families = []Family{Perp, Para, Cong, Coll, EqAngle, Cyclic}

var familyByName = map[string]Family{
	"perp": Perp, "T": Perp,
	"para": Para, "P": Para,
	"cong": Cong, "D": Cong,
	"coll": Coll, "C": Coll,
	"eqangle": EqAngle, "^": EqAngle,
	"cyclic": Cyclic, "O": Cyclic,
}

// ParseFamily accepts long names and the single-symbol aliases used in rule files.
func ParseFamily(name string) (Family, error) {
	f, ok := familyByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", core.ErrUnsupportedFamily, name)
	}
	return f, nil
}

func (f Family) String() string {
	switch f {
	case Perp:
		return "perp"
	case Para:
		return "para"
	case Cong:
		return "cong"
	case Coll:
		return "coll"
	case EqAngle:
		return "eqangle"
	case Cyclic:
		return "cyclic"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// Arity is the number of point arguments of the constrained form.
func (f Family) Arity() int {
	switch f {
	case Coll:
		return 3
	case EqAngle:
		return 6
	default:
		return 4
	}
}

// Constructive predicate names emitted by Translate.
const (
	OnDia         = "on_dia"
	OnTLine       = "on_tline"
	OnPLine       = "on_pline"
	OnBLine       = "on_bline"
	OnCircle      = "on_circle"
	EqDistance    = "eqdistance"
	OnLine        = "on_line"
	AngleBisector = "angle_bisector"
	EqAngle3      = "eqangle3"
	OnALine       = "on_aline"
	OnCircum      = "on_circum"
)

// ConstructiveNames lists every predicate Translate can produce.
func ConstructiveNames() []string {
	return []string{
		OnDia, OnTLine, OnPLine, OnBLine, OnCircle, EqDistance,
		OnLine, AngleBisector, EqAngle3, OnALine, OnCircum,
	}
}
