package translate

import (
	"fmt"
	"slices"

	"github.com/snow-ghost/geosynth/core"
)

type handler func(point string, args []string) core.Predicate

func handlerFor(f Family) (handler, error) {
	switch f {
	case Perp:
		return perp, nil
	case Para:
		return para, nil
	case Cong:
		return cong, nil
	case Coll:
		return coll, nil
	case EqAngle:
		return eqangle, nil
	case Cyclic:
		return cyclic, nil
	}
	return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFamily, f)
}

// Translate maps a constraint of family f on point into an equivalent
// constructive predicate. point must occur in args. The result only mentions
// point and names taken from args.
func Translate(point string, f Family, args []string) (core.Predicate, error) {
	h, err := handlerFor(f)
	if err != nil {
		return core.Predicate{}, err
	}
	if len(args) != f.Arity() {
		return core.Predicate{}, fmt.Errorf("%w: %s takes %d, got %d", core.ErrBadArity, f, f.Arity(), len(args))
	}
	if !slices.Contains(args, point) {
		return core.Predicate{}, fmt.Errorf("%w: %s not in %v", core.ErrPointNotInArgs, point, args)
	}
	if f == Cyclic && count(args, point) != 1 {
		return core.Predicate{}, fmt.Errorf("%w: %s must occur once in cyclic %v", core.ErrBadArity, point, args)
	}
	return h(point, slices.Clone(args)), nil
}

// TranslateName is Translate keyed by family name.
func TranslateName(point, name string, args []string) (core.Predicate, error) {
	f, err := ParseFamily(name)
	if err != nil {
		return core.Predicate{}, err
	}
	return Translate(point, f, args)
}

func count(args []string, s string) int {
	n := 0
	for _, a := range args {
		if a == s {
			n++
		}
	}
	return n
}

func pred(name string, args ...string) core.Predicate {
	return core.Predicate{Name: name, Args: args}
}

// canonPairs moves point into the first slot of the first pair and, if it
// also sits in the second pair, into that pair's first slot.
func canonPairs(point string, args []string) (a, b, c, d string) {
	a, b, c, d = args[0], args[1], args[2], args[3]
	if point == c || point == d {
		a, b, c, d = c, d, a, b
	}
	if point == b {
		a, b = b, a
	}
	if point == d {
		c, d = d, c
	}
	return
}

// perp: ab ⟂ cd.
func perp(point string, args []string) core.Predicate {
	a, b, c, d := canonPairs(point, args)
	if a == c && a == point {
		return pred(OnDia, a, b, d)
	}
	return pred(OnTLine, a, b, c, d)
}

// para: ab ∥ cd.
func para(point string, args []string) core.Predicate {
	a, b, c, d := args[0], args[1], args[2], args[3]
	if point == c || point == d {
		a, b, c, d = c, d, a, b
	}
	if point == b {
		a, b = b, a
	}
	return pred(OnPLine, a, b, c, d)
}

// cong: |ab| = |cd|.
func cong(point string, args []string) core.Predicate {
	a, b, c, d := canonPairs(point, args)
	if a == c && a == point {
		return pred(OnBLine, a, b, d)
	}
	if b == c || b == d {
		if b == d {
			c, d = d, c
		}
		return pred(OnCircle, a, b, d)
	}
	return pred(EqDistance, a, b, c, d)
}

// coll: a, b, c on one line.
func coll(point string, args []string) core.Predicate {
	a, b, c := args[0], args[1], args[2]
	if point == b {
		a, b = b, a
	}
	if point == c {
		a, b, c = c, a, b
	}
	return pred(OnLine, a, b, c)
}

// eqangle: ∠(ab, bc) = ∠(de, ef), i.e. angle a-b-c equals angle d-e-f.
func eqangle(point string, args []string) core.Predicate {
	a, b, c, d, e, f := args[0], args[1], args[2], args[3], args[4], args[5]
	if point == d || point == e || point == f {
		a, b, c, d, e, f = d, e, f, a, b, c
	}
	// Name the vertices x and y: angle a-x-b equals angle c-y-d.
	x, y := b, e
	b, c, d = c, d, f
	if point == b {
		a, b, c, d = b, a, d, c
	}
	if point == d && x == y {
		return pred(AngleBisector, point, b, x, c)
	}
	if point == x {
		return pred(EqAngle3, x, a, b, y, c, d)
	}
	return pred(OnALine, a, x, b, c, y, d)
}

// cyclic: the four points are concyclic.
func cyclic(point string, args []string) core.Predicate {
	rest := make([]string, 0, 3)
	for _, a := range args {
		if a != point {
			rest = append(rest, a)
		}
	}
	return pred(OnCircum, point, rest[0], rest[1], rest[2])
}
