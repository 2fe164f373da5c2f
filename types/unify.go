package types

// Unifier owns the substitution from type variables to types produced over
// the course of one compile, plus the variable counter bind parameters draw
// fresh slots from.
type Unifier struct {
	subst   map[int]*Ty
	nextVar int
}

// NewUnifier returns an empty Unifier.
func NewUnifier() *Unifier {
	return &Unifier{subst: map[int]*Ty{}}
}

// Fresh allocates a new unbound type variable.
func (u *Unifier) Fresh() *Ty {
	v := &Ty{Kind: KindVar, Var: u.nextVar}
	u.nextVar++
	return v
}

// Resolve follows t's variable chain to its current binding, or returns t
// unchanged if it isn't a variable or is an unbound one.
func (u *Unifier) Resolve(t *Ty) *Ty {
	for t.Kind == KindVar {
		bound, ok := u.subst[t.Var]
		if !ok {
			return t
		}
		t = bound
	}
	return t
}

// DeepResolve follows Resolve all the way through Optional and Row wrappers,
// so a caller examining a final CompiledQuery type never sees a leftover
// unbound variable (an unconstrained bind parameter or CASE arm resolves to
// ANY, matching spec §4.4's "else -> ANY" fallback).
func (u *Unifier) DeepResolve(t *Ty) *Ty {
	t = u.Resolve(t)
	switch t.Kind {
	case KindVar:
		return Nom(ANY)
	case KindOptional:
		return Optional(u.DeepResolve(t.Elem))
	case KindRow:
		fields := make([]Field, len(t.Row))
		for i, f := range t.Row {
			fields[i] = Field{Name: f.Name, Type: u.DeepResolve(f.Type)}
		}
		return Row(fields)
	default:
		return t
	}
}

// Unify computes the common type of a and b under the SQLite affinity
// lattice (spec §4.4), binding any unresolved variables along the way.
// Nominal unification never fails outright — mismatched nominals fall back
// to ANY — so callers that need a hard diagnostic on conflict check the
// result themselves.
func (u *Unifier) Unify(a, b *Ty) *Ty {
	a, b = u.Resolve(a), u.Resolve(b)

	if a.Kind == KindError || b.Kind == KindError {
		return ErrTy
	}
	if a.Kind == KindVar && b.Kind == KindVar && a.Var == b.Var {
		return a
	}
	if a.Kind == KindVar {
		if u.occursIn(a.Var, b) {
			return ErrTy
		}
		u.subst[a.Var] = b
		return b
	}
	if b.Kind == KindVar {
		if u.occursIn(b.Var, a) {
			return ErrTy
		}
		u.subst[b.Var] = a
		return a
	}
	if a.Kind == KindOptional || b.Kind == KindOptional {
		return Optional(u.Unify(a.Base(), b.Base()))
	}
	if a.Kind == KindRow || b.Kind == KindRow {
		return u.unifyRows(a, b)
	}
	return Nom(unifyNominal(a.Name, b.Name))
}

// occursIn reports whether variable v appears anywhere inside t (after
// resolving bound variables), guarding against binding a variable to a
// compound type that already contains it — without this, DeepResolve on the
// resulting cycle would recurse forever.
func (u *Unifier) occursIn(v int, t *Ty) bool {
	t = u.Resolve(t)
	switch t.Kind {
	case KindVar:
		return t.Var == v
	case KindOptional:
		return u.occursIn(v, t.Elem)
	case KindRow:
		for _, f := range t.Row {
			if u.occursIn(v, f.Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (u *Unifier) unifyRows(a, b *Ty) *Ty {
	if a.Kind != KindRow || b.Kind != KindRow || len(a.Row) != len(b.Row) {
		return ErrTy
	}
	fields := make([]Field, len(a.Row))
	for i := range a.Row {
		fields[i] = Field{Name: a.Row[i].Name, Type: u.Unify(a.Row[i].Type, b.Row[i].Type)}
	}
	return Row(fields)
}

// unifyNominal implements spec §4.4's arithmetic lattice table, extended
// with the obvious identity and ANY-absorbing cases needed for every other
// nominal pairing (comparisons, CASE arms, function results).
func unifyNominal(a, b Nominal) Nominal {
	if a == b {
		return a
	}
	isIntLike := func(n Nominal) bool { return n == INTEGER || n == INT }
	switch {
	case isIntLike(a) && isIntLike(b):
		return INTEGER
	case isIntLike(a) && b == REAL, a == REAL && isIntLike(b):
		return REAL
	case a == TEXT || b == TEXT:
		return TEXT
	default:
		return ANY
	}
}

// NominalsConflict reports whether a and b are different nominal kinds that
// aren't plausibly the same underlying value (used to decide whether a
// coalesced bind parameter's type disagreement is worth a diagnostic, since
// Unify itself never hard-fails on nominals).
func NominalsConflict(a, b Nominal) bool {
	if a == b || a == ANY || b == ANY {
		return false
	}
	isNumeric := func(n Nominal) bool { return n == INTEGER || n == INT || n == REAL }
	if isNumeric(a) && isNumeric(b) {
		return false
	}
	return true
}
