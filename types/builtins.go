package types

// BuiltinFunc resolves a function call's result type given its (already
// inferred) argument types. Argument-count/constraint checking beyond what
// the spec's built-in table lists is intentionally shallow — feather
// type-checks query shape, it doesn't reimplement SQLite's function
// signature validation.
type BuiltinFunc func(u *Unifier, args []*Ty) *Ty

func constResult(n Nominal) BuiltinFunc {
	return func(_ *Unifier, _ []*Ty) *Ty { return Nom(n) }
}

func unifyArgs(u *Unifier, args []*Ty) *Ty {
	if len(args) == 0 {
		return Nom(ANY)
	}
	result := args[0]
	for _, a := range args[1:] {
		result = u.Unify(result, a)
	}
	return result
}

// coalesceLike unifies args' base types but, unlike unifyArgs, is only
// nullable if every argument is — one non-null fallback is enough to
// guarantee a value, per spec §4.4's "COALESCE(x, non-null-y) strips
// nullability" rule. IFNULL(a, b) is COALESCE's two-argument case.
func coalesceLike(u *Unifier, args []*Ty) *Ty {
	if len(args) == 0 {
		return Nom(ANY)
	}
	result := args[0].Base()
	allNullable := args[0].IsOptional()
	for _, a := range args[1:] {
		result = u.Unify(result, a.Base())
		allNullable = allNullable && a.IsOptional()
	}
	if allNullable {
		return Optional(result)
	}
	return result
}

// Builtins is the spec §4.4 function table: name (lower-cased) to result
// resolver.
var Builtins = map[string]BuiltinFunc{
	"count":    constResult(INTEGER),
	"sum":      constResult(REAL),
	"avg":      constResult(REAL),
	"min":      unifyArgs,
	"max":      unifyArgs,
	"coalesce": coalesceLike,
	"nullif": func(u *Unifier, args []*Ty) *Ty {
		if len(args) == 0 {
			return Nom(ANY)
		}
		return args[0]
	},
	"length": constResult(INTEGER),
	"upper":  constResult(TEXT),
	"lower":  constResult(TEXT),
	"abs": func(u *Unifier, args []*Ty) *Ty {
		if len(args) == 0 {
			return Nom(ANY)
		}
		return args[0]
	},
	"round":     constResult(REAL),
	"typeof":    constResult(TEXT),
	"substr":    constResult(TEXT),
	"replace":   constResult(TEXT),
	"trim":      constResult(TEXT),
	"instr":     constResult(INTEGER),
	"ifnull":    coalesceLike,
	"total":     constResult(REAL),
	"group_concat": constResult(TEXT),
}
