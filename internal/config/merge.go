package config

import "fmt"

// deepMerge combines two raw YAML trees per §4.4: matching mappings
// recurse, matching lists concatenate left-then-right, a list paired with
// a scalar appends the scalar, and any other clash is a scalar override —
// unless allowOverride is false, in which case a differing scalar is a
// load error instead of a silent win for the higher-priority side.
//
// This operates on the raw map[string]any/[]any tree yaml.v3 produces,
// never on koanf's own merge (which always overwrites rather than
// concatenating lists — see the package doc comment). a is mutated and
// returned; callers that need to keep a pristine pass a fresh copy.
func deepMerge(a, b map[string]any, allowOverride bool) (map[string]any, error) {
	for key, bv := range b {
		av, exists := a[key]
		if !exists {
			a[key] = bv
			continue
		}

		switch avt := av.(type) {
		case map[string]any:
			bvt, ok := bv.(map[string]any)
			if !ok {
				if !allowOverride {
					return nil, fmt.Errorf("config: key %q: mapping conflicts with non-mapping and allow_override=false", key)
				}
				a[key] = bv
				continue
			}
			merged, err := deepMerge(avt, bvt, allowOverride)
			if err != nil {
				return nil, err
			}
			a[key] = merged

		case []any:
			switch bvt := bv.(type) {
			case []any:
				a[key] = append(append([]any{}, avt...), bvt...)
			default:
				a[key] = append(append([]any{}, avt...), bvt)
			}

		default:
			switch bvt := bv.(type) {
			case []any:
				a[key] = append([]any{av}, bvt...)
			default:
				if !allowOverride && !scalarsEqual(av, bvt) {
					return nil, fmt.Errorf("config: key %q: scalar conflict (%v vs %v) with allow_override=false", key, av, bvt)
				}
				a[key] = bv
			}
		}
	}
	return a, nil
}

// scalarsEqual reports whether a and b are the same value, treating any
// map or slice operand as automatically unequal rather than risking a
// panic from Go's == on an uncomparable dynamic type — a key whose value
// is a mapping on one side and a scalar on the other is a real conflict,
// not something deepMerge can short-circuit to "equal, no conflict".
func scalarsEqual(a, b any) bool {
	if !isScalar(a) || !isScalar(b) {
		return false
	}
	return a == b
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}
