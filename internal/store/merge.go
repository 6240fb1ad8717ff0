package store

// deepMerge applies an append-mode update payload onto base. Object
// values merge key by key; arrays and scalars from the update replace the
// base value wholesale; keys absent from the update are preserved. The
// result is a fresh map, so neither argument is mutated.
//
// The merge is idempotent: applying the same update twice yields the same
// state, which keeps re-consumption after a crashed acknowledgement safe.
func deepMerge(base, update map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(update))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range update {
		bv, exists := out[k]
		if !exists {
			out[k] = v
			continue
		}
		bm, baseIsObj := bv.(map[string]any)
		um, updIsObj := v.(map[string]any)
		if baseIsObj && updIsObj {
			out[k] = deepMerge(bm, um)
			continue
		}
		out[k] = v
	}
	return out
}
