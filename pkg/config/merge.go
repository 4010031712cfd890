package config

// DeepMerge merges overlay into base and returns the result. Neither input is
// modified.
//
// For each key in overlay: when both values are mappings the merge recurses;
// otherwise the overlay value replaces the base value outright. Sequences are
// replaced, never concatenated.
func DeepMerge(base, overlay map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		result[k] = v
	}

	for k, ov := range overlay {
		bv, exists := result[k]
		bm, baseIsMap := bv.(map[string]any)
		om, overlayIsMap := ov.(map[string]any)
		if exists && baseIsMap && overlayIsMap {
			result[k] = DeepMerge(bm, om)
			continue
		}
		result[k] = ov
	}

	return result
}
