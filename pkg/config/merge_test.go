package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeepMerge(t *testing.T) {
	tests := []struct {
		name    string
		base    map[string]any
		overlay map[string]any
		want    map[string]any
	}{
		{
			name:    "nested mappings merge recursively",
			base:    map[string]any{"a": map[string]any{"x": 1, "y": 2}},
			overlay: map[string]any{"a": map[string]any{"y": 3}},
			want:    map[string]any{"a": map[string]any{"x": 1, "y": 3}},
		},
		{
			name:    "sequences are replaced",
			base:    map[string]any{"tags": []any{"a", "b"}},
			overlay: map[string]any{"tags": []any{"c"}},
			want:    map[string]any{"tags": []any{"c"}},
		},
		{
			name:    "scalar replaces mapping",
			base:    map[string]any{"a": map[string]any{"x": 1}},
			overlay: map[string]any{"a": 5},
			want:    map[string]any{"a": 5},
		},
		{
			name:    "mapping replaces scalar",
			base:    map[string]any{"a": 5},
			overlay: map[string]any{"a": map[string]any{"x": 1}},
			want:    map[string]any{"a": map[string]any{"x": 1}},
		},
		{
			name:    "new keys are added",
			base:    map[string]any{"a": 1},
			overlay: map[string]any{"b": 2},
			want:    map[string]any{"a": 1, "b": 2},
		},
		{
			name:    "empty overlay keeps base",
			base:    map[string]any{"a": 1},
			overlay: map[string]any{},
			want:    map[string]any{"a": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeepMerge(tt.base, tt.overlay))
		})
	}
}

func TestDeepMerge_DoesNotMutateInputs(t *testing.T) {
	base := map[string]any{"vm_cleanup": map[string]any{"dry_run": false, "keep_latest_count": 5}}
	overlay := map[string]any{"vm_cleanup": map[string]any{"dry_run": true}}

	merged := DeepMerge(base, overlay)

	assert.Equal(t, map[string]any{"dry_run": true, "keep_latest_count": 5}, merged["vm_cleanup"])
	assert.Equal(t, false, base["vm_cleanup"].(map[string]any)["dry_run"])
	assert.Equal(t, map[string]any{"dry_run": true}, overlay["vm_cleanup"])
}
