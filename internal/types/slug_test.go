//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Software Engineer", "software-engineer"},
		{"Sénior Engineer (L5)", "senior-engineer-l5"},
		{"  Data  Scientist ", "data-scientist"},
		{"C++ Developer", "c-developer"},
		{"Ünïcödé", "unicode"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}
