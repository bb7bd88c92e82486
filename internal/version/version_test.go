// ABOUTME: Tests for version constants
// ABOUTME: Ensures version information is properly defined
package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionDefined(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, Product)
	assert.NotEmpty(t, Manufacturer)
}

func TestVersionFormat(t *testing.T) {
	// Just verify it's a reasonable string
	assert.Less(t, len(Version), 100, "Version string is unreasonably long")
	assert.Less(t, len(Product), 100, "Product name is unreasonably long")
}

func TestVersionNotPlaceholder(t *testing.T) {
	placeholders := []string{"TODO", "FIXME", "XXX", "placeholder"}

	for _, placeholder := range placeholders {
		assert.NotEqual(t, placeholder, Version)
		assert.NotEqual(t, placeholder, Product)
		assert.NotEqual(t, placeholder, Manufacturer)
	}
}

func TestString(t *testing.T) {
	s := String()

	assert.True(t, strings.HasPrefix(s, Product))
	assert.Contains(t, s, Version)
	assert.Contains(t, s, Manufacturer)
}
