package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashIsDeterministic(t *testing.T) {
	content := []byte("console.log('hello')")
	a := Hash("/assets/app.js", content)
	b := Hash("/other/dir/app.js", content)

	assert.Equal(t, a, b, "directory does not take part in the hash")
	assert.Len(t, a, HashLength)
	assert.Regexp(t, "^[0-9a-f]{32}$", a)
}

func TestHashIncludesExtension(t *testing.T) {
	content := []byte("<svg></svg>")
	assert.NotEqual(t, Hash("/logo.svg", content), Hash("/logo.txt", content))
	assert.NotEqual(t, Hash("/logo.svg", content), Hash("/logo", content))
}

func TestHashEmptyContent(t *testing.T) {
	assert.Len(t, Hash("/empty", nil), HashLength)
	assert.NotEqual(t, Hash("/empty", nil), Hash("/empty.js", nil))
}
