package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_GetVersion(t *testing.T) {
	origHash, origVersion := GitHash, Version
	defer func() {
		GitHash, Version = origHash, origVersion
	}()

	Version = "v1.2.0"
	GitHash = "0123456789abcdef"
	assert.Equal(t, "v1.2.0-0123456", GetVersion())

	GitHash = "abc"
	assert.Equal(t, "v1.2.0-abc", GetVersion())

	GitHash = ""
	assert.Equal(t, "v1.2.0", GetVersion())
}
