package saver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func Test_FileSaverOrdinalNames(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSaver(filepath.Join(dir, "saved"), zap.NewNop())

	assert.NoError(t, s.Save("FIRST_TIER", "<html>page1</html>"))
	assert.NoError(t, s.Save("FIRST_TIER", "<html>page2</html>"))
	assert.NoError(t, s.Save("VESSEL", "<html>vessel</html>"))

	first, err := os.ReadFile(filepath.Join(dir, "saved", "001_FIRST_TIER.html"))
	assert.NoError(t, err)
	assert.Equal(t, "<html>page1</html>", string(first))

	second, err := os.ReadFile(filepath.Join(dir, "saved", "002_FIRST_TIER.html"))
	assert.NoError(t, err)
	assert.Equal(t, "<html>page2</html>", string(second))

	_, err = os.Stat(filepath.Join(dir, "saved", "003_VESSEL.html"))
	assert.NoError(t, err)
}

func Test_NullSaver(t *testing.T) {
	s := NewNullSaver()
	assert.NoError(t, s.Save("FIRST_TIER", "whatever"))
}
