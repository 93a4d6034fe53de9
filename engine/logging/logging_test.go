package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesComponentFieldToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "oxy.log")
	require.NoError(t, Init("debug", path, false))
	t.Cleanup(func() { _ = Init("info", "", true) })

	assert.Equal(t, logrus.DebugLevel, Get().GetLevel())

	WithComponent("buffer_manager").Debug("released buffer")
	Infof("frame %d", 3)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "component=buffer_manager")
	assert.Contains(t, string(data), "released buffer")
	assert.Contains(t, string(data), "frame 3")
}

func TestInitUnknownLevelFallsBackToInfo(t *testing.T) {
	require.NoError(t, Init("loud", "", false))
	t.Cleanup(func() { _ = Init("info", "", true) })

	assert.Equal(t, logrus.InfoLevel, Get().GetLevel())
}
