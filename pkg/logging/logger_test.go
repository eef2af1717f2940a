package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetLogging points the package globals at a fresh fake home so each
// test gets its own session and log directory.
func resetLogging(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	logDir, initErr = "", nil
	initOnce = sync.Once{}
	sessionID = ""
	sessionIDOnce = sync.Once{}

	return filepath.Join(home, ".macrokit", "logs")
}

func TestNewLogger_SharedSessionFile(t *testing.T) {
	wantDir := resetLogging(t)

	first, err := NewLogger("control")
	require.NoError(t, err)
	defer first.Close()
	second, err := NewLogger("player")
	require.NoError(t, err)
	defer second.Close()

	// Components within one process share the session and its file.
	assert.Equal(t, first.SessionID(), second.SessionID())
	assert.Equal(t, first.LogPath(), second.LogPath())
	assert.Equal(t, wantDir, filepath.Dir(first.LogPath()))
	assert.Equal(t, first.SessionID()+"-macrokit.log", filepath.Base(first.LogPath()))

	first.Printf("from control")
	second.Printf("from player")

	content, err := os.ReadFile(first.LogPath())
	require.NoError(t, err)
	assert.Contains(t, string(content), "[control]")
	assert.Contains(t, string(content), "[player]")
}

func TestLogger_LevelTags(t *testing.T) {
	resetLogging(t)

	logger, err := NewLogger("engine")
	require.NoError(t, err)
	defer logger.Close()

	logger.Debugf("debug %d", 1)
	logger.Infof("info %d", 2)
	logger.Warnf("warn %d", 3)
	logger.Errorf("error %d", 4)
	logger.Printf("print %d", 5)

	content, err := os.ReadFile(logger.LogPath())
	require.NoError(t, err)
	for _, want := range []string{
		"[engine] [DEBUG] debug 1",
		"[engine] [INFO] info 2",
		"[engine] [WARN] warn 3",
		"[engine] [ERROR] error 4",
		"[engine] [INFO] print 5",
	} {
		assert.Contains(t, string(content), want)
	}
}

func TestLogger_CloseIdempotent(t *testing.T) {
	resetLogging(t)

	logger, err := NewLogger("engine")
	require.NoError(t, err)

	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
}

func TestFallbackLogger_UsableWithoutFile(t *testing.T) {
	resetLogging(t)

	logger := newFallbackLogger("control", errors.New("no home"))
	require.NotNil(t, logger)

	// Logging and closing must work even though no file was opened.
	logger.Infof("still logging")
	assert.Empty(t, logger.LogPath())
	assert.Equal(t, os.Stderr, logger.Writer())
	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
	assert.NotEmpty(t, logger.SessionID())
}

func TestGetLogDirectory(t *testing.T) {
	wantDir := resetLogging(t)

	dir, err := GetLogDirectory()
	require.NoError(t, err)
	assert.Equal(t, wantDir, dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestGetSessionID_Stable(t *testing.T) {
	resetLogging(t)

	id := GetSessionID()
	require.NotEmpty(t, id)
	assert.Equal(t, id, GetSessionID())
	assert.True(t, strings.Contains(id, "-"))
}
