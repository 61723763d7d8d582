package testutil

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// TempDirSuite is a testify suite that owns a context and a scratch directory
// for tests touching the filesystem.
type TempDirSuite struct {
	suite.Suite
	ctx     context.Context
	cancel  context.CancelFunc
	tempDir string
}

// SetupSuite runs before all tests in the suite
func (s *TempDirSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 2*time.Minute)

	tempDir, err := os.MkdirTemp("", "kvsplit-test-*")
	require.NoError(s.T(), err)
	s.tempDir = tempDir
}

// TearDownSuite runs after all tests in the suite
func (s *TempDirSuite) TearDownSuite() {
	s.cancel()
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

// Context returns the suite context
func (s *TempDirSuite) Context() context.Context {
	return s.ctx
}

// TempDir returns the scratch directory path
func (s *TempDirSuite) TempDir() string {
	return s.tempDir
}

// SubDir creates and returns a fresh directory under TempDir.
func (s *TempDirSuite) SubDir(name string) string {
	dir := filepath.Join(s.tempDir, name)
	require.NoError(s.T(), os.MkdirAll(dir, 0o755))
	return dir
}
