package collectors

import (
	"os"

	"go.uber.org/zap"
)

// PermissionProbe answers whether the current user can read a path.
// Failures are logged and reported as false, never returned.
type PermissionProbe struct {
	logger *zap.Logger
}

// NewPermissionProbe creates a probe logging to logger
func NewPermissionProbe(logger *zap.Logger) *PermissionProbe {
	return &PermissionProbe{logger: logger}
}

// CanRead checks a file or a folder, whichever path turns out to be
func (p *PermissionProbe) CanRead(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		p.logFailure(path, "path", err)
		return false
	}
	if info.IsDir() {
		return p.CheckFolder(path)
	}
	return p.CheckFile(path)
}

// CheckFile stats path, then checks read access
func (p *PermissionProbe) CheckFile(path string) bool {
	if _, err := os.Stat(path); err != nil {
		p.logFailure(path, KindFile, err)
		return false
	}
	if err := readAccess(path); err != nil {
		p.logFailure(path, KindFile, err)
		return false
	}
	return true
}

// CheckFolder lists path, then checks read access
func (p *PermissionProbe) CheckFolder(path string) bool {
	if _, err := os.ReadDir(path); err != nil {
		p.logFailure(path, KindFolder, err)
		return false
	}
	if err := readAccess(path); err != nil {
		p.logFailure(path, KindFolder, err)
		return false
	}
	return true
}

func (p *PermissionProbe) logFailure(path, kind string, err error) {
	p.logger.Warn("Permission check failed",
		zap.String("path", path),
		zap.String("kind", kind),
		zap.Error(err))
}

// checkPaths runs the probe over the configured files and folders, in that order
func (p *PermissionProbe) checkPaths(files, folders []string) []PermissionCheck {
	checks := make([]PermissionCheck, 0, len(files)+len(folders))
	for _, f := range files {
		checks = append(checks, PermissionCheck{Path: f, Kind: KindFile, Readable: p.CheckFile(f)})
	}
	for _, d := range folders {
		checks = append(checks, PermissionCheck{Path: d, Kind: KindFolder, Readable: p.CheckFolder(d)})
	}
	return checks
}
