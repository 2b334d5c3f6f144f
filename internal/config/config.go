// Package config is the ambient configuration layer: a KDL-based
// `.codebasemap.kdl` project file, an optional per-user global file, and a
// Validator that fills in smart defaults. Grounded on the teacher's
// internal/config package (Config/Project/Index/Performance struct
// shape, Validator.ValidateAndSetDefaults), narrowed to the fields this
// module's pipeline actually consumes.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config is the merged, validated configuration driving a scan.
type Config struct {
	Version     int
	Project     Project
	Index       Index
	Performance Performance
	Cache       Cache
	Include     []string
	Exclude     []string
}

type Project struct {
	Root string
	Name string
}

// Index mirrors the teacher's Index section, narrowed to the flags this
// module's pipeline honors: ignore-file handling and watch mode.
type Index struct {
	RespectGitignore bool
	WatchMode        bool
	WatchDebounceMs  int
}

// Performance holds MaxGoroutines; 0 means auto-detect from runtime.NumCPU
// (see EffectiveGoroutines). The assembler does not read it: parsing
// always runs in fixed batches of 10 files.
type Performance struct {
	MaxGoroutines int
}

// Cache configures Component B's pattern cache sizes/TTLs, in seconds for
// the KDL-facing fields.
type Cache struct {
	GlobSize      int
	GlobTTLSec    int
	IgnoreSize    int
	IgnoreTTLSec  int
}

// ConfigFileName is the project-local KDL configuration file, per
// spec.md's default index filename family.
const ConfigFileName = ".codebasemap.kdl"

// DefaultConfig returns the built-in defaults applied before any file is
// loaded or merged.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Index: Index{
			RespectGitignore: true,
			WatchDebounceMs:  300,
		},
		Performance: Performance{MaxGoroutines: 0},
		Cache: Cache{
			GlobSize:     1000,
			GlobTTLSec:   300,
			IgnoreSize:   1000,
			IgnoreTTLSec: 300,
		},
	}
}

// GlobalConfigPath returns the per-user configuration file location
// (os.UserConfigDir()/codebasemap/config.kdl), or "" if it cannot be
// determined.
func GlobalConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "codebasemap", "config.kdl")
}

// Merge layers project over global: scalar fields from project win when
// non-zero; Include/Exclude lists are replaced wholesale by project when
// non-empty, otherwise inherited from global.
func Merge(global, project *Config) *Config {
	if global == nil {
		return project
	}
	if project == nil {
		return global
	}

	merged := *global
	if project.Index.RespectGitignore != global.Index.RespectGitignore {
		merged.Index.RespectGitignore = project.Index.RespectGitignore
	}
	if project.Index.WatchMode {
		merged.Index.WatchMode = project.Index.WatchMode
	}
	if project.Index.WatchDebounceMs > 0 {
		merged.Index.WatchDebounceMs = project.Index.WatchDebounceMs
	}
	if project.Performance.MaxGoroutines > 0 {
		merged.Performance.MaxGoroutines = project.Performance.MaxGoroutines
	}
	if project.Cache.GlobSize > 0 {
		merged.Cache.GlobSize = project.Cache.GlobSize
	}
	if project.Cache.GlobTTLSec > 0 {
		merged.Cache.GlobTTLSec = project.Cache.GlobTTLSec
	}
	if project.Cache.IgnoreSize > 0 {
		merged.Cache.IgnoreSize = project.Cache.IgnoreSize
	}
	if project.Cache.IgnoreTTLSec > 0 {
		merged.Cache.IgnoreTTLSec = project.Cache.IgnoreTTLSec
	}
	if project.Project.Root != "" {
		merged.Project.Root = project.Project.Root
	}
	if project.Project.Name != "" {
		merged.Project.Name = project.Project.Name
	}
	if len(project.Include) > 0 {
		merged.Include = project.Include
	}
	if len(project.Exclude) > 0 {
		merged.Exclude = project.Exclude
	}
	return &merged
}

// EffectiveGoroutines resolves Performance.MaxGoroutines' 0-means-auto
// convention against the current runtime.
func (c *Config) EffectiveGoroutines() int {
	if c.Performance.MaxGoroutines > 0 {
		return c.Performance.MaxGoroutines
	}
	return runtime.NumCPU()
}
