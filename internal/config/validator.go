package config

import (
	"fmt"

	lciserrors "github.com/codebasemap/codebasemap/internal/errors"
	"github.com/codebasemap/codebasemap/internal/patternvalidate"
)

// Validator validates a merged Config and fills in smart defaults,
// grounded on the teacher's internal/config/validator.go.
type Validator struct{}

// NewValidator constructs a Validator.
func NewValidator() *Validator { return &Validator{} }

// ValidateAndSetDefaults validates every section of cfg and applies smart
// defaults for fields left at their zero value.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if cfg.Project.Root == "" {
		return lciserrors.NewUnexpected("config_validate", fmt.Errorf("project root cannot be empty"))
	}
	if cfg.Index.WatchDebounceMs < 0 {
		return lciserrors.NewUnexpected("config_validate", fmt.Errorf("watch_debounce_ms cannot be negative, got %d", cfg.Index.WatchDebounceMs))
	}
	if cfg.Performance.MaxGoroutines < 0 {
		return lciserrors.NewUnexpected("config_validate", fmt.Errorf("max_goroutines cannot be negative, got %d", cfg.Performance.MaxGoroutines))
	}
	if err := patternvalidate.ValidateList(cfg.Include, lciserrors.RoleInclude); err != nil {
		return err
	}
	if err := patternvalidate.ValidateList(cfg.Exclude, lciserrors.RoleExclude); err != nil {
		return err
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Index.WatchDebounceMs == 0 {
		cfg.Index.WatchDebounceMs = 300
	}
	if cfg.Cache.GlobSize == 0 {
		cfg.Cache.GlobSize = 1000
	}
	if cfg.Cache.IgnoreSize == 0 {
		cfg.Cache.IgnoreSize = 1000
	}
	if cfg.Cache.GlobTTLSec == 0 {
		cfg.Cache.GlobTTLSec = 300
	}
	if cfg.Cache.IgnoreTTLSec == 0 {
		cfg.Cache.IgnoreTTLSec = 300
	}
}
