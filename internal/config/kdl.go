package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/codebasemap/codebasemap/internal/patterncache"
)

// LoadKDL reads projectRoot/.codebasemap.kdl and returns the parsed
// Config, or (nil, nil) if the file does not exist — callers fall back to
// DefaultConfig. Grounded on the teacher's LoadKDL/parseKDL in
// internal/config/kdl_config.go.
func LoadKDL(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, ConfigFileName)
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
	}
	return parseKDL(string(content), projectRoot)
}

// LoadGlobalKDL reads the per-user global configuration file, if any.
func LoadGlobalKDL() (*Config, error) {
	path := GlobalConfigPath()
	if path == "" {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read global config: %w", err)
	}
	return parseKDL(string(content), "")
}

func parseKDL(content, projectRoot string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Project.Root = projectRoot

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) {
					if filepath.IsAbs(v) {
						cfg.Project.Root = v
					} else if projectRoot != "" {
						cfg.Project.Root = filepath.Clean(filepath.Join(projectRoot, v))
					} else {
						cfg.Project.Root = v
					}
				})
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.RespectGitignore = b
					}
				case "watch_mode":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.WatchMode = b
					}
				case "watch_debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.WatchDebounceMs = v
					}
				}
			}
		case "performance":
			for _, cn := range n.Children {
				if nodeName(cn) == "max_goroutines" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.MaxGoroutines = v
					}
				}
			}
		case "cache":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "glob_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.GlobSize = v
					}
				case "glob_ttl_sec":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.GlobTTLSec = v
					}
				case "ignore_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.IgnoreSize = v
					}
				case "ignore_ttl_sec":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.IgnoreTTLSec = v
					}
				}
			}
		case "include":
			cfg.Include = append(cfg.Include, collectStringArgs(n)...)
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, collectStringArgs(n)...)
		}
	}

	return cfg, nil
}

// Load resolves the effective configuration for root: global KDL (if any)
// merged under project KDL (if any) merged under DefaultConfig, with
// include/exclude CLI overrides layered on top, then validated and
// defaulted. Grounded on the teacher's config.Load in main.go's
// loadConfigWithOverrides (root-dir override, CLI include/exclude
// override applied after file config).
func Load(root string, cliInclude, cliExclude []string) (*Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}

	cfg := DefaultConfig()
	cfg.Project.Root = absRoot

	if global, err := LoadGlobalKDL(); err == nil && global != nil {
		cfg = Merge(cfg, global)
	}
	if project, err := LoadKDL(absRoot); err == nil && project != nil {
		cfg = Merge(cfg, project)
	}
	cfg.Project.Root = absRoot

	if len(cliInclude) > 0 {
		cfg.Include = cliInclude
	}
	if len(cliExclude) > 0 {
		cfg.Exclude = append(cfg.Exclude, cliExclude...)
	}

	if err := NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		return nil, err
	}

	patterncache.ResetSingleton(patterncache.Config{
		GlobSize:   cfg.Cache.GlobSize,
		GlobTTL:    time.Duration(cfg.Cache.GlobTTLSec) * time.Second,
		IgnoreSize: cfg.Cache.IgnoreSize,
		IgnoreTTL:  time.Duration(cfg.Cache.IgnoreTTLSec) * time.Second,
	})

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
