package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/trebuchet-org/govlock/internal/domain/config"
)

// LoadProjectConfig reads govlock.toml from projectRoot. String values may
// reference environment variables, which are first populated from .env
// and .env.local. A missing file yields the defaults.
func LoadProjectConfig(projectRoot string) (*config.ProjectConfig, string, error) {
	loadEnvFiles(projectRoot)

	path := filepath.Join(projectRoot, ProjectFile)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.DefaultProjectConfig(), "defaults", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", ProjectFile, err)
	}

	project, err := ParseProjectConfig(os.ExpandEnv(string(raw)))
	if err != nil {
		return nil, "", err
	}
	return project, ProjectFile, nil
}

// ParseProjectConfig decodes govlock.toml content. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func ParseProjectConfig(data string) (*config.ProjectConfig, error) {
	project := config.DefaultProjectConfig()
	md, err := toml.Decode(data, project)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ProjectFile, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%s: unknown keys: %s", ProjectFile, strings.Join(keys, ", "))
	}
	if project.Roles == nil {
		project.Roles = map[string][]string{}
	}
	if project.Accounts == nil {
		project.Accounts = map[string]string{}
	}
	return project, nil
}

func loadEnvFiles(projectRoot string) {
	for _, name := range []string{".env", ".env.local"} {
		envFile := filepath.Join(projectRoot, name)
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			slog.Warn("failed to load env file", "path", envFile, "error", err)
		}
	}
}
