// Package config provides repository configuration management,
// including reading and writing stackit configuration files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const repoConfigFile = ".stackit_config"

// Defaults applied when neither the config file nor the environment sets a value
const (
	DefaultTrunk             = "main"
	DefaultRemote            = "origin"
	DefaultMergeMethod       = "squash"
	DefaultMergeTimeout      = 10 * time.Minute
	DefaultMergePollInterval = 15 * time.Second
)

// MergeConfig holds merge cascade defaults
type MergeConfig struct {
	Method         string
	Timeout        time.Duration
	PollInterval   time.Duration
	DeleteBranches bool
}

// RepoConfig represents the repository configuration
type RepoConfig struct {
	Trunk  string
	Remote string
	Merge  MergeConfig
}

// RepoConfigPath returns the location of the repository config file
func RepoConfigPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", repoConfigFile)
}

// IsInitialized reports whether stackit has been initialized in the repository
func IsInitialized(repoRoot string) bool {
	_, err := os.Stat(RepoConfigPath(repoRoot))
	return err == nil
}

func newViper(repoRoot string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(RepoConfigPath(repoRoot))
	v.SetConfigType("json")

	v.SetDefault("trunk", DefaultTrunk)
	v.SetDefault("remote", DefaultRemote)
	v.SetDefault("merge.method", DefaultMergeMethod)
	v.SetDefault("merge.timeout", DefaultMergeTimeout)
	v.SetDefault("merge.pollInterval", DefaultMergePollInterval)
	v.SetDefault("merge.deleteBranches", true)

	// STACKIT_TRUNK, STACKIT_MERGE_METHOD, ...
	v.SetEnvPrefix("STACKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// GetRepoConfig reads the repository configuration, falling back to defaults
func GetRepoConfig(repoRoot string) (*RepoConfig, error) {
	v := newViper(repoRoot)
	if IsInitialized(repoRoot) {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse repo config: %w", err)
		}
	}

	return &RepoConfig{
		Trunk:  v.GetString("trunk"),
		Remote: v.GetString("remote"),
		Merge: MergeConfig{
			Method:         v.GetString("merge.method"),
			Timeout:        v.GetDuration("merge.timeout"),
			PollInterval:   v.GetDuration("merge.pollInterval"),
			DeleteBranches: v.GetBool("merge.deleteBranches"),
		},
	}, nil
}

// GetTrunk returns the trunk branch name, or "main" as default
func GetTrunk(repoRoot string) (string, error) {
	cfg, err := GetRepoConfig(repoRoot)
	if err != nil {
		return "", err
	}
	return cfg.Trunk, nil
}

// SetTrunk persists the trunk branch, keeping any other keys in the file
func SetTrunk(repoRoot string, trunk string) error {
	return updateRepoConfig(repoRoot, func(raw map[string]any) {
		raw["trunk"] = trunk
	})
}

// InitializeRepo writes a config file with the given trunk if none exists yet
func InitializeRepo(repoRoot string, trunk string) error {
	if IsInitialized(repoRoot) {
		return SetTrunk(repoRoot, trunk)
	}
	return updateRepoConfig(repoRoot, func(raw map[string]any) {
		raw["trunk"] = trunk
		raw["remote"] = DefaultRemote
	})
}

func updateRepoConfig(repoRoot string, mutate func(map[string]any)) error {
	configPath := RepoConfigPath(repoRoot)

	raw := map[string]any{}
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to parse repo config: %w", err)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to read repo config: %w", err)
	}

	mutate(raw)

	configJSON, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(configPath, configJSON, 0600)
}
