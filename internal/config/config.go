package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure. The engines never read this directly:
// the session layer translates it into explicit per-call options.
type Global struct {
	// Columns maps dataset column names to validation list categories.
	Columns map[string]string `mapstructure:"columns" yaml:"columns"`
	// MatchStrategy is the default strategy: exact, case_insensitive or fuzzy.
	MatchStrategy string `mapstructure:"match_strategy" yaml:"match_strategy"`
	// ColumnStrategies overrides the strategy per column.
	ColumnStrategies map[string]string `mapstructure:"column_strategies" yaml:"column_strategies"`
	FuzzyThreshold   float64           `mapstructure:"fuzzy_threshold" yaml:"fuzzy_threshold"`

	OnlyInvalid   bool `mapstructure:"only_invalid" yaml:"only_invalid"`
	Recursive     bool `mapstructure:"recursive" yaml:"recursive"`
	MaxIterations int  `mapstructure:"max_iterations" yaml:"max_iterations"`

	AutoValidateOnImport    bool `mapstructure:"auto_validate_on_import" yaml:"auto_validate_on_import"`
	AutoCorrectOnValidation bool `mapstructure:"auto_correct_on_validation" yaml:"auto_correct_on_validation"`
	AutoCorrectOnImport     bool `mapstructure:"auto_correct_on_import" yaml:"auto_correct_on_import"`

	ListsDir  string `mapstructure:"lists_dir" yaml:"lists_dir"`
	RulesFile string `mapstructure:"rules_file" yaml:"rules_file"`
}

// Save writes the given configuration to the cfgFile path. If cfgFile is
// empty, it writes to ~/.datamend/config.yaml, creating the directory if
// necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".datamend")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DATAMEND")
	v.AutomaticEnv()

	// Defaults match the chest-log column layout the tool ships for.
	v.SetDefault("columns", map[string]string{
		"PLAYER": "player",
		"SOURCE": "source",
		"CHEST":  "chest_type",
	})
	v.SetDefault("match_strategy", "exact")
	v.SetDefault("column_strategies", map[string]string{})
	v.SetDefault("fuzzy_threshold", 0.8)
	v.SetDefault("only_invalid", true)
	v.SetDefault("recursive", true)
	v.SetDefault("max_iterations", 10)
	v.SetDefault("auto_validate_on_import", true)
	v.SetDefault("auto_correct_on_validation", false)
	v.SetDefault("auto_correct_on_import", false)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".datamend")
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve default data locations under ~/.datamend.
	if c.ListsDir == "" || c.RulesFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		if c.ListsDir == "" {
			c.ListsDir = filepath.Join(home, ".datamend", "lists")
		}
		if c.RulesFile == "" {
			c.RulesFile = filepath.Join(home, ".datamend", "rules.csv")
		}
	}
	return &c, nil
}
