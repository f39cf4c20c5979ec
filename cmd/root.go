package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/packdex/internal/config"
	"github.com/agentic-research/packdex/internal/service"
)

// version is overridden at link time.
var version = "dev"

var (
	configPath string
	basePack   string
	extPacks   string
	cacheDir   string
	logLevel   string
	logFormat  string
	jsonOutput bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file (default $"+config.EnvVar+")")
	pf.StringVar(&basePack, "base", "", "Base asset pack directory")
	pf.StringVar(&extPacks, "external", "", "Directory whose subdirectories are external packs")
	pf.StringVar(&cacheDir, "cache-dir", "", "Content cache directory")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json")
	pf.BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

var rootCmd = &cobra.Command{
	Use:           "packdex",
	Short:         "Index layered asset packs and serve resources by identifier",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("base") {
		cfg.BasePack = basePack
	}
	if flags.Changed("external") {
		cfg.ExternalPacks = extPacks
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir = cacheDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}

	for _, p := range []*string{&cfg.BasePack, &cfg.ExternalPacks, &cfg.CacheDir} {
		if *p == "" {
			continue
		}
		abs, err := absPath(*p)
		if err != nil {
			return nil, err
		}
		*p = abs
	}
	return cfg, nil
}

// newService builds a Service over the host filesystem. Logs go to stderr
// so stdout stays parseable.
func newService(cmd *cobra.Command) (*service.Service, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return service.New(osfs.New("/"), cfg, logger)
}

// absPath makes p absolute, since the service filesystem is rooted at /.
func absPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	return abs, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
