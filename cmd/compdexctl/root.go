package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/compdex/internal/config"
	logpkg "github.com/kailas-cloud/compdex/internal/logger"
	"github.com/kailas-cloud/compdex/internal/version"
	compdex "github.com/kailas-cloud/compdex/pkg/sdk"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	dataDir    string
	fixtures   []string // name=path
	output     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "compdexctl",
		Short: "Comparable property finder",
		Long: `compdexctl finds comparable sold properties for a subject, estimates its
value and manages the guidelines, feedback and learned weights that shape
the selection.

Without --config the file config/<ENV>.yaml is used when present.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			loadEnvFiles()
			if _, err := parseFormat(flags.output); err != nil {
				return err
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default config/<ENV>.yaml)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "keep state in this directory instead of the configured store")
	pf.StringArrayVar(&flags.fixtures, "fixture", nil, "add a fixture provider as name=path (repeatable)")
	pf.StringVarP(&flags.output, "output", "o", "", "output format: table, json, yaml (default table on a terminal, json otherwise)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newFindCmd(flags),
		newGuidelinesCmd(flags),
		newFeedbackCmd(flags),
		newTrainCmd(flags),
		newWeightsCmd(flags),
		newUsageCmd(flags),
		newHealthCmd(flags),
	)
	return root
}

// loadEnvFiles loads .env then .env.local. Missing files are fine and
// variables already set in the environment win.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// open builds the embedded client from the flags.
func (f *rootFlags) open(cmd *cobra.Command) (*compdex.Client, error) {
	logger, err := logpkg.NewLogger(logpkg.EnvCLI, f.logLevel)
	if err != nil {
		return nil, err
	}

	opts := []compdex.Option{compdex.WithServiceLogger(logger.With(zap.String("cmd", cmd.Name())))}
	if path := f.resolveConfigPath(); path != "" {
		opts = append(opts, compdex.WithConfigFile(path))
	}
	if f.dataDir != "" {
		opts = append(opts, compdex.WithFileStore(f.dataDir))
	}
	for _, spec := range f.fixtures {
		name, path, ok := strings.Cut(spec, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("--fixture must be name=path, got %q", spec)
		}
		opts = append(opts, compdex.WithFixtureProvider(name, path))
	}

	return compdex.New(cmd.Context(), opts...)
}

func (f *rootFlags) resolveConfigPath() string {
	if f.configPath != "" {
		return f.configPath
	}
	path := filepath.Join("config", config.GetEnv()+".yaml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
