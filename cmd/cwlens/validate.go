package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/cwlens/pkg/catalog"
	"mercator-hq/cwlens/pkg/cli"
	"mercator-hq/cwlens/pkg/window"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path...]",
	Short: "Validate configuration and window type files",
	Long: `Validate the configuration file and window type definitions.

Each path may be a window type YAML file or a catalog directory. With no
paths the configuration is validated and, when the catalog is enabled, its
directory is checked as well.

Findings are warnings or errors. The command exits with status 3 when any
error is found.

Examples:
  # Validate config and catalog
  cwlens validate --config cwlens.yaml

  # Validate individual files
  cwlens validate catalog/standard.yaml catalog/lean.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "✓ Configuration valid")
		if !cfg.Catalog.Enabled {
			return nil
		}
		paths = []string{cfg.Catalog.Path}
	}

	var reports []cli.ValidationReport
	for _, p := range paths {
		found, err := validatePath(p)
		if err != nil {
			return cli.NewCommandError("validate", err)
		}
		reports = append(reports, found...)
	}

	if err := printResult(cmd.OutOrStdout(), reports); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if r.HasErrors() {
			failed++
		}
	}
	if failed > 0 {
		return &cli.CommandError{
			Command: "validate",
			Err:     fmt.Errorf("%d of %d window types have errors", failed, len(reports)),
			Code:    cli.ExitInvalid,
		}
	}
	return nil
}

func validatePath(path string) ([]cli.ValidationReport, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		report, err := validateFile(path)
		if err != nil {
			return nil, err
		}
		return []cli.ValidationReport{report}, nil
	}

	// Opening the directory as a catalog checks profiles and id uniqueness.
	if _, err := catalog.Open(path, discardLogger()); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if e.IsDir() || strings.HasPrefix(name, ".") || name == catalog.ProfilesFile || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	reports := make([]cli.ValidationReport, 0, len(names))
	for _, name := range names {
		report, err := validateFile(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func validateFile(path string) (cli.ValidationReport, error) {
	wt, err := catalog.LoadWindowType(path)
	if err != nil {
		return cli.ValidationReport{}, err
	}
	issues := wt.Validate()
	if issues == nil {
		issues = []window.Issue{}
	}
	return cli.ValidationReport{Path: path, Window: wt.Name, Issues: issues}, nil
}
