// Command validate checks the game presets in a configs directory. For each
// *.json, *.yaml and *.yml file it checks:
//   - the file parses and passes preset validation (name, description,
//     opponent count, shape name, message placeholders)
//   - the forts can actually be placed: seeded trial games are created and
//     at most a tenth of them may exhaust fort placement
//   - no two files share a preset ID (classic.json and classic.yaml collide)
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"github.com/wricardo/mcp-training/waterfight/game/engine"
)

// maxFailureRate is the share of trial games allowed to exhaust placement
const maxFailureRate = 0.1

// ValidationResult captures the outcome of validating a single file.
// Errors holds problems found; Notes holds informational lines.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Notes  []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) note(format string, args ...interface{}) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single preset file, then creates
// trials seeded games from it to prove the forts fit on the board.
func validateConfig(filePath string, trials int) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	config, err := engine.DecodeGameConfig(filePath, data)
	if err != nil {
		result.fail("Invalid syntax: %v", err)
		return result
	}

	if err := engine.ValidateGameConfig(config); err != nil {
		result.fail("%v", err)
		return result
	}

	shape := config.Shape
	if shape == "" {
		shape = engine.ShapeRandom
	}
	result.note("✓ %s: %d opponents, %s shapes", config.Name, config.Opponents, shape)

	failures := 0
	for i := 0; i < trials; i++ {
		trial := *config
		rng := rand.New(rand.NewPCG(uint64(i), uint64(len(filePath))))
		if _, err := engine.NewEngine(&trial, engine.WithRand(rng)); err != nil {
			if !errors.Is(err, engine.ErrPlacementExhausted) && !errors.Is(err, engine.ErrShapeExhausted) {
				result.fail("Game creation failed: %v", err)
				return result
			}
			failures++
		}
	}

	switch {
	case trials == 0:
	case float64(failures) > maxFailureRate*float64(trials):
		result.fail("Placement exhausted in %d/%d trial games", failures, trials)
	case failures > 0:
		result.note("⚠ Placement: exhausted in %d/%d trial games", failures, trials)
	default:
		result.note("✓ Placement: %d/%d trial games seated every fort", trials, trials)
	}

	return result
}

// presetFiles lists preset files in dir, sorted by name
func presetFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// duplicateIDs reports preset IDs claimed by more than one file
func duplicateIDs(files []string) error {
	owners := map[string][]string{}
	for _, f := range files {
		base := filepath.Base(f)
		id := strings.TrimSuffix(base, filepath.Ext(base))
		owners[id] = append(owners[id], base)
	}

	var errs error
	ids := make([]string, 0, len(owners))
	for id := range owners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if len(owners[id]) > 1 {
			errs = multierr.Append(errs, fmt.Errorf("preset ID %q is defined by %s", id, strings.Join(owners[id], ", ")))
		}
	}
	return errs
}

// validateDir validates every preset in dir, writes a report to w and
// returns the combined errors.
func validateDir(w io.Writer, dir string, trials int) error {
	files, err := presetFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no presets found in %s", dir)
	}

	var errs error
	for _, file := range files {
		result := validateConfig(file, trials)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Notes {
				fmt.Fprintln(w, "  "+info)
			}
			continue
		}

		fmt.Fprintln(w, "❌ INVALID")
		for _, msg := range result.Errors {
			fmt.Fprintln(w, "  ❌ "+msg)
			errs = multierr.Append(errs, fmt.Errorf("%s: %s", result.File, msg))
		}
	}

	if dupErr := duplicateIDs(files); dupErr != nil {
		fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
		for _, e := range multierr.Errors(dupErr) {
			fmt.Fprintln(w, "❌ "+e.Error())
		}
		errs = multierr.Append(errs, dupErr)
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if errs == nil {
		fmt.Fprintln(w, "✅ All presets are valid!")
	} else {
		fmt.Fprintf(w, "❌ %d problem(s) found\n", len(multierr.Errors(errs)))
	}
	return errs
}

func main() {
	cmd := &cli.Command{
		Name:  "validate",
		Usage: "Validate game presets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game presets", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.IntFlag{Name: "trials", Value: 50, Usage: "Seeded trial games per preset"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := validateDir(os.Stdout, cmd.String("config-dir"), int(cmd.Int("trials"))); err != nil {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
