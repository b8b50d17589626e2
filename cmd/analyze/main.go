// Command analyze plays batches of simulated games against every preset in
// the configs directory and prints outcome statistics per shooting strategy.
// It is a balance check for presets: how often a simple player wins, how many
// shots it takes, and how much the opponents score along the way.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"runtime"
	"sort"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mcp-training/waterfight/game/config"
	"github.com/wricardo/mcp-training/waterfight/game/engine"
	"github.com/wricardo/mcp-training/waterfight/game/strategy"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Simulate games against each preset and report outcome statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game presets", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.IntFlag{Name: "games", Value: 200, Usage: "Games per preset and strategy"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "Base random seed"},
			&cli.StringSliceFlag{Name: "strategy", Value: strategy.Names(), Usage: "Shooting strategies to simulate"},
			&cli.StringSliceFlag{Name: "preset", Usage: "Only analyze these preset IDs"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := analyzeOptions{
				ConfigDir:  cmd.String("config-dir"),
				Games:      int(cmd.Int("games")),
				Seed:       uint64(cmd.Int("seed")),
				Strategies: cmd.StringSlice("strategy"),
				Presets:    cmd.StringSlice("preset"),
			}
			return run(ctx, os.Stdout, opts)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("Analysis failed")
	}
}

type analyzeOptions struct {
	ConfigDir  string
	Games      int
	Seed       uint64
	Strategies []string
	Presets    []string
}

// Stats aggregates the outcomes of a batch of simulated games
type Stats struct {
	Preset         string
	Strategy       string
	Games          int
	PlayerWins     int
	OpponentWins   int
	TotalShots     int
	TotalScore     int
	FortsDestroyed int
	MinShots       int
	MaxShots       int
}

func (s *Stats) add(r gameRecord) {
	s.Games++
	if r.State == engine.PlayerWon {
		s.PlayerWins++
	} else {
		s.OpponentWins++
	}
	s.TotalShots += r.Shots
	s.TotalScore += r.Score
	s.FortsDestroyed += r.FortsDestroyed
	if s.MinShots == 0 || r.Shots < s.MinShots {
		s.MinShots = r.Shots
	}
	if r.Shots > s.MaxShots {
		s.MaxShots = r.Shots
	}
}

// WinRate returns the fraction of games the player won
func (s Stats) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.PlayerWins) / float64(s.Games)
}

func (s Stats) AverageShots() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.TotalShots) / float64(s.Games)
}

func (s Stats) AverageScore() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.TotalScore) / float64(s.Games)
}

type gameRecord struct {
	State          engine.GameState
	Shots          int
	Score          int
	FortsDestroyed int
}

// playGame runs one game to completion on a private copy of cfg
func playGame(cfg *engine.GameConfig, name string, rng *rand.Rand) (gameRecord, error) {
	local := *cfg
	eng, err := engine.NewEngine(&local, engine.WithRand(rng))
	if err != nil {
		return gameRecord{}, err
	}
	shooter, err := strategy.New(name, rng)
	if err != nil {
		return gameRecord{}, err
	}

	for i := 0; !eng.IsGameOver() && i < engine.BoardSize*engine.BoardSize; i++ {
		target := shooter.Next()
		result := eng.ProcessShotAt(target.Row, target.Col)
		shooter.Observe(target, result.IsHit)
	}

	destroyed := 0
	for _, o := range eng.GetOpponents() {
		if o.IsDestroyed() {
			destroyed++
		}
	}

	return gameRecord{
		State:          eng.GetState(),
		Shots:          eng.ShotCount(),
		Score:          eng.GetScoreBoard().TotalScore(),
		FortsDestroyed: destroyed,
	}, nil
}

// simulate plays games for one preset and strategy. Each game gets its own
// PCG stream so results do not depend on scheduling.
func simulate(ctx context.Context, presetID string, cfg *engine.GameConfig, name string, games int, seed uint64) (Stats, error) {
	records := make([]gameRecord, games)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := 0; i < games; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seed, uint64(i)))
			record, err := playGame(cfg, name, rng)
			if err != nil {
				return fmt.Errorf("%s/%s game %d: %w", presetID, name, i, err)
			}
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	stats := Stats{Preset: presetID, Strategy: name}
	for _, r := range records {
		stats.add(r)
	}
	return stats, nil
}

func run(ctx context.Context, w io.Writer, opts analyzeOptions) error {
	if opts.Games < 1 {
		return fmt.Errorf("games must be positive, got %d", opts.Games)
	}
	for _, s := range opts.Strategies {
		if err := strategy.Validate(s); err != nil {
			return err
		}
	}

	manager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return err
	}
	infos, err := manager.ListConfigs()
	if err != nil {
		return err
	}

	wanted := map[string]bool{}
	for _, p := range opts.Presets {
		wanted[p] = true
	}

	var all []Stats
	for _, info := range infos {
		if len(wanted) > 0 && !wanted[info.ConfigID] {
			continue
		}
		cfg, err := manager.LoadConfig(info.ConfigID)
		if err != nil {
			return err
		}
		for _, name := range opts.Strategies {
			stats, err := simulate(ctx, info.ConfigID, cfg, name, opts.Games, opts.Seed)
			if err != nil {
				return err
			}
			log.Debug().Str("preset", info.ConfigID).Str("strategy", name).Int("games", stats.Games).Msg("Simulated")
			all = append(all, stats)
		}
	}

	if len(all) == 0 {
		return fmt.Errorf("no presets matched in %s", opts.ConfigDir)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Preset != all[j].Preset {
			return all[i].Preset < all[j].Preset
		}
		return all[i].Strategy < all[j].Strategy
	})
	return printStats(w, all)
}

func printStats(w io.Writer, all []Stats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRESET\tSTRATEGY\tGAMES\tWIN%\tAVG SHOTS\tMIN\tMAX\tAVG OPP SCORE\tFORTS DESTROYED")
	for _, s := range all {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%.1f\t%d\t%d\t%.0f\t%d\n",
			s.Preset, s.Strategy, s.Games, s.WinRate()*100, s.AverageShots(),
			s.MinShots, s.MaxShots, s.AverageScore(), s.FortsDestroyed)
	}
	return tw.Flush()
}
