// Command autoplay plays water fight games against a running server over the
// REST API. It creates a game (or resumes one by number), fires at the board
// with one of the automated strategies until the game ends, and reports the
// result. With --watch it also subscribes to the game's websocket feed and
// logs every event the server broadcasts.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/waterfight/game/engine"
	"github.com/wricardo/mcp-training/waterfight/game/service"
	"github.com/wricardo/mcp-training/waterfight/game/strategy"
	feed "github.com/wricardo/mcp-training/waterfight/transport/websocket"
)

const (
	requestTimeout = 10 * time.Second
	maxRetries     = 5
)

// errTransient marks failures worth retrying: connection errors and 5xx
var errTransient = errors.New("transient failure")

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %d", e.Status)
	}
	return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
}

// Client talks to the game REST API
type Client struct {
	baseURL string
	client  *http.Client
	retry   backoff.Backoff
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
		retry:   backoff.Backoff{Min: 50 * time.Millisecond, Max: 2 * time.Second, Factor: 2, Jitter: true},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errTransient, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", errTransient, err)
	}

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.Unmarshal(data, &apiErr)
		err := &APIError{Status: resp.StatusCode, Message: apiErr.Error}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %v", errTransient, err)
		}
		return err
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// call retries transient failures with exponential backoff
func (c *Client) call(ctx context.Context, method, path string, body, result interface{}) error {
	b := c.retry
	for attempt := 1; ; attempt++ {
		err := c.do(ctx, method, path, body, result)
		if err == nil || !errors.Is(err, errTransient) || attempt >= maxRetries {
			return err
		}

		wait := b.Duration()
		log.Debug().Err(err).Int("attempt", attempt).Dur("wait", wait).Str("path", path).Msg("Retrying request")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) CreateGame(ctx context.Context, configID string) (*service.GameSummary, error) {
	var game service.GameSummary
	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}
	if err := c.call(ctx, http.MethodPost, "/api/games", body, &game); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return &game, nil
}

func (c *Client) GetGame(ctx context.Context, gameID string) (*service.GameSummary, error) {
	var game service.GameSummary
	if err := c.call(ctx, http.MethodGet, "/api/games/"+url.PathEscape(gameID), nil, &game); err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return &game, nil
}

func (c *Client) GetBoard(ctx context.Context, gameID string) (*service.BoardSnapshot, error) {
	var board service.BoardSnapshot
	if err := c.call(ctx, http.MethodGet, "/api/games/"+url.PathEscape(gameID)+"/board", nil, &board); err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	return &board, nil
}

func (c *Client) FireAt(ctx context.Context, gameID string, target engine.Coordinate) (*service.ShotOutcome, error) {
	var outcome service.ShotOutcome
	body := map[string]int{"row": target.Row, "col": target.Col}
	if err := c.call(ctx, http.MethodPost, "/api/games/"+url.PathEscape(gameID)+"/moves", body, &outcome); err != nil {
		return nil, fmt.Errorf("fire at %s: %w", engine.FormatCoordinate(target.Row, target.Col), err)
	}
	return &outcome, nil
}

// Result is the final tally of one autoplayed game
type Result struct {
	GameID         string
	State          engine.GameState
	Shots          int
	Hits           int
	OpponentPoints int
}

// Player fires shots chosen by a strategy until the game ends
type Player struct {
	client  *Client
	shooter strategy.Shooter
	delay   time.Duration
	verbose bool
}

// resume feeds cells already shot in gameID to the shooter so it does not
// waste turns on them.
func (p *Player) resume(ctx context.Context, gameID string) (int, error) {
	board, err := p.client.GetBoard(ctx, gameID)
	if err != nil {
		return 0, err
	}

	hits := 0
	for row, cells := range board.CellStates {
		for col, cell := range cells {
			switch cell {
			case engine.ViewHit:
				hits++
				p.shooter.Observe(engine.Coordinate{Row: row, Col: col}, true)
			case engine.ViewMiss:
				p.shooter.Observe(engine.Coordinate{Row: row, Col: col}, false)
			}
		}
	}
	return hits, nil
}

// Play runs game to completion and returns the final tally
func (p *Player) Play(ctx context.Context, game *service.GameSummary) (*Result, error) {
	result := &Result{
		GameID:         game.GameNumber,
		State:          game.State,
		Shots:          game.NumShots,
		OpponentPoints: game.OpponentPoints,
	}

	if game.NumShots > 0 {
		hits, err := p.resume(ctx, game.GameNumber)
		if err != nil {
			return nil, err
		}
		result.Hits = hits
	}

	for i := 0; !result.State.IsTerminal() && i < engine.BoardSize*engine.BoardSize; i++ {
		target := p.shooter.Next()
		outcome, err := p.client.FireAt(ctx, game.GameNumber, target)
		if err != nil {
			return nil, err
		}
		p.shooter.Observe(target, outcome.IsHit)

		if outcome.IsHit {
			result.Hits++
		}
		result.State = outcome.GameState
		if outcome.Game != nil {
			result.Shots = outcome.Game.NumShots
			result.OpponentPoints = outcome.Game.OpponentPoints
		}

		if p.verbose {
			log.Info().
				Str("game", game.GameNumber).
				Str("target", outcome.Coordinate).
				Bool("hit", outcome.IsHit).
				Ints("returnFire", outcome.OpponentScores).
				Msg(outcome.Message)
		}

		if p.delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.delay):
			}
		}
	}

	if !result.State.IsTerminal() {
		return result, fmt.Errorf("game %s still %s after every cell was shot", game.GameNumber, result.State)
	}
	return result, nil
}

// watch logs the events broadcast for gameID to logger until ctx is done or
// the server closes the connection.
func watch(ctx context.Context, baseURL, gameID string, logger zerolog.Logger) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"game": {gameID}, "format": {feed.FormatMsgpack}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		message, err := feed.Decode(data, feed.FormatMsgpack)
		if err != nil {
			logger.Warn().Err(err).Msg("Undecodable event")
			continue
		}
		entry := logger.Info().Str("game", message.GameID).Str("event", message.Event)
		if message.Data != nil {
			entry.Msg(message.Data.Message)
		} else {
			entry.Send()
		}
	}
}

type autoplayOptions struct {
	URL      string
	ConfigID string
	Resume   string
	Strategy string
	Games    int
	Seed     uint64
	Delay    time.Duration
	Watch    bool
	Verbose  bool
}

func run(ctx context.Context, w io.Writer, opts autoplayOptions) error {
	if err := strategy.Validate(opts.Strategy); err != nil {
		return err
	}
	if opts.Games < 1 {
		return fmt.Errorf("games must be positive, got %d", opts.Games)
	}

	if opts.Seed == 0 {
		opts.Seed = uint64(time.Now().UnixNano())
	}

	client := NewClient(opts.URL)
	wins := 0

	for i := 0; i < opts.Games; i++ {
		var (
			game *service.GameSummary
			err  error
		)
		if i == 0 && opts.Resume != "" {
			game, err = client.GetGame(ctx, opts.Resume)
		} else {
			game, err = client.CreateGame(ctx, opts.ConfigID)
		}
		if err != nil {
			return err
		}

		rng := rand.New(rand.NewPCG(opts.Seed, uint64(i)))
		shooter, err := strategy.New(opts.Strategy, rng)
		if err != nil {
			return err
		}

		gameCtx, cancel := context.WithCancel(ctx)
		if opts.Watch {
			go func(id string) {
				if err := watch(gameCtx, opts.URL, id, log.Logger); err != nil {
					log.Warn().Err(err).Str("game", id).Msg("Event feed closed")
				}
			}(game.GameNumber)
		}

		player := &Player{client: client, shooter: shooter, delay: opts.Delay, verbose: opts.Verbose}
		result, err := player.Play(gameCtx, game)
		cancel()
		if err != nil {
			return err
		}

		if result.State == engine.PlayerWon {
			wins++
			fmt.Fprintf(w, "🎉 Game %s won in %d shots (%d hits), opponents scored %d\n",
				result.GameID, result.Shots, result.Hits, result.OpponentPoints)
		} else {
			fmt.Fprintf(w, "💦 Game %s lost after %d shots (%d hits), opponents scored %d\n",
				result.GameID, result.Shots, result.Hits, result.OpponentPoints)
		}
	}

	fmt.Fprintf(w, "Won %d/%d games with the %s strategy\n", wins, opts.Games, opts.Strategy)
	return nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cmd := &cli.Command{
		Name:  "autoplay",
		Usage: "Play water fight games against a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL", Sources: cli.EnvVars("WATERFIGHT_URL")},
			&cli.StringFlag{Name: "config", Usage: "Preset ID for new games (server default when empty)"},
			&cli.StringFlag{Name: "continue", Usage: "Resume an existing game by number before creating new ones"},
			&cli.StringFlag{Name: "strategy", Value: strategy.Hunt, Usage: "Shooting strategy: " + strings.Join(strategy.Names(), ", ")},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "Number of games to play"},
			&cli.IntFlag{Name: "seed", Usage: "Random seed for the shooter (0 picks one from the clock)"},
			&cli.DurationFlag{Name: "delay", Usage: "Pause between shots"},
			&cli.BoolFlag{Name: "watch", Usage: "Log websocket events for each game"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Log every shot"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, os.Stdout, autoplayOptions{
				URL:      cmd.String("url"),
				ConfigID: cmd.String("config"),
				Resume:   cmd.String("continue"),
				Strategy: cmd.String("strategy"),
				Games:    int(cmd.Int("games")),
				Seed:     uint64(cmd.Int("seed")),
				Delay:    cmd.Duration("delay"),
				Watch:    cmd.Bool("watch"),
				Verbose:  cmd.Bool("verbose"),
			})
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("Autoplay failed")
	}
}
