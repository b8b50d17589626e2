package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/waterfight/game/archive"
	"github.com/wricardo/mcp-training/waterfight/game/engine"
	"github.com/wricardo/mcp-training/waterfight/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Water Fight",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Water Fight - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Soak every enemy fort hidden on the 10x10 board before the opponents' cumulative score reaches 2500.

AVAILABLE TOOLS:
- create_game: Start a new game, optionally from a preset
- list_games / get_game: Inspect running games
- fire_shot: Fire at a coordinate like "B5" - requires intent explanation
- fire_at: Fire at a zero-based row/col pair
- board: Render the board (fog of war unless revealed)
- opponents / scoreboard: Fort damage and opponent score
- list_configs: List available presets
- list_results: Recently finished games
- game_instructions: Rules and scoring table

NOTE: The 'intent' parameter on fire_shot serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func gameIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Game number returned by create_game",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Game management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_game",
		Description: "Create a new game with optional preset selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Preset ID (e.g., 'classic', 'skirmish'). Leave empty for the default preset.",
				},
			},
		},
	}, c.handleCreateGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List all active games",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListGames)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_game",
		Description: "Get the status of a game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
			},
			Required: []string{"game_id"},
		},
	}, c.handleGetGame)

	// Turns
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "fire_shot",
		Description: "Fire at a board coordinate (row letter A-J followed by column 1-10). Opponents fire back after every valid shot.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
				"shot": map[string]interface{}{
					"type":        "string",
					"description": "Target coordinate such as 'A1', 'E5' or 'J10'",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Why this cell? Describe what you expect to find there.",
				},
			},
			Required: []string{"game_id", "shot", "intent"},
		},
	}, c.handleFireShot)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "fire_at",
		Description: "Fire at a zero-based row and column",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row index 0-9",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column index 0-9",
				},
			},
			Required: []string{"game_id", "row", "col"},
		},
	}, c.handleFireAt)

	// Views
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board",
		Description: "Render the board. Unshot cells are hidden unless reveal is true or the game has cheat mode on.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
				"reveal": map[string]interface{}{
					"type":        "boolean",
					"description": "Show fort cells that have not been hit yet",
				},
			},
			Required: []string{"game_id"},
		},
	}, c.handleBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "opponents",
		Description: "Show each opponent's fort damage",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
			},
			Required: []string{"game_id"},
		},
	}, c.handleOpponents)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "scoreboard",
		Description: "Show the opponents' cumulative score and recent turns",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty(),
			},
			Required: []string{"game_id"},
		},
	}, c.handleScoreBoard)

	// Presets and history
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_results",
		Description: "List recently finished games",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (default 50)",
				},
			},
		},
	}, c.handleListResults)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules, scoring table and board legend",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil {
			if msg, ok := errResp["error"]; ok {
				return fmt.Errorf("%s", msg)
			}
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg accepts both JSON numbers and numeric strings
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

func gamePath(gameID, suffix string) string {
	return "/api/games/" + url.PathEscape(gameID) + suffix
}

// Tool handlers

func (c *Client) handleCreateGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var game service.GameSummary
	if err := c.apiCall(ctx, "POST", "/api/games", body, &game); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created game: %s\nConfig: %s\n\n%s", game.GameNumber, game.ConfigID, formatSummary(&game))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int                   `json:"count"`
		Games []service.GameSummary `json:"games"`
	}
	if err := c.apiCall(ctx, "GET", "/api/games", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Games (%d):\n\n", response.Count)
	for _, g := range response.Games {
		fmt.Fprintf(&b, "- %s (Config: %s, State: %s, Shots: %d, Opponent points: %d)\n",
			g.GameNumber, g.ConfigID, g.State, g.NumShots, g.OpponentPoints)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, _ := arguments(request)["game_id"].(string)

	var game service.GameSummary
	if err := c.apiCall(ctx, "GET", gamePath(gameID, ""), nil, &game); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSummary(&game)), nil
}

func (c *Client) handleFireShot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, _ := args["game_id"].(string)
	shot, _ := args["shot"].(string)
	intent, _ := args["intent"].(string)

	// Intent is for the caller's own reasoning
	_ = intent

	if strings.TrimSpace(shot) == "" {
		return mcp.NewToolResultError("shot is required, e.g. \"B5\""), nil
	}

	var outcome service.ShotOutcome
	body := map[string]string{"shot": shot}
	if err := c.apiCall(ctx, "POST", gamePath(gameID, "/shots"), body, &outcome); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatShotOutcome(&outcome)), nil
}

func (c *Client) handleFireAt(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, _ := args["game_id"].(string)
	row, okRow := intArg(args, "row")
	col, okCol := intArg(args, "col")
	if !okRow || !okCol {
		return mcp.NewToolResultError("row and col must be integers"), nil
	}

	var outcome service.ShotOutcome
	body := map[string]int{"row": row, "col": col}
	if err := c.apiCall(ctx, "POST", gamePath(gameID, "/moves"), body, &outcome); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatShotOutcome(&outcome)), nil
}

func (c *Client) handleBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, _ := args["game_id"].(string)
	reveal, _ := args["reveal"].(bool)

	path := gamePath(gameID, "/board")
	if reveal {
		path += "?reveal=true"
	}

	var board service.BoardSnapshot
	if err := c.apiCall(ctx, "GET", path, nil, &board); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBoard(&board)), nil
}

func (c *Client) handleOpponents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, _ := arguments(request)["game_id"].(string)

	var opponents []engine.OpponentSummary
	if err := c.apiCall(ctx, "GET", gamePath(gameID, "/opponents"), nil, &opponents); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatOpponents(opponents)), nil
}

func (c *Client) handleScoreBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, _ := arguments(request)["game_id"].(string)

	var sb engine.ScoreBoardSummary
	if err := c.apiCall(ctx, "GET", gamePath(gameID, "/scoreboard"), nil, &sb); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatScoreBoard(&sb)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count   int                  `json:"count"`
		Configs []service.ConfigInfo `json:"configs"`
	}
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available Presets (%d):\n\n", response.Count)
	for _, cfg := range response.Configs {
		shape := cfg.Shape
		if shape == "" {
			shape = engine.ShapeRandom
		}
		fmt.Fprintf(&b, "- %s: %s (%d opponents, %s shapes)\n", cfg.ConfigID, cfg.Name, cfg.Opponents, shape)
		if cfg.Description != "" {
			fmt.Fprintf(&b, "  %s\n", cfg.Description)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/results"
	if limit, ok := intArg(arguments(request), "limit"); ok && limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var response struct {
		Count   int              `json:"count"`
		Results []archive.Result `json:"results"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Finished Games (%d):\n\n", response.Count)
	for _, r := range response.Results {
		fmt.Fprintf(&b, "- Game %s [%s] %s after %d shots, opponents scored %d, forts destroyed %d/%d (%s)\n",
			r.GameID, r.ConfigID, r.Outcome, r.Shots, r.OpponentScore,
			r.FortsDestroyed, r.Opponents, r.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameInstructions), nil
}

const gameInstructions = `WATER FIGHT - RULES

BOARD
- 10x10 grid. Rows are letters A-J (top to bottom), columns are numbers 1-10.
- Each opponent hides one fort of 5 connected cells. Forts never overlap.

TURN
1. You fire at one cell (fire_shot "C7" or fire_at row=2 col=6).
2. If the cell belongs to a fort it is HIT, otherwise it is a MISS.
3. Every opponent whose fort still stands fires back and scores points.
Shooting a cell twice, or an invalid coordinate, wastes nothing: opponents do not fire.

OPPONENT SCORING (per turn, by undamaged cells left in their fort)
  5 or 4 cells: 20 points
  3 cells:       5 points
  2 cells:       2 points
  1 cell:        1 point
  0 cells:       destroyed, no more fire

WINNING
- You win when every fort is destroyed.
- You lose when the opponents' cumulative score reaches 2500.
- Damaging a fort early is what slows the opponents down.

BOARD LEGEND
  .  unknown (fog)
  X  hit
  o  miss
  #  fort cell not yet hit (only when revealed)
  ~  empty water (only when revealed)

STRATEGY
- Once you hit, probe the four neighbours: fort cells are rook-connected.
- Spread early shots in a checkerboard pattern to find forts quickly.`

// Formatting helpers

func formatSummary(game *service.GameSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game %s | State: %s | Shots: %d\n", game.GameNumber, game.State, game.NumShots)
	fmt.Fprintf(&b, "Opponent points: %d (need %d more to win) | Active forts: %d\n",
		game.OpponentPoints, game.PointsNeededToWin, game.NumActiveOpponentForts)
	if len(game.LastOpponentPoints) > 0 {
		fmt.Fprintf(&b, "Last counter-fire: %v\n", game.LastOpponentPoints)
	}
	if game.CheatMode {
		b.WriteString("Cheat mode: ON\n")
	}
	if game.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", game.Message)
	}
	return b.String()
}

func formatShotOutcome(outcome *service.ShotOutcome) string {
	var b strings.Builder
	switch {
	case outcome.WasAlreadyShot:
		fmt.Fprintf(&b, "• %s was already shot\n", outcome.Coordinate)
	case outcome.IsHit:
		fmt.Fprintf(&b, "✓ HIT at %s\n", outcome.Coordinate)
	default:
		fmt.Fprintf(&b, "✗ Miss at %s\n", outcome.Coordinate)
	}

	if len(outcome.OpponentScores) > 0 {
		total := 0
		for _, s := range outcome.OpponentScores {
			total += s
		}
		fmt.Fprintf(&b, "Opponents fired back: %v (total %d)\n", outcome.OpponentScores, total)
	}
	if outcome.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", outcome.Message)
	}

	if outcome.Game != nil {
		b.WriteString("\n")
		b.WriteString(formatSummary(outcome.Game))
	}

	switch outcome.GameState {
	case engine.PlayerWon:
		b.WriteString("\n🎉 YOU WIN! All forts destroyed.\n")
	case engine.OpponentsWon:
		b.WriteString("\n💦 GAME OVER - the opponents soaked you.\n")
	}
	return b.String()
}

var cellGlyphs = map[string]string{
	engine.ViewFog:   ".",
	engine.ViewHit:   "X",
	engine.ViewMiss:  "o",
	engine.ViewFort:  "#",
	engine.ViewField: "~",
}

func formatBoard(board *service.BoardSnapshot) string {
	var b strings.Builder
	if board.Revealed {
		b.WriteString("Board (revealed)\n\n")
	} else {
		b.WriteString("Board\n\n")
	}

	b.WriteString("   ")
	for col := 0; col < board.BoardWidth; col++ {
		fmt.Fprintf(&b, "%3d", col+1)
	}
	b.WriteString("\n")

	for row, cells := range board.CellStates {
		fmt.Fprintf(&b, "%-3s", string(rune('A'+row)))
		for _, cell := range cells {
			glyph, ok := cellGlyphs[cell]
			if !ok {
				glyph = "?"
			}
			fmt.Fprintf(&b, "%3s", glyph)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nLegend: . unknown, X hit, o miss")
	if board.Revealed {
		b.WriteString(", # fort, ~ water")
	}
	b.WriteString("\n")
	return b.String()
}

func formatOpponents(opponents []engine.OpponentSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Opponents (%d):\n\n", len(opponents))
	for _, o := range opponents {
		status := "standing"
		if o.IsDestroyed {
			status = "destroyed"
		}
		fmt.Fprintf(&b, "- %s (fort %s): %d/%d cells undamaged, %s, fires %d\n",
			o.OpponentID, o.FortID, o.UndamagedCellCount, o.TotalCellCount, status,
			engine.PointsForUndamaged(o.UndamagedCellCount))
	}
	return b.String()
}

func formatScoreBoard(sb *engine.ScoreBoardSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Opponent score: %d / %d (%d to go)\n", sb.TotalScore, sb.WinningScore, sb.PointsNeededToWin)
	fmt.Fprintf(&b, "Scoring turns: %d | Average: %.1f | Best turn: %d\n", sb.TurnCount, sb.AverageScore, sb.MaxScoreInTurn)
	if len(sb.RecentScores) > 0 {
		fmt.Fprintf(&b, "Recent turns: %v\n", sb.RecentScores)
	}
	return b.String()
}
