// Package mcp provides a Model Context Protocol server for Water Fight.
//
// The server is a thin client of the REST API: every tool call is translated
// into an HTTP request against /api and the JSON response is rendered as text
// for the agent.
//
// Tools:
//   - create_game, list_games, get_game: game management
//   - fire_shot: fire at a coordinate such as "B5" (requires intent)
//   - fire_at: fire at a zero-based row/col pair
//   - board: text grid of the board, optionally revealed
//   - opponents, scoreboard: fort damage and opponent score
//   - list_configs, list_results: presets and finished games
//   - game_instructions: rules and scoring table
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
