// Package api provides the HTTP REST API for the water fight server.
//
// Endpoints:
//
// General:
//   - GET /api/about - Application name and version
//
// Games:
//   - POST /api/games - Create a game; optional body {"config_id": "siege"}
//   - GET /api/games - List live games
//   - GET /api/games/{id} - Game summary
//   - DELETE /api/games/{id} - Remove a game
//
// Turns:
//   - POST /api/games/{id}/shots - Body {"shot": "B5"}; 200 with the shot outcome
//   - POST /api/games/{id}/moves - Body {"row": 1, "col": 4}; 202 with the shot outcome
//
// Views:
//   - GET /api/games/{id}/board - Board view; ?reveal=true shows forts
//   - POST /api/games/{id}/cheatstate - Body SHOW_ALL; reveals the board for good
//   - GET /api/games/{id}/opponents - Opponent summaries
//   - GET /api/games/{id}/scoreboard - Opponent score totals and history
//
// Presets and results:
//   - GET /api/configs - List presets
//   - GET /api/configs/{name} - Preset details
//   - GET /api/results?limit=N - Most recent finished games
//
// Streaming:
//   - GET /ws?game={id}[&format=msgpack] - WebSocket event stream
//
// Error Handling:
//
// Errors are returned as JSON: {"error": "message"}. Unknown games and
// presets are 404; shots on finished games, off-board moves and unknown cheat
// states are 400; anything else is 500.
//
// Every request passes through request-id, real-ip and panic recovery
// middleware and is logged with zerolog.
package api
