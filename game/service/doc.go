// Package service is the boundary between transports and the water fight engine.
//
// GameService exposes every operation a client can perform: creating and
// deleting games, firing shots by coordinate ("B5") or by row and column,
// reading the board, opponents and scoreboard, switching a game to cheat
// mode, listing presets and listing archived results.
//
// Concurrency:
//
// Each Session carries its own lock. Every call that reads or mutates a game
// holds that lock for the whole operation, so turns on one game are strictly
// serialized while different games proceed in parallel.
//
// Rules enforced here rather than in the engine:
//   - a shot on a finished game fails with ErrGameOver
//   - a row/col shot outside the board fails with engine.ErrInvalidCoordinate
//   - the only accepted cheat state is SHOW_ALL
//
// Usage:
//
//	sessions := session.NewManager()
//	configs, _ := config.NewManager("configs")
//	svc := service.NewGameService(sessions, configs,
//		service.WithArchive(store),
//		service.WithPublisher(hub))
//
//	game, err := svc.CreateGame(ctx, "classic")
//	outcome, err := svc.FireShot(ctx, game.GameNumber, "B5")
package service
