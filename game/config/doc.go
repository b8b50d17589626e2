// Package config manages game presets for the water fight server.
//
// Presets are JSON or YAML files in a directory. Each one names the number of
// opponents (1 to 10), an optional fixed fort shape and the player-facing
// messages:
//
//	name: siege
//	description: Ten opponents, every fort a plus sign
//	opponents: 10
//	shape: plus
//	messages:
//	  hit: "Soaked fort %s!"
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal().Err(err).Send()
//	}
//
//	siege, err := manager.LoadConfig("siege")
//	presets, err := manager.ListConfigs()
//
// The default preset is "classic" when present, otherwise the first valid
// preset, otherwise the built-in classic game.
package config
