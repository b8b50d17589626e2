package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// GameMessages are the player-facing texts of a preset
type GameMessages struct {
	Welcome       string `json:"welcome" yaml:"welcome"`
	Hit           string `json:"hit" yaml:"hit"`
	Miss          string `json:"miss" yaml:"miss"`
	AlreadyShot   string `json:"already_shot" yaml:"already_shot"`
	FortDestroyed string `json:"fort_destroyed" yaml:"fort_destroyed"`
	Victory       string `json:"victory" yaml:"victory"`
	Defeat        string `json:"defeat" yaml:"defeat"`
}

// GameConfig is a game preset
type GameConfig struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
	Opponents   int          `json:"opponents" yaml:"opponents"`
	Shape       string       `json:"shape,omitempty" yaml:"shape,omitempty"`
	Messages    GameMessages `json:"messages" yaml:"messages"`
}

var defaultMessages = GameMessages{
	Welcome:       "Welcome! Soak every enemy fort before they soak you.",
	Hit:           "Hit! Fort %s took a splash.",
	Miss:          "Miss.",
	AlreadyShot:   "You already shot there.",
	FortDestroyed: "Fort %s is destroyed!",
	Victory:       "Victory! All %d forts destroyed.",
	Defeat:        "Defeat! The opponents scored %d points.",
}

// DefaultGameConfig returns the built-in classic preset
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:        "classic",
		Description: "Five opponents on a 10x10 board",
		Opponents:   DefaultOpponents,
		Shape:       ShapeRandom,
		Messages:    defaultMessages,
	}
}

// ApplyDefaults fills empty messages and shape with built-in values
func (c *GameConfig) ApplyDefaults() {
	if c.Shape == "" {
		c.Shape = ShapeRandom
	}
	m := &c.Messages
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&m.Welcome, defaultMessages.Welcome)
	fill(&m.Hit, defaultMessages.Hit)
	fill(&m.Miss, defaultMessages.Miss)
	fill(&m.AlreadyShot, defaultMessages.AlreadyShot)
	fill(&m.FortDestroyed, defaultMessages.FortDestroyed)
	fill(&m.Victory, defaultMessages.Victory)
	fill(&m.Defeat, defaultMessages.Defeat)
}

// ValidateGameConfig validates a preset for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}
	if config.Opponents < MinOpponents || config.Opponents > MaxOpponents {
		return fmt.Errorf("config validation: opponents must be between %d and %d, got %d",
			MinOpponents, MaxOpponents, config.Opponents)
	}

	shape := strings.ToLower(config.Shape)
	if shape != "" && shape != ShapeRandom {
		if _, err := CanonicalShape(shape); err != nil {
			return fmt.Errorf("config validation: %v", err)
		}
	}

	if config.Messages.Hit != "" && !strings.Contains(config.Messages.Hit, "%s") {
		return fmt.Errorf("config validation: messages.hit must contain %%s for the fort id")
	}
	if config.Messages.FortDestroyed != "" && !strings.Contains(config.Messages.FortDestroyed, "%s") {
		return fmt.Errorf("config validation: messages.fort_destroyed must contain %%s for the fort id")
	}
	if config.Messages.Victory != "" && !strings.Contains(config.Messages.Victory, "%d") {
		return fmt.Errorf("config validation: messages.victory must contain %%d for the fort count")
	}
	if config.Messages.Defeat != "" && !strings.Contains(config.Messages.Defeat, "%d") {
		return fmt.Errorf("config validation: messages.defeat must contain %%d for the score")
	}

	return nil
}

// DecodeGameConfig parses a preset; format is chosen by the file extension
// (".yaml"/".yml" for YAML, anything else JSON)
func DecodeGameConfig(filename string, data []byte) (*GameConfig, error) {
	var config GameConfig
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
	}
	return &config, nil
}

// LoadGameConfig loads and validates a preset file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := DecodeGameConfig(filename, data)
	if err != nil {
		return nil, err
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	config.ApplyDefaults()

	return config, nil
}
