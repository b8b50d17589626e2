package engine

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Turn protocol
	ProcessShot(coordinate string) ShotResult
	ProcessShotAt(row, col int) ShotResult

	// Game state
	GetState() GameState
	IsGameOver() bool
	IsVictory() bool
	GetMessage() string

	// Queries
	BoardView(revealAll bool) BoardView
	OpponentSummaries() []OpponentSummary
	ScoreBoardSummary() ScoreBoardSummary
	ActiveOpponentCount() int
	LastOpponentScores() []int
	ShotCount() int

	// Configuration
	GetConfig() *GameConfig
}

var _ Engine = (*GameEngine)(nil)

// Option customises engine construction
type Option func(*options)

type options struct {
	rng    *rand.Rand
	shapes ShapeSource
}

// WithRand sets the random source used for shapes and anchors
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithShapeSource overrides the shape source chosen from the preset
func WithShapeSource(shapes ShapeSource) Option {
	return func(o *options) {
		o.shapes = shapes
	}
}

// GameEngine implements the Engine interface. It is not safe for concurrent
// use; callers serialize access per game.
type GameEngine struct {
	config     *GameConfig
	board      *Board
	forts      []*Fort
	opponents  []*Opponent
	scoreBoard *ScoreBoard
	state      GameState
	message    string
	lastScores []int
	shots      int
}

// NewEngine creates a game from a preset, placing one fort per opponent.
// It fails with ErrPlacementExhausted if any fort cannot be seated.
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	config.ApplyDefaults()

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.shapes == nil {
		shapes, err := shapeSourceFor(config.Shape, o.rng)
		if err != nil {
			return nil, err
		}
		o.shapes = shapes
	}

	board := NewBoard()
	forts, err := NewPlacer(o.shapes, o.rng).PlaceForts(board, config.Opponents)
	if err != nil {
		return nil, err
	}

	opponents := make([]*Opponent, len(forts))
	for i, fort := range forts {
		opponents[i] = NewOpponent(OpponentID(i), fort)
	}

	return &GameEngine{
		config:     config,
		board:      board,
		forts:      forts,
		opponents:  opponents,
		scoreBoard: NewScoreBoard(),
		state:      InProgress,
		message:    config.Messages.Welcome,
		lastScores: []int{},
	}, nil
}

// NewEngineWithOpponents creates a classic game with n opponents
func NewEngineWithOpponents(n int, opts ...Option) (*GameEngine, error) {
	config := DefaultGameConfig()
	config.Opponents = n
	return NewEngine(config, opts...)
}

func shapeSourceFor(shape string, rng *rand.Rand) (ShapeSource, error) {
	name := strings.ToLower(shape)
	if name == "" || name == ShapeRandom {
		return NewShapeGenerator(rng), nil
	}
	return CanonicalShape(name)
}

// ProcessShot runs one turn for a "LetterNumber" coordinate. An invalid
// coordinate is a harmless miss: nothing changes and no opponent fires.
// The engine does not refuse shots after the game is over; callers check
// IsGameOver first.
func (e *GameEngine) ProcessShot(coordinate string) ShotResult {
	cell, err := e.board.Resolve(coordinate)
	if err != nil {
		return ShotResult{
			IsHit:          false,
			WasAlreadyShot: false,
			OpponentScores: []int{},
			GameState:      e.state,
		}
	}
	return e.shoot(cell)
}

// ProcessShotAt runs one turn for a row/col pair, with the same leniency as ProcessShot
func (e *GameEngine) ProcessShotAt(row, col int) ShotResult {
	cell := e.board.CellAt(row, col)
	if cell == nil {
		return ShotResult{
			OpponentScores: []int{},
			GameState:      e.state,
		}
	}
	return e.shoot(cell)
}

func (e *GameEngine) shoot(cell *Cell) ShotResult {
	e.shots++
	wasAlreadyShot := cell.HasBeenShot()
	isHit := cell.IsPartOfFort()

	if isHit {
		cell.MarkHit()
		if !wasAlreadyShot {
			if opponent := e.opponentForFort(cell.FortID); opponent != nil {
				opponent.HandleFortHit(cell)
			}
		}
	} else {
		cell.MarkMiss()
	}

	scores := e.opponentsFire()
	e.updateState()
	e.updateMessage(cell, isHit, wasAlreadyShot)

	return ShotResult{
		IsHit:          isHit,
		WasAlreadyShot: wasAlreadyShot,
		OpponentScores: scores,
		GameState:      e.state,
	}
}

func (e *GameEngine) opponentForFort(fortID string) *Opponent {
	for _, o := range e.opponents {
		if o.Fort().ID() == fortID {
			return o
		}
	}
	return nil
}

// opponentsFire lets every surviving opponent fire once and records the volley
func (e *GameEngine) opponentsFire() []int {
	scores := []int{}
	for _, o := range e.opponents {
		if !o.CanFire() {
			continue
		}
		if points := o.FireWaterGun(); points > 0 {
			scores = append(scores, points)
		}
	}
	e.scoreBoard.AddOpponentScores(scores)
	e.lastScores = scores
	return scores
}

// updateState re-evaluates the outcome. A win for the player takes priority
// over the opponents reaching the threshold on the same turn.
func (e *GameEngine) updateState() {
	if e.state.IsTerminal() {
		return
	}
	if e.allDestroyed() {
		e.state = PlayerWon
	} else if e.scoreBoard.HasWon() {
		e.state = OpponentsWon
	}
}

func (e *GameEngine) updateMessage(cell *Cell, isHit, wasAlreadyShot bool) {
	m := e.config.Messages
	switch {
	case e.state == PlayerWon:
		e.message = fmt.Sprintf(m.Victory, len(e.forts))
	case e.state == OpponentsWon:
		e.message = fmt.Sprintf(m.Defeat, e.scoreBoard.TotalScore())
	case wasAlreadyShot:
		e.message = m.AlreadyShot
	case isHit:
		if o := e.opponentForFort(cell.FortID); o != nil && o.IsDestroyed() {
			e.message = fmt.Sprintf(m.FortDestroyed, cell.FortID)
		} else {
			e.message = fmt.Sprintf(m.Hit, cell.FortID)
		}
	default:
		e.message = m.Miss
	}
}

func (e *GameEngine) allDestroyed() bool {
	for _, o := range e.opponents {
		if !o.IsDestroyed() {
			return false
		}
	}
	return true
}

// GetState returns the current game state
func (e *GameEngine) GetState() GameState {
	return e.state
}

// IsGameOver reports whether the game reached a terminal state
func (e *GameEngine) IsGameOver() bool {
	return e.state.IsTerminal()
}

// IsVictory reports whether the player won
func (e *GameEngine) IsVictory() bool {
	return e.state == PlayerWon
}

// GetMessage returns the message describing the last turn
func (e *GameEngine) GetMessage() string {
	return e.message
}

// GetConfig returns the preset the game was created from
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// GetBoard returns the board
func (e *GameEngine) GetBoard() *Board {
	return e.board
}

// GetForts returns the placed forts in placement order
func (e *GameEngine) GetForts() []*Fort {
	out := make([]*Fort, len(e.forts))
	copy(out, e.forts)
	return out
}

// GetOpponents returns the opponents in creation order
func (e *GameEngine) GetOpponents() []*Opponent {
	out := make([]*Opponent, len(e.opponents))
	copy(out, e.opponents)
	return out
}

// GetScoreBoard returns the scoreboard
func (e *GameEngine) GetScoreBoard() *ScoreBoard {
	return e.scoreBoard
}

// ShotCount returns the number of shots that landed on the board
func (e *GameEngine) ShotCount() int {
	return e.shots
}

// LastOpponentScores returns the scores of the most recent volley
func (e *GameEngine) LastOpponentScores() []int {
	out := make([]int, len(e.lastScores))
	copy(out, e.lastScores)
	return out
}

// ActiveOpponentCount returns how many opponents still fire
func (e *GameEngine) ActiveOpponentCount() int {
	n := 0
	for _, o := range e.opponents {
		if o.CanFire() {
			n++
		}
	}
	return n
}

// BoardView classifies every cell. Without revealAll unshot cells are fog;
// with it they show as fort or field.
func (e *GameEngine) BoardView(revealAll bool) BoardView {
	size := e.board.Size()
	states := make([][]string, size)
	for row := 0; row < size; row++ {
		states[row] = make([]string, size)
		for col := 0; col < size; col++ {
			states[row][col] = classify(e.board.CellAt(row, col), revealAll)
		}
	}
	return BoardView{BoardWidth: size, BoardHeight: size, CellStates: states}
}

func classify(cell *Cell, revealAll bool) string {
	switch {
	case cell.State == Hit:
		return ViewHit
	case cell.State == Miss:
		return ViewMiss
	case !revealAll:
		return ViewFog
	case cell.IsPartOfFort():
		return ViewFort
	default:
		return ViewField
	}
}

// OpponentSummaries returns one summary per opponent
func (e *GameEngine) OpponentSummaries() []OpponentSummary {
	out := make([]OpponentSummary, len(e.opponents))
	for i, o := range e.opponents {
		out[i] = o.Summary()
	}
	return out
}

// ScoreBoardSummary returns the scoreboard snapshot
func (e *GameEngine) ScoreBoardSummary() ScoreBoardSummary {
	return e.scoreBoard.Summary()
}
