package engine

// CellState represents what is known about a board cell
type CellState string

const (
	Unknown CellState = "UNKNOWN"
	Hit     CellState = "HIT"
	Miss    CellState = "MISS"
)

// GameState represents the overall status of a game
type GameState string

const (
	InProgress   GameState = "IN_PROGRESS"
	PlayerWon    GameState = "PLAYER_WON"
	OpponentsWon GameState = "OPPONENTS_WON"
)

// IsTerminal reports whether no further state change is possible
func (s GameState) IsTerminal() bool {
	return s == PlayerWon || s == OpponentsWon
}

// Board view classifications
const (
	ViewFog   = "fog"
	ViewHit   = "hit"
	ViewMiss  = "miss"
	ViewFort  = "fort"
	ViewField = "field"
)

const (
	BoardSize            = 10
	FortSize             = 5
	WinningScore         = 2500
	MaxPlacementAttempts = 20
	MaxShapeAttempts     = 100
	DefaultOpponents     = 5
	MinOpponents         = 1
	MaxOpponents         = 10
	MaxRecentScores      = 50
	WebSocketBufferSize  = 256
)

// Offset is a (row, col) position relative to a shape origin
type Offset struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Coordinate is an absolute board position
type Coordinate struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// ShotResult is the outcome of a single player shot
type ShotResult struct {
	IsHit          bool      `json:"isHit"`
	WasAlreadyShot bool      `json:"wasAlreadyShot"`
	OpponentScores []int     `json:"opponentScores"`
	GameState      GameState `json:"gameState"`
}

// BoardView is a per-cell classification snapshot of the board
type BoardView struct {
	BoardWidth  int        `json:"boardWidth"`
	BoardHeight int        `json:"boardHeight"`
	CellStates  [][]string `json:"cellStates"`
}

// OpponentSummary describes one opponent and its fort
type OpponentSummary struct {
	OpponentID         string `json:"opponentId"`
	FortID             string `json:"fortId"`
	UndamagedCellCount int    `json:"undamagedCellCount"`
	TotalCellCount     int    `json:"totalCellCount"`
	IsDestroyed        bool   `json:"isDestroyed"`
}

// ScoreBoardSummary describes the opponents' cumulative score
type ScoreBoardSummary struct {
	TotalScore        int     `json:"totalScore"`
	WinningScore      int     `json:"winningScore"`
	PointsNeededToWin int     `json:"pointsNeededToWin"`
	TurnCount         int     `json:"turnCount"`
	AverageScore      float64 `json:"averageScore"`
	MaxScoreInTurn    int     `json:"maxScoreInTurn"`
	RecentScores      []int   `json:"recentScores"`
}
