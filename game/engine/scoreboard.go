package engine

import "fmt"

// ScoreBoard accumulates the opponents' score turn by turn
type ScoreBoard struct {
	total   int
	history []int
}

// NewScoreBoard creates an empty scoreboard
func NewScoreBoard() *ScoreBoard {
	return &ScoreBoard{history: []int{}}
}

// AddOpponentScores adds one turn's volley. Only positive entries count, and a
// turn whose sum is zero is not recorded.
func (s *ScoreBoard) AddOpponentScores(scores []int) {
	sum := 0
	for _, score := range scores {
		if score > 0 {
			sum += score
		}
	}
	if sum > 0 {
		s.total += sum
		s.history = append(s.history, sum)
	}
}

// TotalScore returns the running total
func (s *ScoreBoard) TotalScore() int {
	return s.total
}

// History returns a copy of the recorded per-turn totals in turn order
func (s *ScoreBoard) History() []int {
	out := make([]int, len(s.history))
	copy(out, s.history)
	return out
}

// HasWon reports whether the opponents reached WinningScore
func (s *ScoreBoard) HasWon() bool {
	return s.total >= WinningScore
}

// PointsNeededToWin returns how far the opponents are from WinningScore
func (s *ScoreBoard) PointsNeededToWin() int {
	return max(0, WinningScore-s.total)
}

// TurnCount returns the number of recorded turns
func (s *ScoreBoard) TurnCount() int {
	return len(s.history)
}

// AverageScorePerTurn returns the mean recorded turn score
func (s *ScoreBoard) AverageScorePerTurn() float64 {
	if len(s.history) == 0 {
		return 0
	}
	return float64(s.total) / float64(len(s.history))
}

// MaxScoreInTurn returns the highest recorded turn score
func (s *ScoreBoard) MaxScoreInTurn() int {
	best := 0
	for _, v := range s.history {
		best = max(best, v)
	}
	return best
}

// RecentScores returns up to the last n recorded turn scores
func (s *ScoreBoard) RecentScores(n int) []int {
	if n <= 0 {
		return []int{}
	}
	start := max(0, len(s.history)-n)
	out := make([]int, len(s.history)-start)
	copy(out, s.history[start:])
	return out
}

// Summary returns a snapshot of the scoreboard
func (s *ScoreBoard) Summary() ScoreBoardSummary {
	return ScoreBoardSummary{
		TotalScore:        s.total,
		WinningScore:      WinningScore,
		PointsNeededToWin: s.PointsNeededToWin(),
		TurnCount:         s.TurnCount(),
		AverageScore:      s.AverageScorePerTurn(),
		MaxScoreInTurn:    s.MaxScoreInTurn(),
		RecentScores:      s.RecentScores(MaxRecentScores),
	}
}

func (s *ScoreBoard) String() string {
	return fmt.Sprintf("Score: %d/%d | Turns: %d | Avg: %.1f | Max: %d",
		s.total, WinningScore, s.TurnCount(), s.AverageScorePerTurn(), s.MaxScoreInTurn())
}
