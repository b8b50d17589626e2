package engine

import "fmt"

// Opponent fires back at the player from one fort
type Opponent struct {
	id        string
	fort      *Fort
	destroyed bool
}

// NewOpponent wraps fort
func NewOpponent(id string, fort *Fort) *Opponent {
	return &Opponent{id: id, fort: fort, destroyed: fort.IsDestroyed()}
}

// ID returns the opponent identifier ("#1", "#2", ...)
func (o *Opponent) ID() string {
	return o.id
}

// Fort returns the opponent's fort
func (o *Opponent) Fort() *Fort {
	return o.fort
}

// FireWaterGun returns the points scored this turn. Firing never damages the fort.
func (o *Opponent) FireWaterGun() int {
	if o.IsDestroyed() {
		return 0
	}
	return o.fort.PotentialPoints()
}

// HandleFortHit forwards a hit to the fort. Once destroyed, always destroyed.
func (o *Opponent) HandleFortHit(cell *Cell) int {
	if o.destroyed {
		return 0
	}
	points := o.fort.HandleHit(cell)
	if o.fort.IsDestroyed() {
		o.destroyed = true
	}
	return points
}

// IsDestroyed reports whether the opponent's fort has been destroyed
func (o *Opponent) IsDestroyed() bool {
	return o.destroyed
}

// CanFire reports whether the opponent still fires
func (o *Opponent) CanFire() bool {
	return !o.IsDestroyed()
}

// Summary returns a snapshot of the opponent
func (o *Opponent) Summary() OpponentSummary {
	return OpponentSummary{
		OpponentID:         o.id,
		FortID:             o.fort.ID(),
		UndamagedCellCount: o.fort.UndamagedCellCount(),
		TotalCellCount:     o.fort.TotalCellCount(),
		IsDestroyed:        o.IsDestroyed(),
	}
}

func (o *Opponent) String() string {
	return fmt.Sprintf("Opponent(%s)[Fort: %s, Destroyed: %t]", o.id, o.fort.ID(), o.destroyed)
}

// OpponentID returns the identifier for the i-th opponent (0 -> "#1")
func OpponentID(i int) string {
	return fmt.Sprintf("#%d", i+1)
}
