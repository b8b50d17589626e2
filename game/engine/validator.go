package engine

// IsValidPlacement checks, in order: the candidate is non-empty and inside a
// boardSize square, its cells form one 4-connected component, and none of
// them is already claimed by an existing fort.
func IsValidPlacement(candidate []Coordinate, existing []*Fort, boardSize int) bool {
	if len(candidate) == 0 {
		return false
	}
	for _, c := range candidate {
		if !withinBounds(c, boardSize) {
			return false
		}
	}
	if !IsConnected(candidate) {
		return false
	}
	for _, fort := range existing {
		if overlaps(candidate, fort.Coordinates()) {
			return false
		}
	}
	return true
}

// IsConnected reports whether the cells form a single 4-connected component.
// The check flood-fills from the first cell.
func IsConnected(cells []Coordinate) bool {
	if len(cells) < 2 {
		return true
	}

	visited := make([]bool, len(cells))
	queue := []int{0}
	visited[0] = true
	reached := 1

	for len(queue) > 0 {
		current := cells[queue[0]]
		queue = queue[1:]
		for i, other := range cells {
			if !visited[i] && adjacent(current, other) {
				visited[i] = true
				queue = append(queue, i)
				reached++
			}
		}
	}

	return reached == len(cells)
}

func withinBounds(c Coordinate, boardSize int) bool {
	return c.Row >= 0 && c.Row < boardSize && c.Col >= 0 && c.Col < boardSize
}

func adjacent(a, b Coordinate) bool {
	dr := abs(a.Row - b.Row)
	dc := abs(a.Col - b.Col)
	return dr+dc == 1
}

func overlaps(a, b []Coordinate) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
