// Package grid provides the rectangular obstacle grid used by the simulation.
//
// A Grid is a fixed height×width matrix where every cell is either Empty or
// Full. Coordinates are 0-indexed (row, col) pairs in row-major order and are
// never wrapped: any coordinate outside [0,height)×[0,width) is rejected with
// ErrOutOfBounds instead of being clamped.
//
// Neighbor queries are clipped to the grid and always enumerate in the same
// order, so anything built on top of them (breadth-first search, greedy
// movement tie-breaks) is reproducible:
//
//	FourNeighbors:  up, down, left, right
//	EightNeighbors: up, down, left, right, up-left, up-right, down-left, down-right
//
// Usage:
//
//	g, err := grid.New(30, 40)
//	if err != nil {
//		log.Fatal(err)
//	}
//	_ = g.SetFull(3, 4)
//	for _, n := range g.FourNeighbors(0, 0) {
//		empty, _ := g.IsEmpty(n.Row, n.Col)
//		fmt.Println(n, empty)
//	}
package grid
