package game

import "deepmine/pkg/types"

// The chain engine works over an immutable snapshot of blocks keyed by
// coordinate. The dig validator pre-scans a halo around the initiating
// hazard into the snapshot; running the engine twice over the same
// snapshot yields identical results.

type Coord struct {
	X int
	Y int
}

type ExplosionPhase struct {
	Center    Coord
	Destroyed []Coord // coordinates newly destroyed by this center
	DelayMs   int
}

type ChainResult struct {
	Phases           []ExplosionPhase
	Destroyed        []Coord // global dedup, in destruction order
	TotalGoldPenalty int
	LaunchDistance   int
}

// ChainLength is the number of phases, >= 1 for any valid detonation.
func (r ChainResult) ChainLength() int { return len(r.Phases) }

// RunChain detonates the hazard at initial and follows the cascade:
// each center clears its 3x3 area, adds the depth penalty of the
// center, and enqueues any hazard inside the area into the next phase.
// Centers explode exactly once.
func RunChain(view map[Coord]types.BlockType, initial Coord) ChainResult {
	res := ChainResult{}
	destroyed := map[Coord]bool{}
	processed := map[Coord]bool{}

	phase := []Coord{initial}
	for k := 0; len(phase) > 0; k++ {
		var next []Coord
		for _, center := range phase {
			if processed[center] {
				continue
			}
			processed[center] = true

			ph := ExplosionPhase{Center: center, DelayMs: k * TNTChainDelayMs}
			for dx := -1; dx <= 1; dx++ {
				for dy := -1; dy <= 1; dy++ {
					c := Coord{center.X + dx, center.Y + dy}
					if c.Y < 0 {
						continue
					}
					bt, ok := view[c]
					if !ok || bt == types.BlockEmpty {
						continue
					}
					if !destroyed[c] {
						destroyed[c] = true
						ph.Destroyed = append(ph.Destroyed, c)
						res.Destroyed = append(res.Destroyed, c)
					}
					if bt.IsHazard() && !processed[c] {
						next = append(next, c)
					}
				}
			}
			res.TotalGoldPenalty += LayerAt(center.Y).TNTGoldPenalty
			res.Phases = append(res.Phases, ph)
		}
		phase = next
	}

	res.LaunchDistance = TNTLaunchDistance + (res.ChainLength()-1)*TNTChainExtraLaunch
	return res
}

// LaunchY is where the blast throws the player: straight up, clamped
// at the surface.
func (r ChainResult) LaunchY(currentY float64) int {
	y := int(currentY) - r.LaunchDistance
	if y < 0 {
		y = 0
	}
	return y
}
