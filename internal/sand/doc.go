// Package sand implements the single-grain falling-sand engine behind the
// hourglass.
//
// A [Session] owns every piece of per-cycle state: the source field (upper
// chamber), the settled target field (lower chamber), the one active grain,
// the refill hole marker, the [DrainOrder] and the side alternation flag.
// Each call to [Session.Step] advances the hole, then either drains the next
// source cell into a fresh grain at the neck or moves the active grain one
// cell, settling it when it can no longer move.
//
// Invariants held after every step:
//
//   - source + settled + active grain always totals 64 cells
//   - settled cells are never cleared within a cycle
//   - the active grain never overlaps a settled cell
//   - the settled field is a down-set: if (r,c) is settled, so is every
//     in-bounds (r-1,c) and (r,c-1)
//
// # Thread Safety
//
// Session is NOT thread-safe. It is driven from a single control loop.
package sand
