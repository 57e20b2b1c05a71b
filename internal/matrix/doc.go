// Package matrix provides the 8x8 pixel grid shared by both hourglass panels.
//
// The package defines:
//
//   - [Cell]: a (row, col) coordinate inside the grid
//   - [Bitmap]: one row mask byte per row, bit c lights column c
//   - [Rotation]: the four fixed quarter-turn orientations a panel can be mounted in
//
// Every accessor bounds-checks its coordinate. Out-of-range cells are ignored
// rather than reported, so callers never need to handle grid errors.
//
// # Example
//
//	var b matrix.Bitmap
//	b.Set(matrix.Cell{Row: 7, Col: 7})
//	physical := b.Rotate(matrix.Rot90)
package matrix
