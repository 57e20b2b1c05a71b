package sand

import "github.com/san-kum/sandglass/internal/matrix"

// Neck is the cell every grain and hole marker spawns on.
var Neck = matrix.Cell{Row: matrix.Size - 1, Col: matrix.Size - 1}

type State int

const (
	Dormant State = iota
	Descending
	Finished
)

func (s State) String() string {
	switch s {
	case Dormant:
		return "dormant"
	case Descending:
		return "descending"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	Idle EventKind = iota
	Spawned
	Fell
	Spread
	Settled
	// Drained is reported instead of Settled for the 64th grain.
	Drained
)

func (k EventKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Spawned:
		return "spawned"
	case Fell:
		return "fell"
	case Spread:
		return "spread"
	case Settled:
		return "settled"
	case Drained:
		return "drained"
	default:
		return "unknown"
	}
}

// Event describes what a single Step did. Cell is the grain's cell after the
// step; Index is the number of grains settled so far.
type Event struct {
	Kind  EventKind
	Cell  matrix.Cell
	Index int
}

type Grain struct {
	matrix.Cell
	Active bool
}

// Snapshot is the read-only view the compositor renders from.
type Snapshot struct {
	Source matrix.Bitmap
	Target matrix.Bitmap
	Hole   Hole
}

type Session struct {
	source matrix.Bitmap
	static matrix.Bitmap
	grain  Grain
	hole   Hole

	order      DrainOrder
	index      int
	preferLeft bool
	state      State
}

func NewSession() *Session {
	s := &Session{}
	s.Reset()
	return s
}

// Reset restores the start-of-cycle state in one assignment so a restart can
// never leave half-cleared fields behind.
func (s *Session) Reset() {
	*s = Session{
		source: matrix.Full(),
		order:  NewDrainOrder(),
		state:  Dormant,
	}
}

func (s *Session) Step() Event {
	s.hole.Advance()

	switch s.state {
	case Dormant:
		return s.spawn()
	case Descending:
		return s.move()
	default:
		return Event{Kind: Idle, Index: s.index}
	}
}

func (s *Session) spawn() Event {
	if s.index >= len(s.order) {
		s.state = Finished
		return Event{Kind: Idle, Index: s.index}
	}
	s.source.Clear(s.order[s.index])
	s.grain = Grain{Cell: Neck, Active: true}
	s.hole.Spawn(Neck)
	s.state = Descending
	return Event{Kind: Spawned, Cell: Neck, Index: s.index}
}

func (s *Session) move() Event {
	g := s.grain.Cell

	fall := matrix.Cell{Row: g.Row - 1, Col: g.Col - 1}
	if s.free(fall) {
		s.grain.Cell = fall
		return Event{Kind: Fell, Cell: fall, Index: s.index}
	}

	left := matrix.Cell{Row: g.Row, Col: g.Col - 1}
	downRight := matrix.Cell{Row: g.Row - 1, Col: g.Col}
	canLeft, canDown := s.free(left), s.free(downRight)

	var next matrix.Cell
	switch {
	case canLeft && canDown:
		if s.preferLeft {
			next = left
		} else {
			next = downRight
		}
		s.preferLeft = !s.preferLeft
	case canLeft:
		next = left
	case canDown:
		next = downRight
	default:
		return s.settle()
	}

	s.grain.Cell = next
	return Event{Kind: Spread, Cell: next, Index: s.index}
}

func (s *Session) settle() Event {
	at := s.grain.Cell
	s.static.Set(at)
	s.grain = Grain{}
	s.index++

	if s.index >= len(s.order) {
		s.state = Finished
		return Event{Kind: Drained, Cell: at, Index: s.index}
	}
	s.state = Dormant
	return Event{Kind: Settled, Cell: at, Index: s.index}
}

func (s *Session) free(c matrix.Cell) bool {
	return c.InBounds() && !s.static.Get(c)
}

func (s *Session) Source() matrix.Bitmap { return s.source }

// Static returns only the settled grains.
func (s *Session) Static() matrix.Bitmap { return s.static }

// Target returns the settled grains plus the active grain.
func (s *Session) Target() matrix.Bitmap {
	t := s.static
	if s.grain.Active {
		t.Set(s.grain.Cell)
	}
	return t
}

func (s *Session) Grain() Grain      { return s.grain }
func (s *Session) Hole() Hole        { return s.hole }
func (s *Session) Order() DrainOrder { return s.order }
func (s *Session) State() State      { return s.state }
func (s *Session) Settled() int      { return s.index }
func (s *Session) Finished() bool    { return s.state == Finished }
func (s *Session) PrefersLeft() bool { return s.preferLeft }

// Mass counts source cells, settled cells and the active grain. It is 64 for
// the whole life of a session.
func (s *Session) Mass() int {
	m := s.source.Count() + s.static.Count()
	if s.grain.Active {
		m++
	}
	return m
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Source: s.source,
		Target: s.Target(),
		Hole:   s.hole,
	}
}
