package sand

// Direction says which physical panel currently holds the source field.
type Direction int

const (
	// Normal drains panel A into panel B.
	Normal Direction = iota
	// Inverted drains panel B into panel A.
	Inverted
)

func (d Direction) Opposite() Direction {
	if d == Normal {
		return Inverted
	}
	return Normal
}

func (d Direction) String() string {
	switch d {
	case Normal:
		return "normal"
	case Inverted:
		return "inverted"
	default:
		return "unknown"
	}
}
