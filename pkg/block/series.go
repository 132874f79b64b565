package block

// Series feeds the output of the left block into the right block. Control
// routes to the left or right block per the LeftControl flag.
type Series[C, D, T, U, V any, A Functionality[C, D, T, U], B Functionality[C, D, U, V]] struct {
	Left        A
	Right       B
	LeftControl bool
}

// NewSeries composes two blocks in series
func NewSeries[C, D, T, U, V any, A Functionality[C, D, T, U], B Functionality[C, D, U, V]](left A, right B, leftControl bool) *Series[C, D, T, U, V, A, B] {
	return &Series[C, D, T, U, V, A, B]{Left: left, Right: right, LeftControl: leftControl}
}

// Control routes the control value to one of the two component blocks
func (s *Series[C, D, T, U, V, A, B]) Control(c C) (D, error) {
	if s.LeftControl {
		return s.Left.Control(c)
	}
	return s.Right.Control(c)
}

// Apply runs the left block and, when it produces an output, feeds that
// output to the right block in the same step.
func (s *Series[C, D, T, U, V, A, B]) Apply(t T) Result[V] {
	res := s.Left.Apply(t)
	switch {
	case res.Err() != nil:
		return Fail[V](res.Err())
	case res.IsReady():
		return s.Right.Apply(res.Value())
	default:
		return NotReady[V]()
	}
}

// SeriesLeftControl is a series composition whose control always routes to
// the left block.
type SeriesLeftControl[C, D, T, U, V any, A Functionality[C, D, T, U], B Functionality[C, D, U, V]] struct {
	Left  A
	Right B
}

// NewSeriesLeftControl composes two blocks in series with left-routed control
func NewSeriesLeftControl[C, D, T, U, V any, A Functionality[C, D, T, U], B Functionality[C, D, U, V]](left A, right B) *SeriesLeftControl[C, D, T, U, V, A, B] {
	return &SeriesLeftControl[C, D, T, U, V, A, B]{Left: left, Right: right}
}

// Control routes to the left block
func (s *SeriesLeftControl[C, D, T, U, V, A, B]) Control(c C) (D, error) {
	return s.Left.Control(c)
}

// Apply runs the left block and feeds any output to the right block
func (s *SeriesLeftControl[C, D, T, U, V, A, B]) Apply(t T) Result[V] {
	res := s.Left.Apply(t)
	switch {
	case res.Err() != nil:
		return Fail[V](res.Err())
	case res.IsReady():
		return s.Right.Apply(res.Value())
	default:
		return NotReady[V]()
	}
}
