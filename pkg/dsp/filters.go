package dsp

// ScalarFilter is a tracking-loop filter: it maps a scalar discriminator
// output to a correction applied to an NCO rate.
type ScalarFilter interface {
	// Apply feeds one error sample and returns the filtered correction
	Apply(x float64) float64
	// Initialize clears the filter history
	Initialize()
	// ScaleCoeffs scales every tap, used when the update cadence changes
	ScaleCoeffs(scale float64)
}

// FirstOrderFIR is a two-tap loop filter
type FirstOrderFIR struct {
	b0, b1 float64
	x0, x1 float64
}

// NewFirstOrderFIR creates a first-order filter with the given taps
func NewFirstOrderFIR(b0, b1 float64) *FirstOrderFIR {
	return &FirstOrderFIR{b0: b0, b1: b1}
}

// Apply feeds one error sample; the oldest sample pairs with b0
func (f *FirstOrderFIR) Apply(x float64) float64 {
	f.x0 = f.x1
	f.x1 = x
	return f.b0*f.x0 + f.b1*f.x1
}

// Initialize clears the sample history
func (f *FirstOrderFIR) Initialize() {
	f.x0, f.x1 = 0, 0
}

// ScaleCoeffs scales both taps
func (f *FirstOrderFIR) ScaleCoeffs(scale float64) {
	f.b0 *= scale
	f.b1 *= scale
}

// SecondOrderFIR is a three-tap loop filter
type SecondOrderFIR struct {
	b0, b1, b2 float64
	x0, x1, x2 float64
}

// NewSecondOrderFIR creates a second-order filter with the given taps
func NewSecondOrderFIR(b0, b1, b2 float64) *SecondOrderFIR {
	return &SecondOrderFIR{b0: b0, b1: b1, b2: b2}
}

// Apply feeds one error sample; the oldest sample pairs with b0
func (f *SecondOrderFIR) Apply(x float64) float64 {
	f.x0 = f.x1
	f.x1 = f.x2
	f.x2 = x
	return f.b0*f.x0 + f.b1*f.x1 + f.b2*f.x2
}

// Initialize clears the sample history
func (f *SecondOrderFIR) Initialize() {
	f.x0, f.x1, f.x2 = 0, 0, 0
}

// ScaleCoeffs scales all three taps
func (f *SecondOrderFIR) ScaleCoeffs(scale float64) {
	f.b0 *= scale
	f.b1 *= scale
	f.b2 *= scale
}

// ThirdOrderFIR is a four-tap loop filter
type ThirdOrderFIR struct {
	b0, b1, b2, b3 float64
	x0, x1, x2, x3 float64
}

// NewThirdOrderFIR creates a third-order filter with the given taps
func NewThirdOrderFIR(b0, b1, b2, b3 float64) *ThirdOrderFIR {
	return &ThirdOrderFIR{b0: b0, b1: b1, b2: b2, b3: b3}
}

// Apply feeds one error sample; the oldest sample pairs with b0
func (f *ThirdOrderFIR) Apply(x float64) float64 {
	f.x0 = f.x1
	f.x1 = f.x2
	f.x2 = f.x3
	f.x3 = x
	return f.b0*f.x0 + f.b1*f.x1 + f.b2*f.x2 + f.b3*f.x3
}

// Initialize clears the sample history
func (f *ThirdOrderFIR) Initialize() {
	f.x0, f.x1, f.x2, f.x3 = 0, 0, 0, 0
}

// ScaleCoeffs scales all four taps
func (f *ThirdOrderFIR) ScaleCoeffs(scale float64) {
	f.b0 *= scale
	f.b1 *= scale
	f.b2 *= scale
	f.b3 *= scale
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// The constructors below map a single pole-placement parameter alpha to
// discrete taps. The taps carry units of [1/sample]: the closed forms
// produce coefficients in [1/sec] for a loop updated every dt seconds, and
// the final division by fs converts to per-sample corrections.

// LoopFirstOrderFIR builds a first-order loop filter for pole parameter
// alpha (clamped to [0.667, 0.95]), update interval dt seconds and sample
// rate fs.
func LoopFirstOrderFIR(alpha, dt, fs float64) *FirstOrderFIR {
	a := clamp(alpha, 0.667, 0.95)
	k2 := a*a - 0.667*0.667

	a0 := (-0.29696 - 0.667*k2) / dt
	a1 := (0.3333 + k2) / dt

	return NewFirstOrderFIR(a0/fs, a1/fs)
}

// LoopSecondOrderFIR builds a second-order loop filter for pole parameter
// alpha (clamped to [0.5, 0.95]), update interval dt seconds and sample rate
// fs.
func LoopSecondOrderFIR(alpha, dt, fs float64) *SecondOrderFIR {
	a := clamp(alpha, 0.5, 0.95)
	k2 := a*a - 0.5*0.5

	a0 := (0.0625 + 0.5*k2 + k2*k2) / dt
	a1 := (-0.5 - 2.0*k2) / dt
	a2 := (0.5 + 2.0*k2) / dt

	return NewSecondOrderFIR(a0/fs, a1/fs, a2/fs)
}

// LoopThirdOrderFIR builds a third-order loop filter for pole parameter
// alpha (clamped to [0.4, 0.95]), update interval dt seconds and sample rate
// fs.
func LoopThirdOrderFIR(alpha, dt, fs float64) *ThirdOrderFIR {
	a := clamp(alpha, 0.4, 0.95)
	k2 := a*a - 0.4*0.4

	a0 := (-0.01024 - 0.128*k2 - 0.4*k2*k2) / dt
	a1 := (0.128 + 0.96*k2 + k2*k2) / dt
	a2 := (-0.128 - 2.4*k2) / dt
	a3 := (0.6 + 2.0*k2) / dt

	return NewThirdOrderFIR(a0/fs, a1/fs, a2/fs, a3/fs)
}
