package effects

import "math"

// Butterworth section Qs for a 4th-order response built from two biquads.
var butterworth4Q = [2]float64{0.54119610, 1.30656296}

// biquad is a stereo second-order section in transposed direct form II.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	z1, z2             [2]float64
}

type responseKind int

const (
	kindLowpass responseKind = iota
	kindHighpass
)

// newBiquad returns an RBJ lowpass/highpass section. At or above Nyquist
// a lowpass passes everything and a highpass passes nothing.
func newBiquad(kind responseKind, sampleRate, cutoff, q float64) biquad {
	if cutoff >= sampleRate/2 {
		if kind == kindHighpass {
			return biquad{}
		}
		return biquad{b0: 1}
	}
	if cutoff <= 0 {
		return biquad{b0: 1}
	}
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosw, sinw := math.Cos(w0), math.Sin(w0)
	alpha := sinw / (2 * q)
	a0 := 1 + alpha

	var b0, b1, b2 float64
	switch kind {
	case kindHighpass:
		b0 = (1 + cosw) / 2
		b1 = -(1 + cosw)
		b2 = (1 + cosw) / 2
	default:
		b0 = (1 - cosw) / 2
		b1 = 1 - cosw
		b2 = (1 - cosw) / 2
	}
	return biquad{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f *biquad) process(ch int, x float64) float64 {
	y := f.b0*x + f.z1[ch]
	f.z1[ch] = f.b1*x - f.a1*y + f.z2[ch]
	f.z2[ch] = f.b2*x - f.a2*y
	return y
}

func (f *biquad) reset() {
	f.z1 = [2]float64{}
	f.z2 = [2]float64{}
}

// butter4 is a 4th-order Butterworth filter from two cascaded sections.
type butter4 struct {
	s [2]biquad
}

func newButter4(kind responseKind, sampleRate, cutoff float64) butter4 {
	return butter4{s: [2]biquad{
		newBiquad(kind, sampleRate, cutoff, butterworth4Q[0]),
		newBiquad(kind, sampleRate, cutoff, butterworth4Q[1]),
	}}
}

func (f *butter4) process(ch int, x float64) float64 {
	return f.s[1].process(ch, f.s[0].process(ch, x))
}

func (f *butter4) reset() {
	f.s[0].reset()
	f.s[1].reset()
}
