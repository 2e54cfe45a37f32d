// Package dsp provides the frequency-domain and statistical primitives
// shared by the analysis pipelines: windowed FFT, power spectral density,
// transfer-function estimation, uniform resampling of irregular samples,
// discrete velocity, and the usual regression/correlation helpers.
//
// All spectra are computed over power-of-two buffers. Inputs shorter than
// the buffer are zero-padded after a Hann window is applied, so bin
// frequencies are always i*rate/N for the padded length N.
package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// autoSpecEps regularises auto-spectra so coherence is defined at empty bins.
const autoSpecEps = 1e-12

// NextPow2 returns the smallest power of two >= n (minimum 2).
func NextPow2(n int) int {
	p := 2
	for p < n {
		p <<= 1
	}
	return p
}

// HannWindow multiplies x in place by a Hann window of its own length.
func HannWindow(x []float64) {
	n := len(x)
	if n < 2 {
		return
	}
	for i := range x {
		x[i] *= 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
}

// windowed returns a Hann-windowed, zero-padded copy of x with
// power-of-two length.
func windowed(x []float64) []float64 {
	n := NextPow2(len(x))
	buf := make([]float64, n)
	copy(buf, x)
	HannWindow(buf[:len(x)])
	return buf
}

// FFTReal computes the half-spectrum (N/2+1 coefficients) of x after
// Hann windowing and zero padding to the next power of two. The padded
// length is returned alongside the coefficients.
func FFTReal(x []float64) ([]complex128, int) {
	buf := windowed(x)
	fft := fourier.NewFFT(len(buf))
	return fft.Coefficients(nil, buf), len(buf)
}

// IFFTReal inverts a half-spectrum produced for padded length n,
// returning the length-n real sequence. The result is normalised so that
// IFFTReal(FFTRaw(x), n) == x.
func IFFTReal(coeff []complex128, n int) []float64 {
	fft := fourier.NewFFT(n)
	seq := fft.Sequence(nil, coeff)
	for i := range seq {
		seq[i] /= float64(n)
	}
	return seq
}

// FFTRaw computes the half-spectrum of x without windowing, zero-padded
// to the next power of two. Used where the caller manages its own window
// and for round-trip verification.
func FFTRaw(x []float64) ([]complex128, int) {
	n := NextPow2(len(x))
	buf := make([]float64, n)
	copy(buf, x)
	fft := fourier.NewFFT(n)
	return fft.Coefficients(nil, buf), n
}

// PSD computes the one-sided power spectral density of x sampled at rate
// Hz: magnitude-squared of the Hann-windowed half-spectrum divided by the
// padded length. Returns matching power and frequency slices.
func PSD(x []float64, rate float64) (power, freqs []float64) {
	coeff, n := FFTReal(x)
	power = make([]float64, len(coeff))
	freqs = make([]float64, len(coeff))
	for i, c := range coeff {
		power[i] = (real(c)*real(c) + imag(c)*imag(c)) / float64(n)
		freqs[i] = float64(i) * rate / float64(n)
	}
	return power, freqs
}

// Transfer holds a per-bin transfer-function estimate between an input
// (perturbation) and an output (cursor residual) signal.
type Transfer struct {
	Freqs     []float64
	Gain      []float64
	Phase     []float64
	Coherence []float64
}

// TransferFunction estimates gain, phase, and coherence per bin from the
// cross-spectrum of input and output. Both signals are Hann-windowed and
// padded to a common power-of-two length; the phase convention is such
// that an output lagging the input by tau seconds yields phase
// -2*pi*f*tau, i.e. a positive delay from -phase/(2*pi*f).
func TransferFunction(input, output []float64, rate float64) Transfer {
	n := NextPow2(maxInt(len(input), len(output)))
	in := make([]float64, n)
	out := make([]float64, n)
	copy(in, input)
	copy(out, output)
	HannWindow(in[:len(input)])
	HannWindow(out[:len(output)])

	fft := fourier.NewFFT(n)
	xc := fft.Coefficients(nil, in)
	yc := fft.Coefficients(make([]complex128, len(xc)), out)

	tr := Transfer{
		Freqs:     make([]float64, len(xc)),
		Gain:      make([]float64, len(xc)),
		Phase:     make([]float64, len(xc)),
		Coherence: make([]float64, len(xc)),
	}
	for i := range xc {
		sxy := cmplx.Conj(xc[i]) * yc[i]
		sxx := real(xc[i])*real(xc[i]) + imag(xc[i])*imag(xc[i]) + autoSpecEps
		syy := real(yc[i])*real(yc[i]) + imag(yc[i])*imag(yc[i]) + autoSpecEps
		mag := cmplx.Abs(sxy)

		tr.Freqs[i] = float64(i) * rate / float64(n)
		tr.Gain[i] = mag / sxx
		tr.Phase[i] = cmplx.Phase(sxy)
		tr.Coherence[i] = (mag * mag) / (sxx * syy)
	}
	return tr
}

// NearestBin returns the index of the bin in freqs closest to f.
func NearestBin(freqs []float64, f float64) int {
	best := 0
	bestDiff := math.Inf(1)
	for i, bf := range freqs {
		d := math.Abs(bf - f)
		if d < bestDiff {
			bestDiff = d
			best = i
		}
	}
	return best
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
