package features

import (
	"math"
	"math/bits"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// eps matches the float64 machine epsilon used as a log floor.
const eps = 2.220446049250313e-16

func hzToMel(hz float64) float64 {
	const melBreakFrequencyHertz = 700.0
	const melHighFrequencyQ = 1127.0
	return melHighFrequencyQ * math.Log(1.0+hz/melBreakFrequencyHertz)
}

func melToHz(mel float64) float64 {
	const melBreakFrequencyHertz = 700.0
	const melHighFrequencyQ = 1127.0
	return melBreakFrequencyHertz * (math.Exp(mel/melHighFrequencyQ) - 1.0)
}

// nextPow2 returns the smallest power of two >= n.
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func preEmphasis(x []float64, coeff float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = x[i] - coeff*x[i-1]
	}
	return out
}

// filterEdges returns nfilt+2 band edges in Hz between low and high.
func filterEdges(kind FilterBank, nfilt int, low, high float64) []float64 {
	edges := make([]float64, nfilt+2)
	switch kind {
	case FilterBankLinear:
		step := (high - low) / float64(nfilt+1)
		for i := range edges {
			edges[i] = low + step*float64(i)
		}
	default:
		lo, hi := hzToMel(low), hzToMel(high)
		step := (hi - lo) / float64(nfilt+1)
		for i := range edges {
			edges[i] = melToHz(lo + step*float64(i))
		}
	}
	return edges
}

// triangularBank builds nfilt area-normalised triangular filters over the
// nfft/2+1 bins of a real spectrum.
func triangularBank(kind FilterBank, nfilt, nfft, fs int, low, high float64) [][]float64 {
	edges := filterEdges(kind, nfilt, low, high)
	nbins := nfft/2 + 1
	binHz := float64(fs) / float64(nfft)

	bank := make([][]float64, nfilt)
	for m := 0; m < nfilt; m++ {
		left, center, right := edges[m], edges[m+1], edges[m+2]
		height := 2 / (right - left)
		weights := make([]float64, nbins)
		for k := 0; k < nbins; k++ {
			f := float64(k) * binHz
			switch {
			case f >= left && f <= center && center > left:
				weights[k] = height * (f - left) / (center - left)
			case f > center && f <= right && right > center:
				weights[k] = height * (right - f) / (right - center)
			}
		}
		bank[m] = weights
	}
	return bank
}

// dctMatrix returns rows 1..ncep of the orthonormal DCT-II over n inputs.
func dctMatrix(ncep, n int) [][]float64 {
	mat := make([][]float64, ncep)
	scale := math.Sqrt(2 / float64(n))
	for k := 1; k <= ncep; k++ {
		row := make([]float64, n)
		for i := 0; i < n; i++ {
			row[i] = scale * math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(n)))
		}
		mat[k-1] = row
	}
	return mat
}

// analyzer holds the per-pipeline tables reused for every frame.
type analyzer struct {
	win    int
	hop    int
	nfft   int
	window []float64
	bank   [][]float64
	dct    [][]float64
}

func newAnalyzer(p Params) *analyzer {
	win := p.WindowLength()
	nfft := nextPow2(win)
	return &analyzer{
		win:    win,
		hop:    p.HopLength(),
		nfft:   nfft,
		window: window.Hamming(win),
		bank:   triangularBank(p.Kind, p.FilterBankSize, nfft, p.SamplingFrequency, p.LowerFrequency, p.HigherFrequency),
		dct:    dctMatrix(p.CepsNumber, p.FilterBankSize),
	}
}

// frame computes log energy, log filter bank energies, and cepstra of one
// pre-emphasised frame.
func (a *analyzer) frame(seg []float64) (float64, []float64, []float64) {
	buf := make([]float64, a.nfft)
	var power float64
	for i, v := range seg {
		power += v * v
		buf[i] = v * a.window[i]
	}
	energy := math.Log(math.Max(power, eps))

	spectrum := fft.FFTReal(buf)
	nbins := a.nfft/2 + 1
	psd := make([]float64, nbins)
	for k := 0; k < nbins; k++ {
		re, im := real(spectrum[k]), imag(spectrum[k])
		psd[k] = re*re + im*im
	}

	fb := make([]float64, len(a.bank))
	for m, weights := range a.bank {
		var sum float64
		for k, w := range weights {
			if w != 0 {
				sum += w * psd[k]
			}
		}
		fb[m] = math.Log(math.Max(sum, eps))
	}

	cep := make([]float64, len(a.dct))
	for k, row := range a.dct {
		var sum float64
		for i, c := range row {
			sum += c * fb[i]
		}
		cep[k] = sum
	}
	return energy, fb, cep
}

// snrLabels marks frames whose level lies within snr dB of the loudest frame
// and above an absolute -75 dB floor.
func snrLabels(x []float64, win, hop, nframes int, snr float64) []bool {
	levels := make([]float64, nframes)
	peak := math.Inf(-1)
	for f := 0; f < nframes; f++ {
		seg := x[f*hop : f*hop+win]
		var mean float64
		for _, v := range seg {
			mean += v
		}
		mean /= float64(len(seg))
		var variance float64
		for _, v := range seg {
			d := v - mean
			variance += d * d
		}
		variance /= float64(len(seg))
		levels[f] = 20 * math.Log10(math.Sqrt(variance)+eps)
		peak = math.Max(peak, levels[f])
	}
	labels := make([]bool, nframes)
	for f, level := range levels {
		labels[f] = level > peak-snr && level > -75
	}
	return labels
}
