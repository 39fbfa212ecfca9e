package features

import (
	"math"
	"testing"
)

func toneSamples(fs int, seconds, voicedSeconds float64) []float64 {
	n := int(math.Round(seconds * float64(fs)))
	voiced := int(math.Round(voicedSeconds * float64(fs)))
	out := make([]float64, n)
	for i := 0; i < voiced && i < n; i++ {
		out[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(fs))
	}
	return out
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 400: 512, 512: 512, 513: 1024}
	for in, want := range cases {
		if got := nextPow2(in); got != want {
			t.Fatalf("nextPow2(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestMelRoundTrip(t *testing.T) {
	for _, hz := range []float64{0, 200, 1000, 3800, 8000} {
		if got := melToHz(hzToMel(hz)); math.Abs(got-hz) > 1e-9 {
			t.Fatalf("melToHz(hzToMel(%g)) = %g", hz, got)
		}
	}
	if got := hzToMel(700); math.Abs(got-1127*math.Ln2) > 1e-9 {
		t.Fatalf("hzToMel(700) = %g", got)
	}
}

func TestPreEmphasis(t *testing.T) {
	got := preEmphasis([]float64{1, 1, 2}, 0.5)
	want := []float64{1, 0.5, 1.5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("preEmphasis = %v, want %v", got, want)
		}
	}
	if out := preEmphasis(nil, 0.97); len(out) != 0 {
		t.Fatalf("expected empty output, got %v", out)
	}
}

func TestLinearBankShapeAndArea(t *testing.T) {
	const fs, nfft, nfilt = 16000, 512, 24
	bank := triangularBank(FilterBankLinear, nfilt, nfft, fs, 200, 8000)
	if len(bank) != nfilt {
		t.Fatalf("expected %d filters, got %d", nfilt, len(bank))
	}
	binHz := float64(fs) / nfft
	for m, row := range bank {
		if len(row) != nfft/2+1 {
			t.Fatalf("filter %d has %d bins", m, len(row))
		}
		var area float64
		for _, w := range row {
			if w < 0 {
				t.Fatalf("filter %d has negative weight %g", m, w)
			}
			area += w * binHz
		}
		if math.Abs(area-1) > 0.05 {
			t.Fatalf("filter %d area = %g, want ~1", m, area)
		}
	}
}

func TestMelBankCentresIncrease(t *testing.T) {
	bank := triangularBank(FilterBankLog, 24, 512, 16000, 200, 3800)
	prev := -1
	for m, row := range bank {
		peak := 0
		for k, w := range row {
			if w > row[peak] {
				peak = k
			}
		}
		if row[peak] <= 0 {
			t.Fatalf("filter %d is empty", m)
		}
		if peak < prev {
			t.Fatalf("filter %d peaks at bin %d before previous %d", m, peak, prev)
		}
		prev = peak
		// Nothing above the 3800 Hz upper edge.
		for k := 3800*512/16000 + 2; k < len(row); k++ {
			if row[k] != 0 {
				t.Fatalf("filter %d leaks into bin %d", m, k)
			}
		}
	}
}

func TestDCTRowsOrthonormal(t *testing.T) {
	mat := dctMatrix(20, 24)
	for i := range mat {
		for j := range mat {
			var dot float64
			for k := range mat[i] {
				dot += mat[i][k] * mat[j][k]
			}
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(dot-want) > 1e-9 {
				t.Fatalf("row %d . row %d = %g, want %g", i, j, dot, want)
			}
		}
	}
}

func TestSNRLabelsToneThenSilence(t *testing.T) {
	s := DefaultSettings()
	x := toneSamples(s.SamplingFrequency, 1, 0.5)
	nframes := s.FrameCount(len(x))
	if nframes != 98 {
		t.Fatalf("expected 98 frames, got %d", nframes)
	}
	labels := snrLabels(x, s.WindowLength(), s.HopLength(), nframes, s.SNR)
	for f := 0; f <= 47; f++ {
		if !labels[f] {
			t.Fatalf("frame %d inside the tone marked unvoiced", f)
		}
	}
	for f := 50; f < nframes; f++ {
		if labels[f] {
			t.Fatalf("silent frame %d marked voiced", f)
		}
	}
}

func TestAnalyzerFrameLengths(t *testing.T) {
	p := Params{Settings: DefaultSettings(), Kind: FilterBankLog, HigherFrequency: 3800}
	a := newAnalyzer(p)
	if a.win != 400 || a.hop != 160 || a.nfft != 512 {
		t.Fatalf("unexpected analyzer geometry win=%d hop=%d nfft=%d", a.win, a.hop, a.nfft)
	}
	x := toneSamples(16000, 0.025, 0.025)
	energy, fb, cep := a.frame(x)
	if len(fb) != 24 || len(cep) != 20 {
		t.Fatalf("unexpected lengths fb=%d cep=%d", len(fb), len(cep))
	}
	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		t.Fatalf("energy not finite: %g", energy)
	}

	_, silentFB, _ := a.frame(make([]float64, 400))
	for i, v := range silentFB {
		if v != math.Log(eps) {
			t.Fatalf("silent band %d = %g, want log(eps)", i, v)
		}
	}
}
