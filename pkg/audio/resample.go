package audio

import "fmt"

// Resampler converts a stream of float32 samples from a fixed capture rate to
// [TargetSampleRate] using linear interpolation. Unlike a one-shot converter,
// a Resampler carries state between calls — the final sample of the previous
// chunk and the fractional read position — so the output is continuous across
// chunk boundaries and tolerates non-integer rate ratios.
//
// Create one per stream; not designed for shared use across goroutines.
type Resampler struct {
	srcRate int
	step    float64 // source samples consumed per output sample

	// Converter state persisted between Resample calls.
	pos    float64 // fractional read position into the virtual source stream
	last   float32 // final sample of the previous chunk
	primed bool
}

// NewResampler creates a Resampler for the given capture rate.
func NewResampler(srcRate int) (*Resampler, error) {
	if srcRate <= 0 {
		return nil, fmt.Errorf("audio: resampler: invalid source rate %d", srcRate)
	}
	return &Resampler{
		srcRate: srcRate,
		step:    float64(srcRate) / float64(TargetSampleRate),
	}, nil
}

// SourceRate returns the capture rate this resampler was created for.
func (r *Resampler) SourceRate() int { return r.srcRate }

// Resample converts one chunk's samples to the target rate. The returned
// slice is freshly allocated unless the source rate already matches
// [TargetSampleRate], in which case the input is returned unchanged.
//
// Interpolation never extrapolates past the newest sample: the last source
// sample is held back as the left edge of the next call's window, which is
// what keeps chunk boundaries seamless.
func (r *Resampler) Resample(in []float32) []float32 {
	if len(in) == 0 {
		return nil
	}
	if r.srcRate == TargetSampleRate {
		return in
	}

	// Prepend the carried sample so interpolation can bridge the boundary.
	src := in
	if r.primed {
		src = make([]float32, 0, len(in)+1)
		src = append(src, r.last)
		src = append(src, in...)
	}

	out := make([]float32, 0, int(float64(len(in))/r.step)+2)
	pos := r.pos
	for int(pos) < len(src)-1 {
		i := int(pos)
		frac := float32(pos - float64(i))
		out = append(out, src[i]*(1-frac)+src[i+1]*frac)
		pos += r.step
	}

	// Everything up to the final sample has been consumed; the final sample
	// becomes index 0 of the next window.
	r.pos = pos - float64(len(src)-1)
	r.last = src[len(src)-1]
	r.primed = true
	return out
}
