package emvid

// resampler converts interleaved int16 sample frames between rates using
// linear interpolation, carrying the fractional read position across chunks
// so chunk boundaries don't click. The ratio also folds in the playback
// speed factor: at speed 2.0 the pipeline consumes media samples twice as
// fast as the device drains them.
type resampler struct {
	channels int
	ratio    float64 // input frames consumed per output frame
	pos      float64
	tail     []int16 // last input frame, for interpolation across chunks
	hasTail  bool
}

func newResampler(inRate, outRate, channels int, speed float64) *resampler {
	if speed <= 0 {
		speed = 1.0
	}
	return &resampler{
		channels: channels,
		ratio:    float64(inRate) * speed / float64(outRate),
		tail:     make([]int16, channels),
	}
}

// setRatio reconfigures the conversion ratio in place (speed changes).
func (r *resampler) setRatio(inRate, outRate int, speed float64) {
	if speed <= 0 {
		speed = 1.0
	}
	r.ratio = float64(inRate) * speed / float64(outRate)
}

// resample converts one chunk of interleaved input frames and returns the
// interpolated output. Identity ratios pass data through untouched.
func (r *resampler) resample(in []int16) []int16 {
	if len(in) == 0 || r.channels <= 0 {
		return nil
	}
	// Identity ratios pass through without carrying a tail: every input
	// frame is emitted here, so deferring the last one would re-emit it
	// with the next chunk.
	if r.ratio == 1.0 && !r.hasTail && r.pos == 0 {
		out := make([]int16, len(in))
		copy(out, in)
		return out
	}

	// Prepend the carried tail frame so interpolation can reach back into
	// the previous chunk.
	src := in
	if r.hasTail {
		src = make([]int16, len(r.tail)+len(in))
		copy(src, r.tail)
		copy(src[len(r.tail):], in)
	}
	inFrames := len(src) / r.channels
	if inFrames < 2 {
		frame := (inFrames - 1) * r.channels
		copy(r.tail, src[frame:])
		r.hasTail = true
		return nil
	}

	outFrames := int(float64(inFrames-1)/r.ratio) + 1
	out := make([]int16, 0, outFrames*r.channels)
	pos := r.pos
	for int(pos) < inFrames-1 {
		idx := int(pos)
		frac := pos - float64(idx)
		base := idx * r.channels
		for ch := 0; ch < r.channels; ch++ {
			a := float64(src[base+ch])
			b := float64(src[base+r.channels+ch])
			out = append(out, int16(a*(1.0-frac)+b*frac))
		}
		pos += r.ratio
	}

	// Keep the final frame and the fractional remainder for the next chunk.
	r.pos = pos - float64(inFrames-1)
	frame := (inFrames - 1) * r.channels
	copy(r.tail, src[frame:])
	r.hasTail = true
	return out
}

// reset discards carried state. Called on seek/flush.
func (r *resampler) reset() {
	r.pos = 0
	r.hasTail = false
	for i := range r.tail {
		r.tail[i] = 0
	}
}

// Downmix coefficients for the common speaker orders FFmpeg emits:
// FL FR (FC) (LFE) (BL BR) (SL SR). Surround content folds into stereo with
// the usual -3dB center/surround contribution instead of dropping channels.
const (
	centerGain   = 0.7071
	surroundGain = 0.7071
	lfeGain      = 0.5
)

// downmixToStereo folds interleaved frames of any channel count into
// interleaved stereo. Mono duplicates, stereo passes through.
func downmixToStereo(in []int16, channels int) []int16 {
	switch {
	case channels <= 0 || len(in) == 0:
		return nil
	case channels == 2:
		return in
	case channels == 1:
		out := make([]int16, len(in)*2)
		for i, s := range in {
			out[i*2] = s
			out[i*2+1] = s
		}
		return out
	}

	frames := len(in) / channels
	out := make([]int16, frames*2)
	for i := 0; i < frames; i++ {
		base := i * channels
		l := float64(in[base])
		r := float64(in[base+1])
		if channels >= 3 { // front center
			c := float64(in[base+2]) * centerGain
			l += c
			r += c
		}
		if channels >= 4 { // LFE
			lfe := float64(in[base+3]) * lfeGain
			l += lfe
			r += lfe
		}
		// remaining pairs (back/side) alternate left/right
		for ch := 4; ch < channels; ch++ {
			s := float64(in[base+ch]) * surroundGain
			if (ch-4)%2 == 0 {
				l += s
			} else {
				r += s
			}
		}
		out[i*2] = clampSample(l)
		out[i*2+1] = clampSample(r)
	}
	return out
}

func clampSample(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
