package resample

import (
	"github.com/ik5/medley/audio"
)

// Adapter resamples a single source to a fixed device rate for the lifetime
// of a deck's loaded track.
type Adapter struct {
	src        audio.Source
	deviceRate int
	resampler  *audio.Resampler
}

// New wraps src, resampling to deviceRate.
func New(src audio.Source, deviceRate int) *Adapter {
	return &Adapter{
		src:        src,
		deviceRate: deviceRate,
		resampler:  audio.NewResampler(src, deviceRate),
	}
}

func (a *Adapter) SampleRate() int { return a.deviceRate }
func (a *Adapter) Channels() int   { return a.resampler.Channels() }
func (a *Adapter) BufSize() int    { return a.resampler.BufSize() }

func (a *Adapter) ReadSamples(dst []float32) (int, error) {
	return a.resampler.ReadSamples(dst)
}

func (a *Adapter) Close() error {
	return a.resampler.Close()
}

// Flush discards the cubic-interpolation history by rebuilding the
// resampler against the same source. Call it whenever the source's
// position changed discontinuously underneath this Adapter.
func (a *Adapter) Flush() {
	a.resampler = audio.NewResampler(a.src, a.deviceRate)
}
