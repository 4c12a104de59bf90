package buffering

import (
	"io"
	"sync"

	"github.com/ik5/medley/audio"
	"github.com/ik5/medley/internal/worker"
)

// Reader wraps an audio.Source with a background-filled circular buffer so
// that ReadSamples always returns immediately. It is itself an audio.Source,
// so it composes directly with audio.Resampler and audio.MonoMixer.
type Reader struct {
	src      audio.Source
	channels int
	pool     *worker.Pool

	mu         sync.Mutex
	ring       []float32
	ringFrames int64
	readPos    int64
	writePos   int64
	available  int64
	refilling  bool
	sourceEOF  bool
	sourceErr  error
	closed     bool
}

// NewReader wraps src in a lookahead buffer of bufferSeconds and immediately
// schedules the first fill on pool (the "read-ahead thread").
func NewReader(src audio.Source, pool *worker.Pool, bufferSeconds float64) *Reader {
	channels := src.Channels()
	if channels < 1 {
		channels = 1
	}
	frames := int64(bufferSeconds * float64(src.SampleRate()))
	if frames < 1 {
		frames = 1
	}

	r := &Reader{
		src:        src,
		channels:   channels,
		pool:       pool,
		ring:       make([]float32, frames*int64(channels)),
		ringFrames: frames,
	}
	r.triggerRefill()
	return r
}

func (r *Reader) SampleRate() int { return r.src.SampleRate() }
func (r *Reader) Channels() int   { return r.channels }
func (r *Reader) BufSize() int    { return r.src.BufSize() }

// InputEOFImminent reports whether the underlying source has been fully
// decoded. Buffered frames may still remain unread; Deck uses this to know
// the track is ending without having to wait for ReadSamples to report
// io.EOF on an empty buffer.
func (r *Reader) InputEOFImminent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sourceEOF
}

// ReadSamples never blocks on the underlying source. If the background fill
// hasn't caught up, the shortfall is zero-filled and nil is returned — a
// transient underrun, not an end of stream. io.EOF is only returned once
// the source is exhausted and the buffer is empty.
func (r *Reader) ReadSamples(dst []float32) (int, error) {
	framesRequested := int64(len(dst)) / int64(r.channels)

	r.mu.Lock()
	n := r.available
	if n > framesRequested {
		n = framesRequested
	}
	for i := int64(0); i < n; i++ {
		srcIdx := ((r.readPos + i) % r.ringFrames) * int64(r.channels)
		dstIdx := i * int64(r.channels)
		copy(dst[dstIdx:dstIdx+int64(r.channels)], r.ring[srcIdx:srcIdx+int64(r.channels)])
	}
	r.readPos = (r.readPos + n) % r.ringFrames
	r.available -= n

	eof := r.sourceEOF
	srcErr := r.sourceErr
	drained := r.available == 0
	needRefill := !r.refilling && r.available < r.ringFrames && r.sourceErr == nil
	r.mu.Unlock()

	if needRefill {
		r.triggerRefill()
	}

	if n == 0 && drained && eof {
		if srcErr != nil && srcErr != io.EOF {
			return 0, srcErr
		}
		return 0, io.EOF
	}

	for i := n * int64(r.channels); i < int64(len(dst)); i++ {
		dst[i] = 0
	}

	return len(dst), nil
}

// Flush discards buffered frames and restarts prefetching from wherever the
// underlying decode currently stands (see the package doc for why this is
// not a true seek).
func (r *Reader) Flush() {
	r.mu.Lock()
	r.readPos = 0
	r.writePos = 0
	r.available = 0
	r.mu.Unlock()
	r.triggerRefill()
}

// Close stops further fills from doing anything useful and closes the
// underlying source.
func (r *Reader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.src.Close()
}

func (r *Reader) triggerRefill() {
	r.pool.Submit(r.fill)
}

// fill runs on a pool worker, topping up the ring buffer until it's full,
// the source errors, or the source reaches EOF.
func (r *Reader) fill() {
	r.mu.Lock()
	if r.refilling || r.closed {
		r.mu.Unlock()
		return
	}
	r.refilling = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.refilling = false
		r.mu.Unlock()
	}()

	chunk := int64(r.src.BufSize())
	if chunk < 1 {
		chunk = r.ringFrames
	}

	for {
		r.mu.Lock()
		if r.closed || r.sourceErr != nil || r.sourceEOF {
			r.mu.Unlock()
			return
		}
		free := r.ringFrames - r.available
		r.mu.Unlock()

		if free <= 0 {
			return
		}

		readFrames := free
		if readFrames > chunk {
			readFrames = chunk
		}

		buf := make([]float32, readFrames*int64(r.channels))
		n, err := r.src.ReadSamples(buf)
		frames := int64(n) / int64(r.channels)

		r.mu.Lock()
		for i := int64(0); i < frames; i++ {
			dstIdx := ((r.writePos + i) % r.ringFrames) * int64(r.channels)
			srcIdx := i * int64(r.channels)
			copy(r.ring[dstIdx:dstIdx+int64(r.channels)], buf[srcIdx:srcIdx+int64(r.channels)])
		}
		r.writePos = (r.writePos + frames) % r.ringFrames
		r.available += frames

		switch {
		case err == io.EOF:
			r.sourceEOF = true
			r.mu.Unlock()
			return
		case err != nil:
			r.sourceErr = err
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()
	}
}
