// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"github.com/ik5/medley/queue"
	"github.com/ik5/medley/transition"
)

// queueAdapter lets any queue.Queue drive transition.Controller, which
// declares its own Queue/Track types so the two packages never import
// each other directly.
type queueAdapter struct {
	q queue.Queue
}

func (a queueAdapter) Count() int { return a.q.Count() }

func (a queueAdapter) FetchNextTrack() (transition.Track, bool) {
	t, ok := a.q.FetchNextTrack()
	if !ok {
		return nil, false
	}
	return trackAdapter{t}, true
}

type trackAdapter struct {
	t queue.Track
}

func (a trackAdapter) FullPath() string { return a.t.FullPath() }
