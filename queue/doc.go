// SPDX-License-Identifier: EPL-2.0

// Package queue defines the track-supply collaborator and a minimal in-memory
// reference implementation used by tests and cmd/medley when no richer
// playlist source is wired in. The mutex-guarded FIFO here follows the
// same small-struct-plus-sync.Mutex shape as
// friendsincode-grimnir_radio's internal/playout.Manager.
package queue
