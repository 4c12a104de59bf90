// SPDX-License-Identifier: EPL-2.0

// Package loader runs track-open and track-scan work off the audio thread.
//
// It is grounded on TrackBuffer::TrackLoader and
// TrackBuffer::TrackScanningScheduler (TrackBuffer.cpp in the original
// engine), which were JUCE TimeSliceClients polled by a shared
// TimeSliceThread at 100ms: "load" stored the most recently requested File
// under a lock and the next useTimeSlice() call picked it up, silently
// discarding any request superseded before it ran. Here that same
// last-writer-wins contract is built on internal/worker.SingleSlot and
// internal/worker.Pool instead of cooperative time slicing: Submit pushes a
// closure that pops the slot and, if it still holds the request that
// scheduled it, runs it.
package loader
