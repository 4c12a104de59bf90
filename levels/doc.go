// SPDX-License-Identifier: EPL-2.0

// Package levels tracks per-channel playback level for visualisation and
// metrics export.
//
// Medley::level (exposed to JS as the "level" property with
// {left,right}.{magnitude,peak}) only shows the public getLevel/getPeakLevel
// contract, not an internal implementation to copy, so Tracker is built
// directly from the engine spec's description of the component ("per-channel
// magnitude/peak with latency compensation") using a standard VU-meter
// ballistics approach: decaying RMS for magnitude, decaying max for peak.
// "Latency compensation" is a short delay line keyed to the device's
// reported output latency, so a read of Level/PeakLevel reflects audio at
// the point it reaches the speaker rather than the block Mixer just
// produced.
//
// Gauges are exported through github.com/prometheus/client_golang with an
// injected prometheus.Registerer; a nil registerer (the default) disables
// metrics entirely rather than requiring callers to stand up a registry in
// tests.
package levels
