// SPDX-License-Identifier: EPL-2.0

// Package config loads the engine's process-level settings: device and
// transition parameters that are not part of any single deck or track.
// The struct is yaml-tagged the way gopkg.in/yaml.v3 is used elsewhere in
// the pack (friendsincode-grimnir_radio's internal/telemetry alert
// rules), and Load applies GRIMNIR-style environment overrides on top of
// the parsed file, following that same package's internal/config
// getEnvAny/getEnvIntAny/getEnvFloatAny helpers — adapted here from a
// pure-env loader to a file-plus-override one, since this engine ships
// as an embeddable library with an optional on-disk config rather than a
// twelve-factor service.
package config
