// SPDX-License-Identifier: EPL-2.0

package scanner

import "errors"

var (
	// ErrUnsupportedFormat means no decoder is registered for the file's extension.
	ErrUnsupportedFormat = errors.New("scanner: unsupported format")
	// ErrScanFailed means the file could not be opened, decoded, or read to
	// its end for scanning; callers should fall back to the deck's own
	// playback-reader offsets.
	ErrScanFailed = errors.New("scanner: could not open file for scanning")
)
