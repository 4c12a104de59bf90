// SPDX-License-Identifier: EPL-2.0

package deck

import "errors"

var (
	// ErrUnsupportedFormat is returned when no decoder is registered for a
	// track's extension.
	ErrUnsupportedFormat = errors.New("deck: unsupported format")
	// ErrOpenFailed wraps a failure to open or decode a track file.
	ErrOpenFailed = errors.New("deck: failed to open track")
)
