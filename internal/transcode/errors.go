// Package transcode converts raw trailer video to the profile's target
// container, codecs, and resolution via ffmpeg.
package transcode

import "errors"

// ErrConversionFailed is returned only after both the hardware and the
// software attempt failed. Retryable; the failure is attributed to the
// candidate's source stream.
var ErrConversionFailed = errors.New("trailer conversion failed")
