package raster

import "errors"

// Error kinds reported by the engine. Details are attached with %w wrapping,
// so callers can match with errors.Is.
var (
	// ErrDecode means the input bytes are unrecognized, truncated or corrupt.
	ErrDecode = errors.New("raster: unable to decode image")

	// ErrUseAfterRelease means an operation was invoked on a released handle.
	ErrUseAfterRelease = errors.New("raster: image already released")

	// ErrOutOfBounds means a point query fell outside the image extent.
	ErrOutOfBounds = errors.New("raster: unable to get image point")

	// ErrGeometry means resize/crop/pad arguments are invalid for the
	// current image. The handle is left untouched.
	ErrGeometry = errors.New("raster: invalid geometry")

	// ErrEncode means serialization failed, including encode attempts on
	// sources whose pixel data turned out to be corrupt past the header.
	ErrEncode = errors.New("raster: unable to encode image")

	// ErrUnsupportedFormat means the requested output container cannot be
	// written (GIF is decode-only).
	ErrUnsupportedFormat = errors.New("raster: unsupported image format")
)
