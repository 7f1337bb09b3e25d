package video

import (
	"github.com/pkg/errors"

	"vidaug/video/sink"
)

var (
	// ErrSourceUnavailable is returned when an input cannot be opened or
	// demuxed. Nothing is written for that input.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSinkUnavailable is returned when the output cannot be created. The
	// source has already been released when it is returned.
	ErrSinkUnavailable = errors.New("sink unavailable")

	// ErrGeometryMismatch matches a frame rejected by the geometry guard.
	ErrGeometryMismatch = sink.ErrGeometryMismatch
)
