package emvid

import "fmt"

// ErrorKind classifies playback failures so hosts can decide between
// retrying, skipping to the next file, or showing a blocking error.
type ErrorKind uint8

const (
	// ErrUnknown is the zero value and should not appear in practice.
	ErrUnknown ErrorKind = iota

	// ErrUnsupportedFormat means the container could not be recognized.
	ErrUnsupportedFormat

	// ErrUnsupportedCodec means the container was fine but a stream uses
	// a codec the decoding backend can't handle. Detail carries the codec name.
	ErrUnsupportedCodec

	// ErrCorrupted means the container headers or stream data are damaged.
	ErrCorrupted

	// ErrNoVideoStream means the file contains neither video nor audio
	// streams usable by the engine.
	ErrNoVideoStream

	// ErrIoFailure means the underlying resource disappeared or could not
	// be read. Always fatal for the source.
	ErrIoFailure

	// ErrSeekTimeout means a seek did not reach its target frame within the
	// configured timeout. Recoverable: the engine keeps its previous state.
	ErrSeekTimeout

	// ErrDecoderDied means the decode worker stopped making progress while
	// playback was expected to advance. Requires a full source reload.
	ErrDecoderDied

	// ErrDecodingFailed carries a decode failure message for a condition
	// that could not be skipped.
	ErrDecodingFailed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnsupportedFormat:
		return "UnsupportedFormat"
	case ErrUnsupportedCodec:
		return "UnsupportedCodec"
	case ErrCorrupted:
		return "Corrupted"
	case ErrNoVideoStream:
		return "NoVideoStream"
	case ErrIoFailure:
		return "IoFailure"
	case ErrSeekTimeout:
		return "SeekTimeout"
	case ErrDecoderDied:
		return "DecoderDied"
	case ErrDecodingFailed:
		return "DecodingFailed"
	default:
		return "Unknown"
	}
}

// Fatal reports whether the kind requires tearing down the source.
// SeekTimeout and per-packet decode failures are recoverable.
func (k ErrorKind) Fatal() bool {
	switch k {
	case ErrSeekTimeout, ErrDecodingFailed:
		return false
	default:
		return true
	}
}

// PlaybackError is the single error type surfaced by the engine. Detail is a
// human-readable string safe to show to users (never a raw path).
type PlaybackError struct {
	Kind   ErrorKind
	Detail string
	Err    error // wrapped cause, may be nil
}

func (e *PlaybackError) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// Fatal reports whether the error requires tearing down the source.
func (e *PlaybackError) Fatal() bool { return e.Kind.Fatal() }

func playbackErr(kind ErrorKind, detail string, cause error) *PlaybackError {
	return &PlaybackError{Kind: kind, Detail: detail, Err: cause}
}
