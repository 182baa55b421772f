package emvid

import (
	"errors"
	"io/fs"
	"testing"
)

func TestErrorKindFatality(t *testing.T) {
	t.Parallel()

	fatal := []ErrorKind{
		ErrUnsupportedFormat, ErrUnsupportedCodec, ErrCorrupted,
		ErrNoVideoStream, ErrIoFailure, ErrDecoderDied,
	}
	for _, k := range fatal {
		if !k.Fatal() {
			t.Errorf("%s should be fatal", k)
		}
	}
	for _, k := range []ErrorKind{ErrSeekTimeout, ErrDecodingFailed} {
		if k.Fatal() {
			t.Errorf("%s should be recoverable", k)
		}
	}

	// the wrapped error answers the same question as its kind
	if playbackErr(ErrSeekTimeout, "", nil).Fatal() {
		t.Error("PlaybackError with SeekTimeout kind reported fatal")
	}
	if !playbackErr(ErrIoFailure, "", nil).Fatal() {
		t.Error("PlaybackError with IoFailure kind reported recoverable")
	}
}

func TestPlaybackErrorUnwraps(t *testing.T) {
	t.Parallel()

	cause := fs.ErrPermission
	err := playbackErr(ErrIoFailure, "cannot read a.mkv", cause)
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("wrapped cause not reachable through errors.Is")
	}

	var perr *PlaybackError
	wrapped := playbackErr(ErrSeekTimeout, "", err)
	if !errors.As(wrapped, &perr) || perr.Kind != ErrSeekTimeout {
		t.Errorf("errors.As gave %+v", perr)
	}
}

func TestPlaybackErrorMessage(t *testing.T) {
	t.Parallel()

	err := playbackErr(ErrUnsupportedCodec, "av1", nil)
	if got := err.Error(); got != "UnsupportedCodec: av1" {
		t.Errorf("Error() = %q", got)
	}
	bare := playbackErr(ErrDecoderDied, "", nil)
	if got := bare.Error(); got != "DecoderDied" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAsPlaybackErrorCoercion(t *testing.T) {
	t.Parallel()

	orig := playbackErr(ErrCorrupted, "bad atom", nil)
	if got := asPlaybackError(orig); got != orig {
		t.Error("existing PlaybackError was re-wrapped")
	}
	got := asPlaybackError(errors.New("avformat exploded"))
	if got.Kind != ErrIoFailure {
		t.Errorf("foreign error classified as %s, want IoFailure", got.Kind)
	}
}
