package emvid

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/erparts/reisen"
	"github.com/google/uuid"
)

// MediaSource is the immutable descriptor of one open file. It is created on
// open and replaced wholesale when the host navigates to another file; the
// previous source's decode worker is fully torn down before a new one runs.
type MediaSource struct {
	// ID tags every event emitted for this source so hosts can correlate
	// across replacements.
	ID   string
	Path string

	// Stream indices inside the container. -1 when the source has no
	// stream of that kind (audio-only and silent media are both legal).
	VideoStreamIndex int
	AudioStreamIndex int

	Width        int
	Height       int
	FrameRateNum int
	FrameRateDen int
	TimeBase     TimeBase

	// Duration is zero with DurationKnown false for live or unknown-length
	// sources.
	Duration      time.Duration
	DurationKnown bool

	SampleRate int
	Channels   int
}

// HasVideo reports whether a video stream was selected.
func (s *MediaSource) HasVideo() bool { return s.VideoStreamIndex >= 0 }

// HasAudio reports whether an audio stream was selected.
func (s *MediaSource) HasAudio() bool { return s.AudioStreamIndex >= 0 }

// FrameInterval returns the nominal duration of one video frame.
func (s *MediaSource) FrameInterval() time.Duration {
	return FrameInterval(s.FrameRateNum, s.FrameRateDen)
}

// demuxer is the worker's view of the decoding backend. The reisen-backed
// implementation below is the only production one; tests substitute scripted
// fakes so worker behavior is checkable without media files.
type demuxer interface {
	// readFrame returns the next decoded video frame or audio chunk in
	// stream order (exactly one non-nil), or io.EOF at end of stream.
	// Frames that fail to decode are skipped internally; returned errors
	// mean the underlying resource is gone.
	readFrame() (*VideoFrame, *AudioChunk, error)
	// rewind performs a container-level jump to the nearest keyframe at or
	// before the target position.
	rewind(to time.Duration) error
	close() error
}

// Probe opens a file just far enough to build its MediaSource descriptor.
func Probe(path string) (*MediaSource, error) {
	src, dec, err := openSource(path, DefaultConfig())
	if err != nil {
		return nil, err
	}
	_ = dec.close()
	return src, nil
}

// openSource probes the container, selects streams, and opens the decoders.
// Stream heuristic: highest-resolution video stream, first audio stream.
func openSource(path string, cfg Config) (*MediaSource, demuxer, error) {
	media, err := reisen.NewMedia(path)
	if err != nil {
		return nil, nil, classifyOpenError(path, err)
	}

	video := pickVideoStream(media.VideoStreams())
	var audio *reisen.AudioStream
	if streams := media.AudioStreams(); len(streams) > 0 && !cfg.IgnoreAudio {
		if len(streams) > 1 {
			pkgLogger.Warnf("emvid: %q has %d audio streams, using the first", filepath.Base(path), len(streams))
		}
		audio = streams[0]
	}
	if video == nil && audio == nil {
		media.Close()
		return nil, nil, playbackErr(ErrNoVideoStream, "no playable video or audio stream", nil)
	}

	src := &MediaSource{
		ID:               uuid.NewString(),
		Path:             path,
		VideoStreamIndex: -1,
		AudioStreamIndex: -1,
	}
	if video != nil {
		src.VideoStreamIndex = video.Index()
		src.Width = video.Width()
		src.Height = video.Height()
		src.FrameRateNum, src.FrameRateDen = video.FrameRate()
		tbNum, tbDen := video.TimeBase()
		src.TimeBase = TimeBase{Num: tbNum, Den: tbDen}
		if d, err := video.Duration(); err == nil && d > 0 {
			src.Duration = d
			src.DurationKnown = true
		}
	}
	if audio != nil {
		src.AudioStreamIndex = audio.Index()
		src.SampleRate = audio.SampleRate()
		src.Channels = audio.ChannelCount()
		if d, err := audio.Duration(); err == nil && d > src.Duration {
			src.Duration = d
			src.DurationKnown = true
		}
	}

	dec := &reisenDemuxer{media: media, video: video, audio: audio}
	if err := dec.open(); err != nil {
		media.Close()
		return nil, nil, err
	}
	return src, dec, nil
}

func pickVideoStream(streams []*reisen.VideoStream) *reisen.VideoStream {
	var best *reisen.VideoStream
	for _, s := range streams {
		if best == nil || s.Width()*s.Height() > best.Width()*best.Height() {
			best = s
		}
	}
	return best
}

// classifyOpenError maps backend open failures onto the error taxonomy.
// Detail strings carry the base name only, never the full path.
func classifyOpenError(path string, err error) *PlaybackError {
	name := filepath.Base(path)
	if _, statErr := os.Stat(path); statErr != nil {
		return playbackErr(ErrIoFailure, "cannot read "+name, statErr)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid data") || strings.Contains(msg, "corrupt"):
		return playbackErr(ErrCorrupted, name+" is damaged", err)
	case strings.Contains(msg, "i/o") || errors.Is(err, fs.ErrPermission):
		return playbackErr(ErrIoFailure, "cannot read "+name, err)
	default:
		return playbackErr(ErrUnsupportedFormat, name+" is not a supported container", err)
	}
}

// reisenDemuxer adapts the reisen packet/frame API to the demuxer interface.
// It is owned exclusively by the decode worker goroutine.
type reisenDemuxer struct {
	media *reisen.Media
	video *reisen.VideoStream
	audio *reisen.AudioStream
}

func (d *reisenDemuxer) open() error {
	if err := d.media.OpenDecode(); err != nil {
		return playbackErr(ErrCorrupted, "cannot start decoding", err)
	}
	if d.video != nil {
		if err := d.video.Open(); err != nil {
			return playbackErr(ErrUnsupportedCodec, d.video.CodecName(), err)
		}
	}
	if d.audio != nil {
		if err := d.audio.Open(); err != nil {
			return playbackErr(ErrUnsupportedCodec, d.audio.CodecName(), err)
		}
	}
	return nil
}

func (d *reisenDemuxer) readFrame() (*VideoFrame, *AudioChunk, error) {
	for {
		packet, found, err := d.media.ReadPacket()
		if err != nil {
			return nil, nil, playbackErr(ErrIoFailure, "packet read failed", err)
		}
		if !found {
			return nil, nil, io.EOF
		}

		switch packet.Type() {
		case reisen.StreamVideo:
			if d.video == nil || packet.StreamIndex() != d.video.Index() {
				continue
			}
			frame, _, err := d.video.ReadVideoFrame()
			if err != nil {
				// single-packet decode failure: skip, best effort
				pkgLogger.Debugf("emvid: skipping bad video packet: %v", err)
				continue
			}
			if frame == nil {
				continue
			}
			pts, err := frame.PresentationOffset()
			if err != nil {
				pkgLogger.Debugf("emvid: frame without timestamp, skipping: %v", err)
				continue
			}
			data := make([]byte, len(frame.Data()))
			copy(data, frame.Data())
			return &VideoFrame{
				Data:   data,
				Width:  d.video.Width(),
				Height: d.video.Height(),
				PTS:    pts,
			}, nil, nil

		case reisen.StreamAudio:
			if d.audio == nil || packet.StreamIndex() != d.audio.Index() {
				continue
			}
			frame, _, err := d.audio.ReadAudioFrame()
			if err != nil {
				pkgLogger.Debugf("emvid: skipping bad audio packet: %v", err)
				continue
			}
			if frame == nil {
				continue
			}
			pts, err := frame.PresentationOffset()
			if err != nil {
				continue
			}
			data := make([]byte, len(frame.Data()))
			copy(data, frame.Data())
			return nil, &AudioChunk{
				Data:       data,
				Channels:   d.audio.ChannelCount(),
				SampleRate: d.audio.SampleRate(),
				PTS:        pts,
			}, nil

		default:
			// other stream kinds (subtitles, data) are not ours
		}
	}
}

func (d *reisenDemuxer) rewind(to time.Duration) error {
	if d.video != nil {
		if err := d.video.Rewind(to); err != nil {
			return playbackErr(ErrIoFailure, "rewind failed", err)
		}
	}
	if d.audio != nil {
		if err := d.audio.Rewind(to); err != nil {
			return playbackErr(ErrIoFailure, "rewind failed", err)
		}
	}
	return nil
}

func (d *reisenDemuxer) close() error {
	var first error
	if d.video != nil {
		if err := d.video.Close(); err != nil && first == nil {
			first = err
		}
	}
	if d.audio != nil {
		if err := d.audio.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := d.media.CloseDecode(); err != nil && first == nil {
		first = err
	}
	d.media.Close()
	return first
}
