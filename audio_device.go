package emvid

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto permits exactly one context per process, so it is created lazily on
// first use with the fixed device format and reused for every source.
var otoSetup struct {
	once sync.Once
	ctx  *oto.Context
	err  error
}

func otoContext() (*oto.Context, error) {
	otoSetup.once.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   deviceSampleRate,
			ChannelCount: deviceChannels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoSetup.err = fmt.Errorf("create audio context: %w", err)
			return
		}
		<-ready
		otoSetup.ctx = ctx
	})
	return otoSetup.ctx, otoSetup.err
}

// deviceBufferDuration keeps the hardware-side latency modest; the pipeline
// ring carries the real buffering.
const deviceBufferDuration = 50 * time.Millisecond

func deviceBufferBytes() int {
	frames := int(deviceBufferDuration * deviceSampleRate / time.Second)
	return frames * deviceChannels * 2
}

// audioDevice couples an oto player to a pull source (the audio pipeline).
// The oto player drains the source on its own thread, which is the real-time
// context the pipeline's Read is written for.
// openAudioDevice is swappable so tests can script device failures.
var openAudioDevice = newAudioDevice

type audioDevice struct {
	player *oto.Player
}

func newAudioDevice(src io.Reader) (*audioDevice, error) {
	ctx, err := otoContext()
	if err != nil {
		return nil, err
	}
	player := ctx.NewPlayer(src)
	player.SetBufferSize(deviceBufferBytes())
	player.Play()
	return &audioDevice{player: player}, nil
}

func (d *audioDevice) Close() error {
	if d.player != nil {
		err := d.player.Close()
		d.player = nil
		return err
	}
	return nil
}
