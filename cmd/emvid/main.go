// Command emvid is a headless front end for the playback engine: it probes
// media files and plays them without a window, which is mostly useful for
// scripting and for smoke-testing a media library.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	emvid "github.com/emvid/go-emvid"
	"github.com/emvid/go-emvid/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "emvid",
	Short:         "Media playback engine front end",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Setup(); err != nil {
			return err
		}
		config.ApplyLogLevel()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe <file>...",
	Short: "Print stream information for media files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var lastErr error
		for _, path := range args {
			src, err := emvid.Probe(path)
			if err != nil {
				logrus.Errorf("%s: %v", path, err)
				lastErr = err
				continue
			}
			printSource(src)
		}
		return lastErr
	},
}

func printSource(src *emvid.MediaSource) {
	fmt.Printf("%s\n", src.Path)
	if src.DurationKnown {
		fmt.Printf("  duration: %s\n", src.Duration.Round(time.Millisecond))
	} else {
		fmt.Printf("  duration: unknown\n")
	}
	if src.HasVideo() {
		fmt.Printf("  video:    %dx%d @ %d/%d fps (stream %d)\n",
			src.Width, src.Height, src.FrameRateNum, src.FrameRateDen, src.VideoStreamIndex)
	}
	if src.HasAudio() {
		fmt.Printf("  audio:    %d Hz, %d ch (stream %d)\n",
			src.SampleRate, src.Channels, src.AudioStreamIndex)
	}
}

var (
	playMuted bool
	playSpeed float64
	playLoop  bool
)

var playCmd = &cobra.Command{
	Use:   "play <file>...",
	Short: "Play media files without a window (audio only)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Engine()
		cfg.Autoplay = true
		cfg.Loop = playLoop || cfg.Loop

		player := emvid.NewPlayer(cfg)
		defer player.Close()
		player.SetMuted(playMuted)
		if cmd.Flags().Changed("speed") {
			player.SetSpeed(playSpeed)
		}

		opened, err := player.OpenAny(args...)
		if err != nil {
			return err
		}
		logrus.Infof("playing %s", opened)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		finished := make(chan struct{})

		g.Go(func() error { return watchEvents(ctx, player, finished) })
		g.Go(func() error { return tick(ctx, player, finished) })
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// watchEvents logs state transitions and decides when playback is over.
func watchEvents(ctx context.Context, player *emvid.Player, finished chan<- struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-player.Events():
			switch ev.Kind {
			case emvid.EventStateChanged:
				logrus.Debugf("state %s -> %s", ev.Prev, ev.State)
				switch ev.State {
				case emvid.StateEndOfStream:
					close(finished)
					return nil
				case emvid.StateError:
					close(finished)
					return ev.Err
				}
			case emvid.EventError:
				logrus.Warnf("recoverable: %v", ev.Err)
			case emvid.EventFileSkipped:
				logrus.Warnf("skipped %s", ev.Detail)
			}
		}
	}
}

// tick pumps the engine the way a render loop would and prints progress.
func tick(ctx context.Context, player *emvid.Player, finished <-chan struct{}) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	report := time.NewTicker(time.Second)
	defer report.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-finished:
			return nil
		case <-ticker.C:
			player.CurrentFrame()
		case <-report.C:
			fmt.Printf("\r%s / %s ",
				player.Position().Round(time.Second),
				player.Duration().Round(time.Second))
		}
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print all configuration fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := make([]string, 0, len(config.Default))
		for k := range config.Default {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			field := config.Default[k]
			fmt.Println(field.Pretty())
			fmt.Println()
		}
		return nil
	},
}

func init() {
	playCmd.Flags().BoolVar(&playMuted, "muted", false, "mute audio output")
	playCmd.Flags().Float64Var(&playSpeed, "speed", 1.0, "playback speed factor")
	playCmd.Flags().BoolVar(&playLoop, "loop", false, "restart from the beginning at end of stream")
	rootCmd.AddCommand(probeCmd, playCmd, configCmd)
}
