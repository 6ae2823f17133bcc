//go:build linux

package beep

import (
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

var (
	cues      sounds
	soundOnce sync.Once
)

func initSound() {
	cues = newSounds(0.2)
}

func playSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	c, err := pulse.NewClient()
	if err != nil {
		return
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return
	}
	defer stream.Close()
	stream.Start()
	stream.Drain()
	stream.Stop()
}

func play(pick func(sounds) []int16) {
	if disabled.Load() {
		return
	}
	soundOnce.Do(initSound)
	go playSamples(pick(cues))
}

func Init() { soundOnce.Do(initSound) }

func PlayStart() { play(func(s sounds) []int16 { return s.start }) }
func PlayEnd()   { play(func(s sounds) []int16 { return s.end }) }
func PlayError() { play(func(s sounds) []int16 { return s.error }) }
