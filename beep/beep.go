// Package beep plays the short cues for listening start, stop and failure.
package beep

import (
	"math"
	"sync/atomic"
)

var disabled atomic.Bool

// Disable mutes all cues for the rest of the process.
func Disable() { disabled.Store(true) }

const (
	sampleRate = 44100

	// Start beep: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End beep: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error beep: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

// Cues plays the beeps for a listening session.
type Cues struct{}

func (Cues) Start() { PlayStart() }
func (Cues) End()   { PlayEnd() }
func (Cues) Error() { PlayError() }

// tone renders a mono sine with an exponential decay envelope.
func tone(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleTone(freq, beepDur, gapDur, volume, decay float64) []int16 {
	beep := tone(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, len(beep)*2+len(gap))
	out = append(out, beep...)
	out = append(out, gap...)
	return append(out, beep...)
}

type sounds struct {
	start, end, error []int16
}

// newSounds renders all cues. The tail after the audible decay gives
// buffered backends time to drain.
func newSounds(tail float64) sounds {
	return sounds{
		start: tone(startFreq, tail, startVolume, startDecay),
		end:   tone(endFreq, tail, endVolume, endDecay),
		error: doubleTone(errorFreq, 0.08, 0.05, errorVolume, errorDecay),
	}
}
