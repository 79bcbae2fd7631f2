package audio

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/generators"
)

// Two-tone siren used when no asset file is configured.
const (
	sirenHighHz    = 960.0
	sirenLowHz     = 770.0
	sirenToneLen   = 450 * time.Millisecond
	sirenGain      = -0.4
	sirenChannels  = 2
	sirenPrecision = 2
)

// sirenBuffer renders one high/low cycle of the builtin siren at sampleRate.
// Looping the buffer gives a continuous alternating tone.
func sirenBuffer(sampleRate beep.SampleRate) (*beep.Buffer, error) {
	high, err := generators.SineTone(sampleRate, sirenHighHz)
	if err != nil {
		return nil, fmt.Errorf("high tone: %w", err)
	}
	low, err := generators.SineTone(sampleRate, sirenLowHz)
	if err != nil {
		return nil, fmt.Errorf("low tone: %w", err)
	}

	n := sampleRate.N(sirenToneLen)
	cycle := &effects.Gain{
		Streamer: beep.Seq(beep.Take(n, high), beep.Take(n, low)),
		Gain:     sirenGain,
	}

	buf := beep.NewBuffer(beep.Format{
		SampleRate:  sampleRate,
		NumChannels: sirenChannels,
		Precision:   sirenPrecision,
	})
	buf.Append(cycle)
	return buf, nil
}
