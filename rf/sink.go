// Package rf hands finished subframes to a radio front end or a capture file.
package rf

//go:generate mockgen -source=sink.go -destination=mock_sink.go -package=rf

import (
	"context"
	"fmt"
	"time"
)

// Flags mark burst boundaries.
type Flags uint8

const (
	StartOfBurst Flags = 1 << iota
	EndOfBurst
)

func (f Flags) String() string {
	switch f {
	case 0:
		return "none"
	case StartOfBurst:
		return "sob"
	case EndOfBurst:
		return "eob"
	case StartOfBurst | EndOfBurst:
		return "sob|eob"
	}
	return fmt.Sprintf("Flags(%d)", uint8(f))
}

// Burst is a block of baseband samples. A zero Time means "as soon as possible".
type Burst struct {
	Samples []complex64
	Time    time.Time
	Flags   Flags
}

// Sink accepts bursts for transmission.
type Sink interface {
	Send(ctx context.Context, b Burst) error
}

// SubframeDuration is the air time of one subframe.
const SubframeDuration = time.Millisecond

// Transmit sends consecutive subframes as one burst, timestamped from start (zero start
// sends untimed). The first subframe opens the burst and the last closes it.
func Transmit(ctx context.Context, s Sink, start time.Time, subframes ...[]complex64) error {
	for i, sf := range subframes {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := Burst{Samples: sf}
		if !start.IsZero() {
			b.Time = start.Add(time.Duration(i) * SubframeDuration)
		}
		if i == 0 {
			b.Flags |= StartOfBurst
		}
		if i == len(subframes)-1 {
			b.Flags |= EndOfBurst
		}
		if err := s.Send(ctx, b); err != nil {
			return fmt.Errorf("subframe %d: %w", i, err)
		}
	}
	return nil
}
