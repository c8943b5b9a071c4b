package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrWong99/ocrlite/internal/pipeline"
)

// Pinger is implemented by storage backends such as the transcript mirror.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PipelineRunning passes while the orchestrator is in the Running state.
func PipelineRunning(o *pipeline.Orchestrator) Checker {
	return Checker{
		Name: "pipeline",
		Check: func(context.Context) error {
			if st := o.State(); st != pipeline.StateRunning {
				return fmt.Errorf("state is %s", st)
			}
			return nil
		},
	}
}

// FrameFresh passes once a frame has been captured and the latest one is no
// older than maxAge. A non-positive maxAge only requires a frame to exist.
func FrameFresh(frames *pipeline.FrameBuffer, maxAge time.Duration) Checker {
	return Checker{
		Name: "frames",
		Check: func(context.Context) error {
			at := frames.CapturedAt()
			if at.IsZero() {
				return errors.New("no frame captured yet")
			}
			if maxAge > 0 {
				if age := time.Since(at); age > maxAge {
					return fmt.Errorf("latest frame is %s old", age.Round(time.Millisecond))
				}
			}
			return nil
		},
	}
}

// Ping wraps a [Pinger] as a checker named name.
func Ping(name string, p Pinger) Checker {
	return Checker{Name: name, Check: p.Ping}
}
