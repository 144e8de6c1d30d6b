// File: internal/journal/follow.go
package journal

import (
	"fmt"
	"io"

	"github.com/hpcloud/tail"
)

// Follower streams journal lines as they are appended, surviving truncation
// and file replacement. Used by the journal follow command.
type Follower struct {
	t *tail.Tail
}

// Follow starts tailing path from its current end. fromStart replays the
// existing contents first.
func Follow(path string, fromStart bool) (*Follower, error) {
	cfg := tail.Config{
		Follow: true,
		ReOpen: true,
		Logger: tail.DiscardingLogger,
	}
	if !fromStart {
		cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("tailing journal: %w", err)
	}
	return &Follower{t: t}, nil
}

// Lines is the stream of appended journal lines.
func (f *Follower) Lines() <-chan *tail.Line {
	return f.t.Lines
}

// Stop ends the tail and releases the file watch.
func (f *Follower) Stop() error {
	defer f.t.Cleanup()
	return f.t.Stop()
}
