package download

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// SegmentBar tracks the segments of one track.
//
// Exit is always called once the track is done, whether every segment
// arrived or the download was aborted.
type SegmentBar interface {
	Add(n int) error
	Exit() error
}

// BarFactory creates the bar for a track with total segments.
type BarFactory func(total int, description string) SegmentBar

// NewTerminalBars returns a BarFactory drawing progressbar bars on w, with
// the completed/total count and the segment rate.
func NewTerminalBars(w io.Writer) BarFactory {
	return func(total int, description string) SegmentBar {
		return progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("segments"),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionSetWidth(30),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(w)
			}),
		)
	}
}

type nopBar struct{}

func (nopBar) Add(int) error { return nil }
func (nopBar) Exit() error   { return nil }

func nopBars(int, string) SegmentBar {
	return nopBar{}
}
