package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// scanProgress shows a spinner with the number of scanned directories.
type scanProgress struct {
	bar *progressbar.ProgressBar
}

// newScanProgress creates a spinner writing to w. A quiet progress reports
// nothing.
func newScanProgress(w io.Writer, quiet bool) *scanProgress {
	if quiet {
		return &scanProgress{}
	}
	return &scanProgress{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("Scanning directories"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("dirs/s"),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(w)
			}),
		),
	}
}

// OnDirs receives the running directory count from the builder.
func (p *scanProgress) OnDirs(dirs int) {
	if p.bar == nil {
		return
	}
	p.bar.Set(dirs)
}

// Finish completes the spinner.
func (p *scanProgress) Finish() {
	if p.bar == nil {
		return
	}
	p.bar.Finish()
}
