package progress

import (
	"os"

	"github.com/schollz/progressbar/v3"
)

// Bar tracks long-running work on stderr. A nil *Bar is valid and silently
// drops all updates, so callers never have to branch on whether progress
// reporting is enabled.
type Bar struct {
	bar *progressbar.ProgressBar
}

func New(max int, description string) *Bar {
	return &Bar{
		bar: progressbar.NewOptions(max,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		),
	}
}

func (b *Bar) Add(n int) {
	if b == nil {
		return
	}
	_ = b.bar.Add(n)
}

func (b *Bar) AddMax(n int) {
	if b == nil {
		return
	}
	b.bar.ChangeMax(b.bar.GetMax() + n)
}

func (b *Bar) Finish() {
	if b == nil {
		return
	}
	_ = b.bar.Finish()
}
