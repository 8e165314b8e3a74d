package ui

import (
	"fmt"
	"io"

	"github.com/cheggaaa/pb/v3"
)

const progressTemplate = `{{ cyan "Records" }} {{ counters . }} {{ bar . "[" "=" ">" "_" "]" }} {{ percent . }} {{ string . "page" }}`

// Progress tracks collected records against the crawl target
type Progress struct {
	bar *pb.ProgressBar
}

// NewProgress starts a progress bar for target records written to w
func NewProgress(w io.Writer, target int) *Progress {
	bar := pb.New(target)
	bar.SetTemplateString(progressTemplate)
	bar.SetWriter(w)
	bar.Set("page", "")
	bar.Start()
	return &Progress{bar: bar}
}

// Update moves the bar to total records, capped at the target
func (p *Progress) Update(page, offset, total int) {
	current := int64(total)
	if t := p.bar.Total(); current > t {
		current = t
	}
	p.bar.SetCurrent(current)
	p.bar.Set("page", fmt.Sprintf("page %d (offset %d)", page, offset))
}

// Finish stops the bar
func (p *Progress) Finish() {
	p.bar.Finish()
}
