package fetcher

import (
	"bufio"
	"context"
	"io"

	"github.com/pterm/pterm"
)

// Inspector runs once, after the first page has rendered and before its HTML is captured
type Inspector interface {
	Inspect(ctx context.Context, url string) error
}

// NoopInspector does nothing
type NoopInspector struct{}

func (NoopInspector) Inspect(context.Context, string) error { return nil }

// PromptInspector pauses the crawl so the rendered page can be looked at in a
// visible browser window. It resumes on the first line read from In.
type PromptInspector struct {
	In io.Reader
}

func (p PromptInspector) Inspect(ctx context.Context, url string) error {
	pterm.Info.Printfln("First page loaded: %s", url)
	pterm.Info.Println("Inspect the page, then press Enter to continue...")

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(p.In).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
