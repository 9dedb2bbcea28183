package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/signalsfoundry/surface-sampler/internal/instrument"
	"github.com/signalsfoundry/surface-sampler/model"
)

// ErrNoResult is returned by Choose when no result page is showing.
var ErrNoResult = errors.New("no result page")

// Console is a line-oriented user interface. It presents result pages,
// posts messages, answers confirmations with a fixed answer and reports
// completed acquisitions.
type Console struct {
	out    io.Writer
	answer bool

	mu     sync.Mutex
	page   *instrument.ResultPage
	hidden bool
	posts  []string
}

var (
	_ instrument.Presenter = (*Console)(nil)
	_ instrument.Messenger = (*Console)(nil)
	_ instrument.Confirmer = (*Console)(nil)
	_ instrument.Observer  = (*Console)(nil)
)

// NewConsole writes to out. answer is returned from every Confirm.
func NewConsole(out io.Writer, answer bool) *Console {
	if out == nil {
		out = io.Discard
	}
	return &Console{out: out, answer: answer}
}

func (c *Console) PresentResult(page instrument.ResultPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = &page
	if c.hidden {
		return
	}
	c.printPage(page)
}

func (c *Console) printPage(page instrument.ResultPage) {
	rec := page.Record
	fmt.Fprintf(c.out, "[result] %s: data=%.1f transmit=%.0f%% rerunnable=%v\n",
		rec.Title, rec.DataAmount, rec.TransmitValue*100, page.Rerunnable)
}

// Hide stops showing the result page until Show.
func (c *Console) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hidden = true
}

// Show redisplays the current result page, if any.
func (c *Console) Show() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hidden = false
	if c.page != nil {
		c.printPage(*c.page)
	}
}

func (c *Console) Post(text string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts = append(c.posts, text)
	fmt.Fprintf(c.out, "[message %s] %s\n", d, text)
}

// Posts returns every message posted so far.
func (c *Console) Posts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.posts...)
}

func (c *Console) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[confirm] %s -> %v\n", prompt, c.answer)
	return c.answer, nil
}

func (c *Console) ExperimentDeployed(rec model.SampleRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[deployed] %s (%s)\n", rec.Title, rec.SubjectID)
}

// ScienceCredited reports science recovered for a subject.
func (c *Console) ScienceCredited(subject model.Subject, amount float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[science] %s +%.1f (%.1f/%.1f)\n", subject.ID, amount, subject.Science, subject.ScienceCap)
}

// Choose answers the showing result page with one of discard, keep,
// transmit or analyze. The page is closed afterwards.
func (c *Console) Choose(action string) error {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()
	if page == nil {
		return ErrNoResult
	}

	var cb func(model.SampleRecord)
	switch action {
	case "discard":
		cb = page.OnDiscard
	case "keep":
		cb = page.OnKeep
	case "transmit":
		cb = page.OnTransmit
	case "analyze":
		cb = page.OnAnalyze
	default:
		return fmt.Errorf("unknown result action %q", action)
	}

	c.mu.Lock()
	if c.page == page {
		c.page = nil
	}
	c.mu.Unlock()

	// Callbacks re-enter the instrument, which may present a new page.
	if cb != nil {
		cb(page.Record)
	}
	return nil
}
