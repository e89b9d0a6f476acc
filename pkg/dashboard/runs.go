package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/ethpandaops/runcenter/pkg/client"
	"github.com/sirupsen/logrus"
)

// MockRunID identifies the placeholder row shown when the API is down.
const MockRunID = "run-mock-001"

// MockRuns returns the placeholder rows shown when loading runs fails.
func MockRuns() []client.Run {
	started := time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC)
	finished := time.Date(2025, 2, 28, 10, 5, 0, 0, time.UTC)
	message := "Mock: Daily job completed"

	return []client.Run{{
		RunID:      MockRunID,
		DT:         "2025-02-28",
		Status:     "success",
		StartedAt:  &started,
		FinishedAt: &finished,
		Message:    &message,
	}}
}

// State is a snapshot of the runs page.
type State struct {
	Runs          []client.Run
	Total         int
	Page          int
	PageSize      int
	Loading       bool
	Error         string
	UseMock       bool
	DownloadError string
}

// HasPrev reports whether a previous page exists.
func (s State) HasPrev() bool {
	return s.Page > 1
}

// HasNext reports whether a next page exists.
func (s State) HasNext() bool {
	return s.Page*s.PageSize < s.Total
}

// RunsPage holds the paginated runs view. Page loads run asynchronously; only
// the most recently requested page may update the state.
type RunsPage struct {
	log    logrus.FieldLogger
	client client.Client

	mu         sync.Mutex
	state      State
	generation uint64
}

// NewRunsPage creates a runs page positioned on page 1. Nothing is loaded
// until SetPage is called.
func NewRunsPage(
	log logrus.FieldLogger,
	c client.Client,
	pageSize int,
) *RunsPage {
	return &RunsPage{
		log:    log.WithField("component", "runs-page"),
		client: c,
		state: State{
			Runs:     []client.Run{},
			Page:     1,
			PageSize: pageSize,
			Loading:  true,
		},
	}
}

// State returns a copy of the current state.
func (p *RunsPage) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.state
	s.Runs = append([]client.Run(nil), p.state.Runs...)

	return s
}

// SetPage switches to page and loads it in the background. The returned
// channel is closed once this request has settled, whether its result was
// applied or discarded because a newer page was requested meanwhile.
func (p *RunsPage) SetPage(ctx context.Context, page int) <-chan struct{} {
	if page < 1 {
		page = 1
	}

	p.mu.Lock()
	p.generation++
	generation := p.generation
	p.state.Page = page
	p.state.Loading = true
	p.state.Error = ""
	pageSize := p.state.PageSize
	p.mu.Unlock()

	done := make(chan struct{})

	go func() {
		defer close(done)

		list, err := p.client.ListRuns(ctx, page, pageSize)

		p.mu.Lock()
		defer p.mu.Unlock()

		if generation != p.generation {
			p.log.WithField("page", page).Debug("Discarding stale page result")

			return
		}

		p.state.Loading = false

		if err != nil {
			p.log.WithError(err).WithField("page", page).
				Warn("Loading runs failed, showing mock data")

			p.state.Error = client.Message(err)
			p.state.Runs = MockRuns()
			p.state.Total = 1
			p.state.UseMock = true

			return
		}

		p.state.Runs = list.Items
		p.state.Total = list.Total
		p.state.UseMock = false
	}()

	return done
}

// Reload loads the current page again.
func (p *RunsPage) Reload(ctx context.Context) <-chan struct{} {
	return p.SetPage(ctx, p.State().Page)
}

// Next moves one page forward when a next page exists.
func (p *RunsPage) Next(ctx context.Context) <-chan struct{} {
	s := p.State()
	if !s.HasNext() {
		return closedChan()
	}

	return p.SetPage(ctx, s.Page+1)
}

// Prev moves one page back when a previous page exists.
func (p *RunsPage) Prev(ctx context.Context) <-chan struct{} {
	s := p.State()
	if !s.HasPrev() {
		return closedChan()
	}

	return p.SetPage(ctx, s.Page-1)
}

// DownloadReport downloads the report for dt into saver. A failure is kept
// in DownloadError; the runs listing is never touched.
func (p *RunsPage) DownloadReport(
	ctx context.Context, dt string, saver client.Saver,
) error {
	p.mu.Lock()
	p.state.DownloadError = ""
	p.mu.Unlock()

	if _, err := p.client.DownloadReport(ctx, dt, saver); err != nil {
		p.mu.Lock()
		p.state.DownloadError = client.Message(err)
		p.mu.Unlock()

		p.log.WithError(err).WithField("dt", dt).Warn("Report download failed")

		return err
	}

	return nil
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)

	return ch
}
