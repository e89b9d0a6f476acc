package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"time"
)

// timeLayout renders timestamps the way the zh-CN locale prints them.
const timeLayout = "2006/1/2 15:04:05"

//go:embed templates/*.html
var templateFS embed.FS

var runsTemplate = template.Must(
	template.ParseFS(templateFS, "templates/runs.html"),
)

type rowView struct {
	RunID       string
	DT          string
	Status      string
	StartedAt   string
	Message     string
	DownloadURL string
}

type pageView struct {
	State

	Rows    []rowView
	PrevURL string
	NextURL string
}

// renderer turns runs page state into HTML.
type renderer struct {
	loc *time.Location
}

func newRenderer(loc *time.Location) *renderer {
	if loc == nil {
		loc = time.Local
	}

	return &renderer{loc: loc}
}

// Render writes the runs page for s to w.
func (r *renderer) Render(w io.Writer, s State) error {
	view := pageView{
		State:   s,
		Rows:    make([]rowView, 0, len(s.Runs)),
		PrevURL: pageURL(s.Page - 1),
		NextURL: pageURL(s.Page + 1),
	}

	for _, run := range s.Runs {
		view.Rows = append(view.Rows, rowView{
			RunID:       run.RunID,
			DT:          run.DT,
			Status:      run.Status,
			StartedAt:   r.formatTime(run.StartedAt),
			Message:     orDash(run.Message),
			DownloadURL: downloadURL(run.DT, s.Page),
		})
	}

	if err := runsTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("rendering runs page: %w", err)
	}

	return nil
}

func (r *renderer) formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}

	return t.In(r.loc).Format(timeLayout)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}

	return *s
}

func pageURL(page int) string {
	return "/?page=" + strconv.Itoa(page)
}

func downloadURL(dt string, page int) string {
	q := url.Values{}
	q.Set("dt", dt)
	q.Set("page", strconv.Itoa(page))

	return "/reports/daily/download?" + q.Encode()
}
