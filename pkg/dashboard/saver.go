package dashboard

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/ethpandaops/runcenter/pkg/client"
)

// responseSaver hands a downloaded report to the browser as an attachment.
type responseSaver struct {
	w       http.ResponseWriter
	started bool
}

// Compile-time interface check.
var _ client.Saver = (*responseSaver)(nil)

func newResponseSaver(w http.ResponseWriter) *responseSaver {
	return &responseSaver{w: w}
}

// Save streams d into the response.
func (s *responseSaver) Save(_ context.Context, d client.Download) error {
	contentType := d.ContentType
	if contentType == "" {
		contentType = client.ReportContentType
	}

	h := s.w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", mime.FormatMediaType(
		"attachment", map[string]string{"filename": d.Filename},
	))

	if d.ContentLength > 0 {
		h.Set("Content-Length", strconv.FormatInt(d.ContentLength, 10))
	}

	s.started = true
	s.w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(s.w, d.Body); err != nil {
		return fmt.Errorf("streaming report: %w", err)
	}

	return nil
}
