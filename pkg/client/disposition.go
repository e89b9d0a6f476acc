package client

import (
	"regexp"
	"strings"
)

// ReportContentType is the media type of daily reports.
const ReportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var filenameRe = regexp.MustCompile(`filename[^;=\n]*=([^;\n]*)`)

// DefaultReportFilename is used when the server names no file.
func DefaultReportFilename(dt string) string {
	return "daily_report_" + dt + ".xlsx"
}

// FilenameFromDisposition extracts the file name from a Content-Disposition
// header value. One leading and one trailing quote are stripped.
func FilenameFromDisposition(header string) (string, bool) {
	if header == "" {
		return "", false
	}

	m := filenameRe.FindStringSubmatch(header)
	if m == nil {
		return "", false
	}

	name := strings.TrimSpace(m[1])

	if name != "" && (name[0] == '"' || name[0] == '\'') {
		name = name[1:]
	}

	if n := len(name); n > 0 && (name[n-1] == '"' || name[n-1] == '\'') {
		name = name[:n-1]
	}

	if name == "" {
		return "", false
	}

	return name, true
}
