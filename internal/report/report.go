// Package report renders the README that documents each mirror run: the
// sources-file notes, the update timestamp, and one section per source with
// either its size and raw link or the error that stopped it.
package report

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/epgforge/epg-mirror/internal/models"
)

// timestampLayout renders as "2006-01-02 15:04 UTC" for UTC times.
const timestampLayout = "2006-01-02 15:04 MST"

const readmeTemplate = `{{if .Notes}}{{.Notes}}

---

{{end}}# 🔄 Updated: {{.Timestamp}}
{{range .Sections}}
**{{.Index}}. {{.Desc}}**
{{if .Error}}
**Status:** ❌ Error
` + "`{{.Error}}`" + `
{{else}}
**Size:** {{.SizeMB}} MB

**Link:**
` + "`{{.RawURL}}`" + `
{{end}}
---{{end}}
`

var readmeTmpl = template.Must(template.New("readme").Parse(readmeTemplate))

type section struct {
	Index  int
	Desc   string
	Error  string
	SizeMB string
	RawURL string
}

type readmeData struct {
	Notes     string
	Timestamp string
	Sections  []section
}

// Render produces the README content for one run. Results keep their
// sources-file order, so section numbers line up with the configured listing.
func Render(notes string, results []*models.FetchResult, now time.Time) string {
	data := readmeData{
		Notes:     strings.TrimRight(notes, "\n"),
		Timestamp: now.UTC().Format(timestampLayout),
	}

	for i, res := range results {
		s := section{Index: i + 1, Desc: res.Desc}
		if res.Failed() {
			s.Error = res.Err.Error()
		} else {
			s.SizeMB = formatSizeMB(res.SizeMB())
			s.RawURL = res.RawURL
		}
		data.Sections = append(data.Sections, s)
	}

	var sb strings.Builder
	// The template only references fields that exist; Execute cannot fail.
	if err := readmeTmpl.Execute(&sb, data); err != nil {
		panic(fmt.Sprintf("report: render readme: %v", err))
	}
	return sb.String()
}

// WriteReadme renders the README and writes it to path.
func WriteReadme(path, notes string, results []*models.FetchResult, now time.Time) error {
	content := Render(notes, results, now)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// formatSizeMB renders a rounded megabyte count with at least one decimal, so
// whole sizes read "5.0 MB" rather than "5 MB".
func formatSizeMB(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
