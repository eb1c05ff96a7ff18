package bulk

import (
	"strings"

	"github.com/okian/rollcall/internal/domain/types"
)

// Template defaults.
const (
	DefaultNoteTemplate = "Bulk marked as {status} on {date}"
	DefaultDateLayout   = "Jan 02, 2006"
)

// Template renders the note attached to bulk-marked records. The
// placeholders {status} and {date} are substituted.
type Template struct {
	Text       string
	DateLayout string
}

// DefaultTemplate renders "Bulk marked as present on Mar 10, 2025".
var DefaultTemplate = Template{Text: DefaultNoteTemplate, DateLayout: DefaultDateLayout}

// IsZero reports whether the template is unset.
func (t Template) IsZero() bool { return t.Text == "" }

// Render fills the placeholders.
func (t Template) Render(status types.Status, date types.Date) string {
	layout := t.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}
	return strings.NewReplacer(
		"{status}", string(status),
		"{date}", date.Format(layout),
	).Replace(t.Text)
}
