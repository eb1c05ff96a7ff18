package smoketest

import (
	"errors"
	"fmt"
	"math"
)

// ErrMismatch marks a disagreement between what was written and what the
// server reports.
var ErrMismatch = errors.New("smoke check mismatch")

// percentTolerance absorbs the one-decimal rounding of statistics.
const percentTolerance = 0.05

// verifySection checks one section's bulk result against its listing and
// statistics.
func verifySection(o SectionOutcome) error {
	if o.Written+o.Failed != o.Students {
		return fmt.Errorf("%w: section %s: %d written + %d failed != %d students",
			ErrMismatch, o.Section.ID, o.Written, o.Failed, o.Students)
	}
	if o.Listed < o.Written || o.Listed > o.Students {
		return fmt.Errorf("%w: section %s: listed %d records for %d written",
			ErrMismatch, o.Section.ID, o.Listed, o.Written)
	}
	if o.Summary.TotalStudents != o.Students {
		return fmt.Errorf("%w: section %s: statistics count %d students, roster has %d",
			ErrMismatch, o.Section.ID, o.Summary.TotalStudents, o.Students)
	}
	if o.Failed > 0 || o.Students == 0 {
		return nil
	}

	got := o.Summary.AbsentPercentage
	if o.Status == "present" {
		got = o.Summary.PresentPercentage
	}
	if math.Abs(got-100) > percentTolerance {
		return fmt.Errorf("%w: section %s: %s percentage %.1f, want 100",
			ErrMismatch, o.Section.ID, o.Status, got)
	}
	return nil
}

// statusFor alternates present and absent across sections so both bulk
// paths are exercised.
func statusFor(i int) string {
	if i%2 == 0 {
		return "present"
	}
	return "absent"
}
