package stats_test

import (
	"errors"
	"testing"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/stats"
	"github.com/okian/rollcall/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func recs(date string, statuses ...types.Status) []model.AttendanceRecord {
	out := make([]model.AttendanceRecord, len(statuses))
	for i, st := range statuses {
		out[i] = model.AttendanceRecord{
			StudentID: string(rune('a' + i)),
			Date:      types.MustParseDate(date),
			Status:    st,
		}
	}
	return out
}

func TestSummarize(t *testing.T) {
	Convey("Given the default aggregator", t, func() {
		agg := stats.NewAggregator()

		Convey("When the roster is empty", func() {
			sum := agg.Summarize(recs("2025-03-10", types.StatusPresent), 0)

			Convey("Then every figure should be zero", func() {
				So(sum.TotalStudents, ShouldEqual, 0)
				So(sum.PresentPercentage, ShouldEqual, 0.0)
				So(sum.AbsentPercentage, ShouldEqual, 0.0)
				So(sum.LatePercentage, ShouldEqual, 0.0)
				So(sum.ExcusedPercentage, ShouldEqual, 0.0)
				So(sum.AverageAttendance, ShouldEqual, 0.0)
			})
		})

		Convey("When there are no records", func() {
			sum := agg.Summarize(nil, 25)

			Convey("Then percentages should be zero but the roster counted", func() {
				So(sum.TotalStudents, ShouldEqual, 25)
				So(sum.StudentDays, ShouldEqual, 0)
				So(sum.PresentPercentage, ShouldEqual, 0.0)
			})
		})

		Convey("When three of four students are present on one day", func() {
			in := recs("2025-03-10", types.StatusPresent, types.StatusPresent, types.StatusPresent, types.StatusAbsent)
			sum := agg.Summarize(in, 4)

			Convey("Then rates should be over roster size times one day", func() {
				So(sum.StudentDays, ShouldEqual, 4)
				So(sum.PresentPercentage, ShouldAlmostEqual, 75.0)
				So(sum.AbsentPercentage, ShouldAlmostEqual, 25.0)
				So(sum.AverageAttendance, ShouldAlmostEqual, sum.PresentPercentage)
				So(sum.ByStatus[types.StatusPresent], ShouldEqual, 3)
			})
		})

		Convey("When records span two days with unrecorded students", func() {
			in := append(
				recs("2025-03-10", types.StatusPresent, types.StatusLate),
				recs("2025-03-11", types.StatusExcused)...,
			)
			sum := agg.Summarize(in, 4)

			Convey("Then the denominator should count roster size for each recorded day", func() {
				So(sum.RecordedDays, ShouldEqual, 2)
				So(sum.StudentDays, ShouldEqual, 8)
				So(sum.PresentPercentage, ShouldAlmostEqual, 12.5)
				So(sum.LatePercentage, ShouldAlmostEqual, 12.5)
				So(sum.ExcusedPercentage, ShouldAlmostEqual, 12.5)
				So(sum.AbsentPercentage, ShouldEqual, 0.0)
			})
		})

		Convey("When three of nine students are present", func() {
			in := recs("2025-03-10", types.StatusPresent, types.StatusPresent, types.StatusPresent)
			sum := agg.Summarize(in, 9)

			Convey("Then full precision should be kept", func() {
				So(sum.PresentPercentage, ShouldAlmostEqual, 100.0/3, 1e-9)
			})
		})
	})

	Convey("Given an aggregator where late counts half", t, func() {
		agg := stats.NewAggregator(stats.WithWeights(stats.LateCountsHalf))

		Convey("When one student is present and one late", func() {
			sum := agg.Summarize(recs("2025-03-10", types.StatusPresent, types.StatusLate), 2)

			Convey("Then the average should weigh late at half", func() {
				So(sum.PresentPercentage, ShouldAlmostEqual, 50.0)
				So(sum.AverageAttendance, ShouldAlmostEqual, 75.0)
			})
		})
	})
}

func TestParseWeighting(t *testing.T) {
	Convey("Given weighting names", t, func() {
		Convey("Then known names should resolve", func() {
			w, err := stats.ParseWeighting("late_counts_half")
			So(err, ShouldBeNil)
			So(w[types.StatusLate], ShouldEqual, 0.5)

			w, err = stats.ParseWeighting("")
			So(err, ShouldBeNil)
			So(w[types.StatusLate], ShouldEqual, 0.0)
		})

		Convey("Then unknown names should fail", func() {
			_, err := stats.ParseWeighting("generous")
			So(errors.Is(err, stats.ErrUnknownWeighting), ShouldBeTrue)
		})
	})
}
