package roster_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/rollcall/internal/adapters/repository/gormstore"
	"github.com/okian/rollcall/internal/adapters/roster"
	"github.com/okian/rollcall/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}

func TestSeedProvider(t *testing.T) {
	Convey("Given the seed roster file", t, func() {
		ctx := context.Background()
		p, err := roster.LoadSeedFile("testdata/roster.yaml")
		So(err, ShouldBeNil)

		Convey("When listing levels and sections", func() {
			levels, err := p.ListLevels(ctx)
			So(err, ShouldBeNil)
			sections, err := p.ListSections(ctx)
			So(err, ShouldBeNil)

			Convey("Then every entry should be decoded", func() {
				So(len(levels), ShouldEqual, 2)
				So(levels[0].Number, ShouldEqual, 1)
				So(levels[1].Name, ShouldEqual, "Grade 2")
				So(len(sections), ShouldEqual, 3)
				So(sections[0].LevelID, ShouldEqual, "grade-1")
			})
		})

		Convey("When listing students of a level", func() {
			students, err := p.ListStudents(ctx, roster.Query{LevelID: "grade-1"})

			Convey("Then only that level should be returned, ordered by name", func() {
				So(err, ShouldBeNil)
				So(ids(students, studentID), ShouldResemble, []string{"s1", "s2", "s3"})
			})
		})

		Convey("When combining section and search", func() {
			students, err := p.ListStudents(ctx, roster.Query{SectionID: "g1-a", Search: "bil"})

			Convey("Then both conditions should apply", func() {
				So(err, ShouldBeNil)
				So(ids(students, studentID), ShouldResemble, []string{"s2"})
			})
		})

		Convey("When listing without filters", func() {
			students, err := p.ListStudents(ctx, roster.Query{})

			Convey("Then the whole roster should be returned", func() {
				So(err, ShouldBeNil)
				So(len(students), ShouldEqual, 4)
			})
		})
	})

	Convey("Given a missing seed file", t, func() {
		_, err := roster.LoadSeedFile("testdata/nope.yaml")

		Convey("Then loading should fail with ErrLoadRoster", func() {
			So(errors.Is(err, roster.ErrLoadRoster), ShouldBeTrue)
		})
	})
}

func TestSQLProvider(t *testing.T) {
	Convey("Given a sqlite roster seeded from the file", t, func() {
		ctx := context.Background()
		db, err := gormstore.Open(gormstore.DriverSQLite, ":memory:")
		So(err, ShouldBeNil)

		seed, err := roster.LoadSeedFile("testdata/roster.yaml")
		So(err, ShouldBeNil)
		levels, _ := seed.ListLevels(ctx)
		sections, _ := seed.ListSections(ctx)
		students, _ := seed.ListStudents(ctx, roster.Query{})

		p := roster.NewSQLProvider(db)
		So(p.Migrate(ctx), ShouldBeNil)
		So(p.Seed(ctx, roster.Roster{Levels: levels, Sections: sections, Students: students}), ShouldBeNil)

		Convey("When searching by student number in another case", func() {
			got, err := p.ListStudents(ctx, roster.Query{Search: "stu-0003"})

			Convey("Then the matching student should be returned", func() {
				So(err, ShouldBeNil)
				So(ids(got, studentID), ShouldResemble, []string{"s3"})
			})
		})

		Convey("When filtering by level", func() {
			got, err := p.ListStudents(ctx, roster.Query{LevelID: "grade-2"})

			Convey("Then only that level should be returned", func() {
				So(err, ShouldBeNil)
				So(ids(got, studentID), ShouldResemble, []string{"s4"})
			})
		})

		Convey("When listing levels and sections", func() {
			lv, err := p.ListLevels(ctx)
			So(err, ShouldBeNil)
			sc, err := p.ListSections(ctx)
			So(err, ShouldBeNil)

			Convey("Then they should mirror the seed", func() {
				So(len(lv), ShouldEqual, 2)
				So(lv[0].ID, ShouldEqual, "grade-1")
				So(len(sc), ShouldEqual, 3)
			})
		})
	})
}

func TestSearchWildcards(t *testing.T) {
	Convey("Given the same roster in both providers with wildcard characters in names", t, func() {
		ctx := context.Background()
		r := roster.Roster{
			Levels:   []model.Level{{ID: "grade-1", Number: 1, Name: "Grade 1"}},
			Sections: []model.Section{{ID: "g1-a", Number: "A", Name: "Grade 1 A", LevelID: "grade-1"}},
			Students: []model.Student{
				{ID: "s1", Name: "Amina Yusuf", StudentNumber: "STU-0001", LevelID: "grade-1", SectionID: "g1-a"},
				{ID: "s2", Name: "Bilal Haddad", StudentNumber: "STU_0002", LevelID: "grade-1", SectionID: "g1-a"},
				{ID: "s3", Name: "Chen 100% Wei", StudentNumber: "STU-0003", LevelID: "grade-1", SectionID: "g1-a"},
			},
		}
		seed := roster.NewSeedProvider(r)

		db, err := gormstore.Open(gormstore.DriverSQLite, ":memory:")
		So(err, ShouldBeNil)
		sql := roster.NewSQLProvider(db)
		So(sql.Migrate(ctx), ShouldBeNil)
		So(sql.Seed(ctx, r), ShouldBeNil)

		cases := []struct {
			term string
			want []string
		}{
			{term: "_", want: []string{"s2"}},
			{term: "%", want: []string{"s3"}},
			{term: `\`, want: []string{}},
			{term: "u_0", want: []string{"s2"}},
		}

		Convey("When searching for each term", func() {
			Convey("Then both providers should treat it as plain text", func() {
				for _, c := range cases {
					fromSeed, err := seed.ListStudents(ctx, roster.Query{Search: c.term})
					So(err, ShouldBeNil)
					fromSQL, err := sql.ListStudents(ctx, roster.Query{Search: c.term})
					So(err, ShouldBeNil)

					So(ids(fromSeed, studentID), ShouldResemble, c.want)
					So(ids(fromSQL, studentID), ShouldResemble, c.want)
				}
			})
		})
	})
}

func studentID(s model.Student) string { return s.ID }
