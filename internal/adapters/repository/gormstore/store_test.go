package gormstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/rollcall/internal/adapters/repository"
	"github.com/okian/rollcall/internal/adapters/repository/gormstore"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/smartystreets/goconvey/convey"
	"gorm.io/gorm"
)

func newStore(t *testing.T, opts ...gormstore.Option) *gormstore.Store {
	t.Helper()
	db, err := gormstore.Open(gormstore.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store, err := gormstore.New(context.Background(), db, opts...)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func rec(student, date string, status types.Status) model.AttendanceRecord {
	return model.AttendanceRecord{StudentID: student, Date: types.MustParseDate(date), Status: status}
}

func TestStoreRoundTrip(t *testing.T) {
	convey.Convey("Given a sqlite backed store", t, func() {
		ctx := context.Background()
		store := newStore(t)

		convey.Convey("When a record with times and notes is written", func() {
			in := rec("s1", "2025-03-10", types.StatusLate)
			in.CheckInTime = types.NewTimeOfDay(8, 17, 0).Ptr()
			in.Notes = "bus delay"
			out, err := store.Upsert(ctx, in)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then reading it back should return the same values", func() {
				got, err := store.Get(ctx, "s1", types.MustParseDate("2025-03-10"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.ID, convey.ShouldEqual, out.ID)
				convey.So(got.Status, convey.ShouldEqual, types.StatusLate)
				convey.So(got.Date.String(), convey.ShouldEqual, "2025-03-10")
				convey.So(got.CheckInTime, convey.ShouldNotBeNil)
				convey.So(got.CheckInTime.String(), convey.ShouldEqual, "08:17:00")
				convey.So(got.CheckOutTime, convey.ShouldBeNil)
				convey.So(got.Notes, convey.ShouldEqual, "bus delay")
			})

			convey.Convey("And writing the same key again should update, not duplicate", func() {
				again, err := store.Upsert(ctx, rec("s1", "2025-03-10", types.StatusPresent))
				convey.So(err, convey.ShouldBeNil)
				convey.So(again.ID, convey.ShouldEqual, out.ID)
				convey.So(again.Status, convey.ShouldEqual, types.StatusPresent)
				convey.So(store.Count(ctx), convey.ShouldEqual, 1)
			})
		})
	})
}

func TestStoreBatch(t *testing.T) {
	convey.Convey("Given a store with a batch size of two", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		chunks := 0
		store := newStore(t,
			gormstore.WithBatchSize(2),
			gormstore.WithChunkCallback(func(int) {
				chunks++
				if chunks == 1 {
					cancel()
				}
			}),
		)

		convey.Convey("When the context is cancelled after the first chunk", func() {
			res, err := store.UpsertBatch(ctx, []model.AttendanceRecord{
				rec("s1", "2025-03-10", types.StatusAbsent),
				rec("s2", "2025-03-10", types.StatusAbsent),
				rec("s3", "2025-03-10", types.StatusAbsent),
				rec("s4", "2025-03-10", types.StatusAbsent),
				rec("s5", "2025-03-10", types.StatusAbsent),
			})

			convey.Convey("Then the committed chunk should stay and the rest be reported as cancelled", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Cancelled, convey.ShouldBeTrue)
				convey.So(len(res.Written), convey.ShouldEqual, 2)
				convey.So(len(res.Failed), convey.ShouldEqual, 3)
				for _, f := range res.Failed {
					convey.So(errors.Is(f.Err, repository.ErrCancelled), convey.ShouldBeTrue)
				}
				convey.So(store.Count(context.Background()), convey.ShouldEqual, 2)
			})
		})
	})

	convey.Convey("Given a single chunk whose context is cancelled after the second insert", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		db, err := gormstore.Open(gormstore.DriverSQLite, ":memory:")
		convey.So(err, convey.ShouldBeNil)
		inserts := 0
		err = db.Callback().Create().After("gorm:create").Register("rollcall:cancel_after_two", func(*gorm.DB) {
			inserts++
			if inserts == 2 {
				cancel()
			}
		})
		convey.So(err, convey.ShouldBeNil)
		store, err := gormstore.New(context.Background(), db, gormstore.WithBatchSize(10))
		convey.So(err, convey.ShouldBeNil)
		defer store.Close()

		res, err := store.UpsertBatch(ctx, []model.AttendanceRecord{
			rec("s1", "2025-03-10", types.StatusPresent),
			rec("s2", "2025-03-10", types.StatusPresent),
			rec("s3", "2025-03-10", types.StatusPresent),
			rec("s4", "2025-03-10", types.StatusPresent),
			rec("s5", "2025-03-10", types.StatusPresent),
		})

		convey.Convey("Then the chunk should be rolled back and reported as cancelled", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Cancelled, convey.ShouldBeTrue)
			convey.So(len(res.Written), convey.ShouldEqual, 0)
			convey.So(len(res.Failed), convey.ShouldEqual, 5)
			for _, f := range res.Failed {
				convey.So(errors.Is(f.Err, repository.ErrCancelled), convey.ShouldBeTrue)
			}
			convey.So(store.Count(context.Background()), convey.ShouldEqual, 0)
		})
	})

	convey.Convey("Given a batch containing one invalid record", t, func() {
		ctx := context.Background()
		store := newStore(t)

		res, err := store.UpsertBatch(ctx, []model.AttendanceRecord{
			rec("s1", "2025-03-10", types.StatusPresent),
			rec("s2", "2025-03-10", types.Status("unknown")),
			rec("s3", "2025-03-10", types.StatusPresent),
		})

		convey.Convey("Then only that record should fail", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(res.Written), convey.ShouldEqual, 2)
			convey.So(len(res.Failed), convey.ShouldEqual, 1)
			convey.So(res.Failed[0].Key.StudentID, convey.ShouldEqual, "s2")
			convey.So(errors.Is(res.Failed[0].Err, repository.ErrInvalidRecord), convey.ShouldBeTrue)
		})
	})
}

func TestStoreQuery(t *testing.T) {
	convey.Convey("Given stored records across a fortnight", t, func() {
		ctx := context.Background()
		store := newStore(t)
		_, err := store.UpsertBatch(ctx, []model.AttendanceRecord{
			rec("s1", "2025-03-03", types.StatusPresent),
			rec("s2", "2025-03-10", types.StatusAbsent),
			rec("s1", "2025-03-10", types.StatusPresent),
			rec("s1", "2025-03-14", types.StatusLate),
			rec("s3", "2025-03-17", types.StatusPresent),
		})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When querying an inclusive range", func() {
			out, err := store.Query(ctx, repository.RecordQuery{
				From: types.MustParseDate("2025-03-10"),
				To:   types.MustParseDate("2025-03-14"),
			})

			convey.Convey("Then records on both bounds should be included in display order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(out), convey.ShouldEqual, 3)
				convey.So(out[0].Date.String(), convey.ShouldEqual, "2025-03-14")
				convey.So(out[1].StudentID, convey.ShouldEqual, "s1")
				convey.So(out[2].StudentID, convey.ShouldEqual, "s2")
			})
		})

		convey.Convey("When restricting by student and status", func() {
			out, err := store.Query(ctx, repository.RecordQuery{StudentIDs: []string{"s1"}, Status: types.StatusPresent})

			convey.Convey("Then only matching rows should return", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(out), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When restricting to an empty student set", func() {
			out, err := store.Query(ctx, repository.RecordQuery{StudentIDs: []string{}})

			convey.Convey("Then nothing should return", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldBeEmpty)
			})
		})
	})
}

func TestStoreUpdateDelete(t *testing.T) {
	convey.Convey("Given a stored record", t, func() {
		ctx := context.Background()
		store := newStore(t)
		stored, err := store.Upsert(ctx, rec("s1", "2025-03-10", types.StatusAbsent))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When it is marked excused", func() {
			stored.Status = types.StatusExcused
			stored.Notes = "medical"
			out, err := store.Update(ctx, stored)

			convey.Convey("Then the new values should be stored", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Status, convey.ShouldEqual, types.StatusExcused)
				convey.So(out.Notes, convey.ShouldEqual, "medical")
			})
		})

		convey.Convey("When the date is changed", func() {
			stored.Date = types.MustParseDate("2025-03-11")
			_, err := store.Update(ctx, stored)

			convey.Convey("Then the update should be refused", func() {
				convey.So(errors.Is(err, repository.ErrDateImmutable), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When it is deleted twice", func() {
			first := store.Delete(ctx, stored.ID)
			second := store.Delete(ctx, stored.ID)

			convey.Convey("Then the second delete should report not found", func() {
				convey.So(first, convey.ShouldBeNil)
				convey.So(errors.Is(second, repository.ErrNotFound), convey.ShouldBeTrue)
			})
		})
	})
}

func TestOpenUnknownDriver(t *testing.T) {
	convey.Convey("Given an unsupported driver name", t, func() {
		_, err := gormstore.Open("oracle", "")

		convey.Convey("Then Open should fail with ErrUnknownDriver", func() {
			convey.So(errors.Is(err, gormstore.ErrUnknownDriver), convey.ShouldBeTrue)
		})
	})
}
