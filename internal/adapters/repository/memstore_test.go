package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/rollcall/internal/adapters/repository"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func record(student, date string, status types.Status) model.AttendanceRecord {
	return model.AttendanceRecord{StudentID: student, Date: types.MustParseDate(date), Status: status}
}

func TestMemStoreUpsert(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()

		Convey("When a record is upserted", func() {
			out, err := store.Upsert(ctx, record("s1", "2025-03-10", types.StatusPresent))

			Convey("Then it should be assigned an ID and timestamps", func() {
				So(err, ShouldBeNil)
				So(out.ID, ShouldNotBeEmpty)
				So(out.CreatedAt.IsZero(), ShouldBeFalse)
				So(out.UpdatedAt.Equal(out.CreatedAt), ShouldBeTrue)
				So(store.Count(ctx), ShouldEqual, 1)
			})

			Convey("And it should be readable by key and by ID", func() {
				byKey, err := store.Get(ctx, "s1", types.MustParseDate("2025-03-10"))
				So(err, ShouldBeNil)
				So(byKey.Status, ShouldEqual, types.StatusPresent)

				byID, err := store.GetByID(ctx, out.ID)
				So(err, ShouldBeNil)
				So(byID.StudentID, ShouldEqual, "s1")
			})

			Convey("And a second write for the same key should update in place", func() {
				again, err := store.Upsert(ctx, record("s1", "2025-03-10", types.StatusAbsent))
				So(err, ShouldBeNil)
				So(again.ID, ShouldEqual, out.ID)
				So(again.Status, ShouldEqual, types.StatusAbsent)
				So(store.Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("When an invalid record is upserted", func() {
			_, err := store.Upsert(ctx, record("s1", "2025-03-10", types.Status("half_day")))

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
				So(store.Count(ctx), ShouldEqual, 0)
			})
		})

		Convey("When reading a missing key", func() {
			_, err := store.Get(ctx, "nobody", types.MustParseDate("2025-03-10"))

			Convey("Then ErrNotFound should be returned", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestMemStoreBatch(t *testing.T) {
	Convey("Given a store that rejects one student", t, func() {
		ctx := context.Background()
		fault := errors.New("disk on fire")
		store := repository.NewMemStore(repository.WithWriteHook(func(rec model.AttendanceRecord) error {
			if rec.StudentID == "s3" {
				return fault
			}
			return nil
		}))

		Convey("When a batch of five is written", func() {
			batch := []model.AttendanceRecord{
				record("s1", "2025-03-10", types.StatusAbsent),
				record("s2", "2025-03-10", types.StatusAbsent),
				record("s3", "2025-03-10", types.StatusAbsent),
				record("s4", "2025-03-10", types.StatusAbsent),
				record("s5", "2025-03-10", types.StatusAbsent),
			}
			res, err := store.UpsertBatch(ctx, batch)

			Convey("Then four should be written and one reported as failed", func() {
				So(err, ShouldBeNil)
				So(len(res.Written), ShouldEqual, 4)
				So(len(res.Failed), ShouldEqual, 1)
				So(res.Failed[0].Key.StudentID, ShouldEqual, "s3")
				So(errors.Is(res.Failed[0].Err, fault), ShouldBeTrue)
				So(store.Count(ctx), ShouldEqual, 4)
			})
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		store := repository.NewMemStore()

		Convey("When a batch is written", func() {
			_, err := store.UpsertBatch(ctx, []model.AttendanceRecord{record("s1", "2025-03-10", types.StatusPresent)})

			Convey("Then nothing should be attempted", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(store.Count(context.Background()), ShouldEqual, 0)
			})
		})
	})
}

func TestMemStoreQuery(t *testing.T) {
	Convey("Given a store with records over several days", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		_, err := store.UpsertBatch(ctx, []model.AttendanceRecord{
			record("s2", "2025-03-10", types.StatusPresent),
			record("s1", "2025-03-10", types.StatusLate),
			record("s1", "2025-03-11", types.StatusPresent),
			record("s3", "2025-03-12", types.StatusAbsent),
			record("s1", "2025-03-20", types.StatusPresent),
		})
		So(err, ShouldBeNil)

		Convey("When querying an inclusive date range", func() {
			out, err := store.Query(ctx, repository.RecordQuery{
				From: types.MustParseDate("2025-03-10"),
				To:   types.MustParseDate("2025-03-12"),
			})

			Convey("Then only dates inside the range should be returned in display order", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 4)
				So(out[0].Date.String(), ShouldEqual, "2025-03-12")
				So(out[2].StudentID, ShouldEqual, "s1")
				So(out[3].StudentID, ShouldEqual, "s2")
			})
		})

		Convey("When filtering by status and students", func() {
			out, err := store.Query(ctx, repository.RecordQuery{
				StudentIDs: []string{"s1"},
				Status:     types.StatusPresent,
			})

			Convey("Then both restrictions should apply", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 2)
				for _, r := range out {
					So(r.StudentID, ShouldEqual, "s1")
					So(r.Status, ShouldEqual, types.StatusPresent)
				}
			})
		})

		Convey("When the student restriction is empty but not nil", func() {
			out, err := store.Query(ctx, repository.RecordQuery{StudentIDs: []string{}})

			Convey("Then nothing should match", func() {
				So(err, ShouldBeNil)
				So(out, ShouldBeEmpty)
			})
		})
	})
}

func TestMemStoreUpdateDelete(t *testing.T) {
	Convey("Given a stored record", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		rec, err := store.Upsert(ctx, record("s1", "2025-03-10", types.StatusPresent))
		So(err, ShouldBeNil)

		Convey("When its status and notes are updated", func() {
			rec.Status = types.StatusExcused
			rec.Notes = "doctor's note"
			out, err := store.Update(ctx, rec)

			Convey("Then the change should be persisted", func() {
				So(err, ShouldBeNil)
				So(out.Status, ShouldEqual, types.StatusExcused)
				got, _ := store.GetByID(ctx, rec.ID)
				So(got.Notes, ShouldEqual, "doctor's note")
			})
		})

		Convey("When the update tries to move the date", func() {
			rec.Date = types.MustParseDate("2025-03-11")
			_, err := store.Update(ctx, rec)

			Convey("Then ErrDateImmutable should be returned", func() {
				So(errors.Is(err, repository.ErrDateImmutable), ShouldBeTrue)
			})
		})

		Convey("When it is deleted", func() {
			So(store.Delete(ctx, rec.ID), ShouldBeNil)

			Convey("Then it should be gone", func() {
				_, err := store.GetByID(ctx, rec.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(store.Delete(ctx, rec.ID), repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestMemStoreConcurrentWrites(t *testing.T) {
	Convey("Given concurrent writers on the same key", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				status := types.StatusPresent
				if i%2 == 0 {
					status = types.StatusAbsent
				}
				_, _ = store.Upsert(ctx, record("s1", "2025-03-10", status))
			}(i)
		}
		wg.Wait()

		Convey("Then exactly one record should exist", func() {
			So(store.Count(ctx), ShouldEqual, 1)
		})
	})
}
