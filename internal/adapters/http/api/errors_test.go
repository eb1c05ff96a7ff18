package api_test

import (
	"errors"
	"testing"

	"github.com/okian/rollcall/internal/adapters/http/api"
	. "github.com/smartystreets/goconvey/convey"
)

func TestErrors(t *testing.T) {
	Convey("Given API error helpers", t, func() {
		cause := errors.New("boom")

		Convey("When wrapping a cause with a kind", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, cause)

			Convey("Then both the kind and the cause should match", func() {
				So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
				So(errors.Is(err, cause), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "api.op: bad request: boom")
			})
		})

		Convey("When creating a bare kind", func() {
			err := api.NewKind("api.op", api.ErrBadRequest)

			Convey("Then the message should name the op and kind", func() {
				So(err.Error(), ShouldEqual, "api.op: bad request")
				So(errors.Is(err, api.ErrInternal), ShouldBeFalse)
			})
		})

		Convey("When wrapping as internal", func() {
			err := api.Wrap("api.op", cause)

			Convey("Then it should match ErrInternal", func() {
				So(errors.Is(err, api.ErrInternal), ShouldBeTrue)
			})
		})
	})
}
