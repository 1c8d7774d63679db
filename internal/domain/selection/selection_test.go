package selection_test

import (
	"testing"

	"github.com/okian/admit/internal/domain/selection"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTracker(t *testing.T) {
	Convey("Given an empty tracker", t, func() {
		tr := selection.New()

		Convey("When toggling ids", func() {
			So(tr.Toggle("a"), ShouldBeTrue)
			So(tr.Toggle("b"), ShouldBeTrue)
			So(tr.Toggle("c"), ShouldBeTrue)
			So(tr.Toggle("a"), ShouldBeFalse)

			Convey("Then the remaining ids keep their selection order", func() {
				So(tr.IDs(), ShouldResemble, []string{"b", "c"})
				So(tr.Contains("a"), ShouldBeFalse)
				So(tr.Len(), ShouldEqual, 2)
			})

			Convey("And toggling back appends at the end", func() {
				tr.Toggle("a")
				So(tr.IDs(), ShouldResemble, []string{"b", "c", "a"})
			})
		})

		Convey("When selecting all visible ids", func() {
			tr.Toggle("hidden")
			tr.SelectAll([]string{"v1", "v2", "v1"})

			Convey("Then the set is replaced, not merged", func() {
				So(tr.IDs(), ShouldResemble, []string{"v1", "v2"})
				So(tr.Contains("hidden"), ShouldBeFalse)
			})

			Convey("And deselect all empties it", func() {
				tr.DeselectAll()
				So(tr.Len(), ShouldEqual, 0)
				So(tr.IDs(), ShouldBeEmpty)
			})
		})

		Convey("When the caller mutates the returned ids", func() {
			tr.Toggle("x")
			got := tr.IDs()
			got[0] = "y"
			Convey("Then the tracker is unaffected", func() {
				So(tr.Contains("x"), ShouldBeTrue)
			})
		})
	})
}
