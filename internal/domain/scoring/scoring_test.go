package scoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/admit/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemorySearcher_Search(t *testing.T) {
	Convey("Given an in-memory searcher with three profiles", t, func() {
		s := scoring.NewInMemorySearcher(
			scoring.WithLatencyRange(0, 0),
			scoring.WithDocuments(map[string]string{
				"p1": "Name: Ada. Location: Berlin. Current role: Climate tech founder.",
				"p2": "Name: Bo. Location: Lisbon. Current role: Founder at a fintech.",
			}),
		)
		s.SetDocument("p3", "Name: Cy. Education: Art school.")

		Convey("When searching for climate founders", func() {
			got, err := s.Search(context.Background(), "Climate founder")

			Convey("Then matching people are ranked best first", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].PersonID, ShouldEqual, "p1")
				So(got[0].Score, ShouldEqual, 1)
				So(got[1].PersonID, ShouldEqual, "p2")
				So(got[1].Score, ShouldEqual, 0.5)
			})
		})

		Convey("When the query is blank", func() {
			_, err := s.Search(context.Background(), " ,. ")
			Convey("Then it is rejected", func() {
				So(errors.Is(err, scoring.ErrBlankQuery), ShouldBeTrue)
			})
		})
	})

	Convey("Given a searcher with simulated latency", t, func() {
		s := scoring.NewInMemorySearcher(scoring.WithLatencyRange(time.Second, 2*time.Second))

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := s.Search(ctx, "anything")

			Convey("Then the search returns the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}
