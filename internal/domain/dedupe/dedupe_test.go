package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/admit/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGuard(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new guard", t, func() {
		g := dedupe.NewInMemoryGuard()
		So(g.Size(), ShouldEqual, 0)

		Convey("When a person submits to an event", func() {
			seen := g.SeenAndRecord(ctx, "e1", "p1")

			Convey("Then the first submission is new and the second is not", func() {
				So(seen, ShouldBeFalse)
				So(g.SeenAndRecord(ctx, "e1", "p1"), ShouldBeTrue)
				So(g.Size(), ShouldEqual, 1)
			})

			Convey("Then other pairs are independent", func() {
				So(g.SeenAndRecord(ctx, "e2", "p1"), ShouldBeFalse)
				So(g.SeenAndRecord(ctx, "e1", "p2"), ShouldBeFalse)
			})

			Convey("Then a failed submission can be retried after unrecording", func() {
				g.Unrecord(ctx, "e1", "p1")
				So(g.Size(), ShouldEqual, 0)
				So(g.SeenAndRecord(ctx, "e1", "p1"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown pair", func() {
			g.Unrecord(ctx, "nope", "nope")
			So(g.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a bounded guard", t, func() {
		g := dedupe.NewInMemoryGuard(dedupe.WithMaxSize(2))
		g.SeenAndRecord(ctx, "e", "p1")
		g.SeenAndRecord(ctx, "e", "p2")
		g.SeenAndRecord(ctx, "e", "p3")

		Convey("Then the oldest pair is evicted first", func() {
			So(g.Size(), ShouldEqual, 2)
			So(g.SeenAndRecord(ctx, "e", "p3"), ShouldBeTrue)
			So(g.SeenAndRecord(ctx, "e", "p1"), ShouldBeFalse)
		})
	})

	Convey("Given an unbounded guard", t, func() {
		g := dedupe.NewInMemoryGuard(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			g.SeenAndRecord(ctx, "e", fmt.Sprintf("p%d", i))
		}
		So(g.Size(), ShouldEqual, 1000)
	})
}

func TestGuard_Concurrent(t *testing.T) {
	Convey("Given many goroutines submitting the same pair", t, func() {
		g := dedupe.NewInMemoryGuard()
		var (
			wg    sync.WaitGroup
			fresh atomic.Int32
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !g.SeenAndRecord(context.Background(), "e1", "p1") {
					fresh.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one wins", func() {
			So(fresh.Load(), ShouldEqual, 1)
		})
	})
}
