package workflow_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/admit/internal/domain/model"
	"github.com/okian/admit/internal/domain/mutation"
	"github.com/okian/admit/internal/domain/workflow"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTransition(t *testing.T) {
	Convey("Given a review time", t, func() {
		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

		Convey("When confirming X and Y in bulk", func() {
			batch, err := workflow.Transition([]string{"X", "Y", "X"}, model.StatusConfirmed, now)

			Convey("Then exactly one write per distinct id is produced", func() {
				So(err, ShouldBeNil)
				So(len(batch), ShouldEqual, 2)
				for i, want := range []string{"X", "Y"} {
					u, ok := batch[i].(mutation.UpdateApplication)
					So(ok, ShouldBeTrue)
					So(u.ID, ShouldEqual, want)
					So(*u.Status, ShouldEqual, model.StatusConfirmed)
					So(u.ReviewedAt.Equal(now), ShouldBeTrue)
					So(u.InternalNotes, ShouldBeNil)
				}
			})
		})

		Convey("When rejecting a single application", func() {
			batch, err := workflow.Transition([]string{"Z"}, model.StatusRejected, now)
			Convey("Then it uses the same write shape as a bulk action", func() {
				So(err, ShouldBeNil)
				So(batch, ShouldHaveLength, 1)
				So(batch[0].Kind(), ShouldEqual, "update_application")
			})
		})

		Convey("When targeting applied", func() {
			_, err := workflow.Transition([]string{"X"}, model.StatusApplied, now)
			Convey("Then the target is refused", func() {
				So(errors.Is(err, workflow.ErrInvalidTarget), ShouldBeTrue)
			})
		})

		Convey("When no ids are given", func() {
			_, err := workflow.Transition(nil, model.StatusConfirmed, now)
			So(errors.Is(err, workflow.ErrNothingToApply), ShouldBeTrue)
		})
	})
}

func TestEditNotes(t *testing.T) {
	Convey("Given a notes edit", t, func() {
		m := workflow.EditNotes("X", "strong referral", time.Now())
		u := m.(mutation.UpdateApplication)

		Convey("Then only the notes are written", func() {
			So(*u.InternalNotes, ShouldEqual, "strong referral")
			So(u.Status, ShouldBeNil)
			So(u.ReviewedAt, ShouldBeNil)
		})
	})
}

func TestGuard(t *testing.T) {
	Convey("Given records in every status", t, func() {
		records := []model.Application{
			{ID: "open", Status: model.StatusApplied},
			{ID: "done", Status: model.StatusConfirmed},
			{ID: "no", Status: model.StatusRejected},
		}
		ids := []string{"open", "done", "no", "ghost"}

		Convey("When terminal states are enforced", func() {
			plan := workflow.Guard(records, ids, true)

			Convey("Then only applied records pass", func() {
				So(plan.Apply, ShouldResemble, []string{"open"})
				So(plan.Skipped, ShouldResemble, []workflow.Skip{
					{ID: "done", Reason: workflow.SkipTerminal, Status: model.StatusConfirmed},
					{ID: "no", Reason: workflow.SkipTerminal, Status: model.StatusRejected},
					{ID: "ghost", Reason: workflow.SkipUnknown},
				})
			})
		})

		Convey("When terminal states are not enforced", func() {
			plan := workflow.Guard(records, ids, false)

			Convey("Then every known record passes", func() {
				So(plan.Apply, ShouldResemble, []string{"open", "done", "no"})
				So(plan.Skipped, ShouldHaveLength, 1)
			})
		})
	})
}
