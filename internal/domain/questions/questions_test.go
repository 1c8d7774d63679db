package questions_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/admit/internal/domain/model"
	"github.com/okian/admit/internal/domain/mutation"
	"github.com/okian/admit/internal/domain/questions"
	. "github.com/smartystreets/goconvey/convey"
)

func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func loaded() []model.Question {
	return []model.Question{
		{ID: "q3", Text: "Anything else?", Order: 2},
		{ID: "q1", Text: "Why this event?", Required: true, Order: 0},
		{ID: "q2", Text: "What are you building?", Order: 1},
	}
}

func orders(l *questions.List) []int {
	var out []int
	for _, e := range l.Entries() {
		out = append(out, e.Order)
	}
	return out
}

func values(l *questions.List) []string {
	var out []string
	for _, e := range l.Entries() {
		out = append(out, e.ID.Value())
	}
	return out
}

func TestList_Move(t *testing.T) {
	Convey("Given a three-question list", t, func() {
		l := questions.NewList(loaded())
		So(values(l), ShouldResemble, []string{"q1", "q2", "q3"})

		Convey("When moving the first question up", func() {
			moved, err := l.MoveUp(questions.Persisted("q1"))

			Convey("Then nothing changes", func() {
				So(err, ShouldBeNil)
				So(moved, ShouldBeFalse)
				So(values(l), ShouldResemble, []string{"q1", "q2", "q3"})
			})
		})

		Convey("When moving the first question down", func() {
			moved, err := l.MoveDown(questions.Persisted("q1"))

			Convey("Then it swaps with the second and orders stay dense", func() {
				So(err, ShouldBeNil)
				So(moved, ShouldBeTrue)
				So(values(l), ShouldResemble, []string{"q2", "q1", "q3"})
				So(orders(l), ShouldResemble, []int{0, 1, 2})
			})
		})

		Convey("When moving the last question down", func() {
			moved, _ := l.MoveDown(questions.Persisted("q3"))
			So(moved, ShouldBeFalse)
		})

		Convey("When moving an unknown entry", func() {
			_, err := l.MoveUp(questions.Pending("nope"))
			So(errors.Is(err, questions.ErrEntryNotFound), ShouldBeTrue)
		})
	})
}

func TestList_Edit(t *testing.T) {
	Convey("Given a list with a new entry", t, func() {
		l := questions.NewList(loaded(), questions.WithIDGenerator(sequence("local-")))
		id := l.Append()

		Convey("Then the entry is pending and ordered last", func() {
			So(id.IsPending(), ShouldBeTrue)
			So(id.Value(), ShouldEqual, "local-1")
			entries := l.Entries()
			So(entries[3].Order, ShouldEqual, 3)
		})

		Convey("When updating it", func() {
			text, required := "Dietary needs?", true
			So(l.Update(id, questions.Patch{Text: &text}), ShouldBeNil)
			So(l.Update(id, questions.Patch{Required: &required}), ShouldBeNil)

			Convey("Then both fields change in place", func() {
				e := l.Entries()[3]
				So(e.Text, ShouldEqual, "Dietary needs?")
				So(e.Required, ShouldBeTrue)
			})
		})

		Convey("When removing a middle entry", func() {
			So(l.Remove(questions.Persisted("q2")), ShouldBeNil)

			Convey("Then the remaining orders are renumbered", func() {
				So(values(l), ShouldResemble, []string{"q1", "q3", "local-1"})
				So(orders(l), ShouldResemble, []int{0, 1, 2})
			})
		})
	})
}

func TestList_Reconcile(t *testing.T) {
	Convey("Given a loaded list", t, func() {
		l := questions.NewList(loaded(), questions.WithIDGenerator(sequence("local-")))

		Convey("When nothing was edited", func() {
			c := l.Reconcile()
			Convey("Then every original is updated in place", func() {
				So(c.Deletes, ShouldBeEmpty)
				So(c.Creates, ShouldBeEmpty)
				So(len(c.Updates), ShouldEqual, 3)
			})
		})

		Convey("When one original is deleted and one blank question is added", func() {
			So(l.Remove(questions.Persisted("q2")), ShouldBeNil)
			l.Append()
			c := l.Reconcile()

			Convey("Then there is exactly one delete and no create", func() {
				So(c.Deletes, ShouldResemble, []string{"q2"})
				So(c.Creates, ShouldBeEmpty)
				So(c.Updates, ShouldResemble, []questions.Update{
					{ID: "q1", Text: "Why this event?", Required: true, Order: 0},
					{ID: "q3", Text: "Anything else?", Order: 1},
				})
			})
		})

		Convey("When a new question is inserted before a blank one", func() {
			blank := l.Append()
			filled := l.Append()
			text := "  Portfolio link  "
			So(l.Update(filled, questions.Patch{Text: &text}), ShouldBeNil)
			_ = blank
			c := l.Reconcile()

			Convey("Then the create is trimmed and ordered among the saved entries", func() {
				So(c.Creates, ShouldResemble, []questions.Create{
					{LocalID: "local-2", Text: "Portfolio link", Order: 3},
				})
			})

			Convey("And compiling yields deletes, updates and creates for the event", func() {
				batch := c.Mutations("event-1", sequence("new-"))
				So(batch, ShouldHaveLength, 4)
				created, ok := batch[3].(mutation.CreateQuestion)
				So(ok, ShouldBeTrue)
				So(created.Question.ID, ShouldEqual, "new-1")
				So(created.Question.EventID, ShouldEqual, "event-1")
			})
		})

		Convey("When a stored question is blanked (deleted rather than kept, so orders stay dense)", func() {
			empty := ""
			So(l.Update(questions.Persisted("q1"), questions.Patch{Text: &empty}), ShouldBeNil)
			c := l.Reconcile()

			Convey("Then it is deleted, never saved blank, and the others close the gap", func() {
				So(c.Deletes, ShouldResemble, []string{"q1"})
				for _, u := range c.Updates {
					So(u.ID, ShouldNotEqual, "q1")
				}
				So(c.Updates[0].ID, ShouldEqual, "q2")
				So(c.Updates[0].Order, ShouldEqual, 0)
			})
		})
	})
}

func TestEntryID(t *testing.T) {
	Convey("Given tagged ids", t, func() {
		Convey("Then they round-trip through JSON", func() {
			b, err := json.Marshal(questions.Entry{ID: questions.Pending("abc")})
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"pending:abc"`)

			var e questions.Entry
			So(json.Unmarshal(b, &e), ShouldBeNil)
			So(e.ID, ShouldResemble, questions.Pending("abc"))
		})

		Convey("Then a pending and a persisted id with the same value differ", func() {
			So(questions.Pending("x") == questions.Persisted("x"), ShouldBeFalse)
		})

		Convey("Then malformed ids are rejected", func() {
			_, err := questions.ParseEntryID("draft:1")
			So(errors.Is(err, questions.ErrBadEntryID), ShouldBeTrue)
			_, err = questions.ParseEntryID("persisted:")
			So(err, ShouldNotBeNil)
		})
	})
}
