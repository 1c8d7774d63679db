package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	Convey("Given logger options", t, func() {
		var buf bytes.Buffer

		Convey("When initialising with JSON output", func() {
			err := Init(Options{Format: "json", Level: "debug", Output: &buf})
			So(err, ShouldBeNil)
			Get().Named("review").Info(context.Background(), "session opened", String("event", "e1"), Int("records", 3))

			Convey("Then each line is a JSON object carrying the fields", func() {
				var line map[string]any
				So(json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), ShouldBeNil)
				So(line["msg"], ShouldEqual, "session opened")
				group, ok := line["review"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(group["event"], ShouldEqual, "e1")
				So(group["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the format is unknown", func() {
			err := Init(Options{Format: "xml", Output: &buf})
			Convey("Then Init fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the level is unknown", func() {
			err := Init(Options{Level: "chatty", Output: &buf})
			Convey("Then Init fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLevels(t *testing.T) {
	Convey("Given a text logger at warn level", t, func() {
		var buf bytes.Buffer
		So(Init(Options{Level: "warn", Output: &buf}), ShouldBeNil)
		defer func() { _ = SetLevelString("info") }()

		l := Get()
		ctx := context.Background()
		l.Info(ctx, "hidden")
		l.Debug(ctx, "hidden too")
		l.Warn(ctx, "visible", Duration("took", 2*time.Second), Bool("retry", true))

		Convey("Then only warn and above are written", func() {
			out := buf.String()
			So(out, ShouldNotContainSubstring, "hidden")
			So(out, ShouldContainSubstring, "visible")
			So(out, ShouldContainSubstring, "retry=true")
		})
	})

	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "INFO", " warning ", "error", ""} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		So(SetLevelString("info"), ShouldBeNil)
	})
}

func TestWithAndNop(t *testing.T) {
	Convey("Given a standalone logger", t, func() {
		var buf bytes.Buffer
		So(SetLevelString("info"), ShouldBeNil)
		l := New(&buf).With(String("session", "s-1"))

		Convey("When logging through a child", func() {
			l.Error(context.Background(), "write failed", Error(errTest))
			Convey("Then the inherited fields are present", func() {
				So(buf.String(), ShouldContainSubstring, "session=s-1")
				So(buf.String(), ShouldContainSubstring, "boom")
			})
		})

		Convey("When logging through Nop", func() {
			Nop().Error(context.Background(), "dropped")
			Convey("Then nothing reaches the buffer", func() {
				So(strings.Contains(buf.String(), "dropped"), ShouldBeFalse)
			})
		})
	})
}

type testErr string

func (e testErr) Error() string { return string(e) }

const errTest = testErr("boom")
