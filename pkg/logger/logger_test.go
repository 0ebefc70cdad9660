package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a usable logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with a nil writer", func() {
			err := InitWith(nil, FormatJSON)

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWith(&buf, FormatJSON), ShouldBeNil)
		defer func() { _ = Init() }()

		ctx := WithRequestID(context.Background(), "req-1")

		Convey("When logging with fields", func() {
			Named("sync").Info(ctx, "pushed", String("username", "ana"), Int("guesses", 3), Error(errors.New("boom")))
			out := buf.String()

			Convey("Then the line carries message, fields, name and request id", func() {
				So(out, ShouldContainSubstring, `"message":"pushed"`)
				So(out, ShouldContainSubstring, `"username":"ana"`)
				So(out, ShouldContainSubstring, `"guesses":3`)
				So(out, ShouldContainSubstring, `"error":"boom"`)
				So(out, ShouldContainSubstring, `"logger":"sync"`)
				So(out, ShouldContainSubstring, `"request_id":"req-1"`)
				So(out, ShouldContainSubstring, `"source":`)
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			defer func() { _ = SetLevelString("info") }()
			Get().Info(ctx, "hidden")

			Convey("Then info lines are dropped", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
			})
		})

		Convey("When With adds permanent fields", func() {
			Get().With(String("component", "api")).Warn(ctx, "slow")

			Convey("Then every line carries them", func() {
				So(buf.String(), ShouldContainSubstring, `"component":"api"`)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "info", "", "warn", "warning", "error", " INFO "} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		_ = SetLevelString("info")
	})
}

func TestNop(t *testing.T) {
	Convey("Nop logger accepts calls without output", t, func() {
		l := Nop()
		So(func() { l.Info(context.Background(), "x"); l.Named("a").Debug(nil, "y") }, ShouldNotPanic)
	})
}
