package logger

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given the Logger package", t, func() {
		Convey("When creating a logger with console output only", func() {
			logger, err := New("info", "")

			Convey("It should create a logger successfully", func() {
				So(err, ShouldBeNil)
				So(logger, ShouldNotBeNil)
				So(func() { logger.Info("console log") }, ShouldNotPanic)
			})
		})

		Convey("When creating a logger with a log file", func() {
			tempDir, err := os.MkdirTemp("", "logger_test")
			So(err, ShouldBeNil)
			defer os.RemoveAll(tempDir)

			logFile := filepath.Join(tempDir, "dbswap.log")
			logger, err := New("debug", logFile)

			Convey("It should tee output into the file", func() {
				So(err, ShouldBeNil)
				So(logger, ShouldNotBeNil)

				logger.Debug("file log")
				logger.Sync()

				_, err := os.Stat(logFile)
				So(err, ShouldBeNil)

				logger.Close()
			})
		})

		Convey("When the log level is unknown", func() {
			logger, err := New("chatty", "")

			Convey("It should fall back to info without error", func() {
				So(err, ShouldBeNil)
				So(logger, ShouldNotBeNil)
				So(func() { logger.Info("info log") }, ShouldNotPanic)
			})
		})

		Convey("When the log file directory cannot be created", func() {
			logger, err := New("info", "/proc/nonexistent/dbswap.log")

			Convey("It should return an error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to create log directory")
				So(logger, ShouldBeNil)
			})
		})

		Convey("When deriving a named child logger", func() {
			logger, err := New("info", "")
			So(err, ShouldBeNil)

			child := logger.Named("coordinator")

			Convey("It should log through the same core", func() {
				So(child, ShouldNotBeNil)
				So(func() { child.Infof("phase %s", "swapping") }, ShouldNotPanic)
			})
		})

		Convey("When closing a logger", func() {
			logger, err := New("info", "")
			So(err, ShouldBeNil)

			Convey("It should not panic", func() {
				So(func() { logger.Close() }, ShouldNotPanic)
			})
		})
	})
}
