package trading

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStateFile(t *testing.T) {
	Convey("Given a StateFile provider", t, func() {
		ctx := context.Background()

		tempDir, err := os.MkdirTemp("", "statefile_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		path := filepath.Join(tempDir, "trading_state.json")
		provider := NewStateFile(path, time.Minute)

		Convey("When the state file does not exist", func() {
			state, err := provider.State(ctx)

			Convey("The application should be considered idle", func() {
				So(err, ShouldBeNil)
				So(state.TradingActive, ShouldBeFalse)
				So(state.CanSwitch, ShouldBeTrue)
			})
		})

		Convey("When the application publishes an active session", func() {
			doc := `{"trading_active": true, "backtest_running": false, "can_switch": false, "blocking_operations": ["order sync"]}`
			So(os.WriteFile(path, []byte(doc), 0644), ShouldBeNil)

			state, err := provider.State(ctx)

			Convey("The provider should report it faithfully", func() {
				So(err, ShouldBeNil)
				So(state.TradingActive, ShouldBeTrue)
				So(state.CanSwitch, ShouldBeFalse)
				So(state.BlockingOperations, ShouldResemble, []string{"order sync"})
			})
		})

		Convey("When the state file is stale", func() {
			So(os.WriteFile(path, []byte(`{"can_switch": true}`), 0644), ShouldBeNil)
			old := time.Now().Add(-time.Hour)
			So(os.Chtimes(path, old, old), ShouldBeNil)

			_, err := provider.State(ctx)

			Convey("It should be reported as an error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "stale")
			})
		})

		Convey("When the state file holds garbage", func() {
			So(os.WriteFile(path, []byte("{nope"), 0644), ShouldBeNil)

			_, err := provider.State(ctx)

			So(err, ShouldNotBeNil)
		})
	})
}
