package registry

import (
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/dbswap/internal/domain"
)

func TestRegistry(t *testing.T) {
	Convey("Given a Registry over a data directory", t, func() {
		reg, err := New("/data/app")
		So(err, ShouldBeNil)

		Convey("Resolve", func() {
			Convey("When resolving a known slot", func() {
				p, err := reg.Resolve(domain.TypeStrategies)

				Convey("It should return the canonical path", func() {
					So(err, ShouldBeNil)
					So(p.String(), ShouldEqual, filepath.Join("/data/app", "strategies.db"))
				})
			})

			Convey("When resolving an unknown slot", func() {
				_, err := reg.Resolve(domain.DatabaseType("journal"))

				Convey("It should return a ValidationError", func() {
					So(err, ShouldNotBeNil)
				})
			})
		})

		Convey("Override", func() {
			Convey("When rebinding a slot to a new path", func() {
				err := reg.Override(domain.TypeSettings, "/mnt/fast/settings.db")
				So(err, ShouldBeNil)

				p, err := reg.Resolve(domain.TypeSettings)

				Convey("Resolve should observe the new location", func() {
					So(err, ShouldBeNil)
					So(p.String(), ShouldEqual, "/mnt/fast/settings.db")
				})
			})

			Convey("When rebinding to an invalid path", func() {
				err := reg.Override(domain.TypeSettings, "relative/settings.db")

				Convey("It should be rejected", func() {
					So(err, ShouldNotBeNil)
				})
			})
		})

		Convey("Validate", func() {
			Convey("It should accept a well-formed path", func() {
				So(reg.Validate(domain.TypeMarketData, "/somewhere/market.db"), ShouldBeNil)
			})

			Convey("It should reject a wrong extension", func() {
				So(reg.Validate(domain.TypeMarketData, "/somewhere/market.bak"), ShouldNotBeNil)
			})

			Convey("It should never require the file to exist", func() {
				So(reg.Validate(domain.TypeMarketData, "/does/not/exist/market.db"), ShouldBeNil)
			})
		})

		Convey("Derived paths", func() {
			Convey("DeriveBackupPath should land inside the backups directory", func() {
				at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
				backupPath := reg.DeriveBackupPath(domain.TypeStrategies, at)

				So(backupPath, ShouldEqual, filepath.Join("/data/app", BackupDirName, "strategies_backup_20260102_030405.db"))
				So(reg.InsideBackupDir(backupPath), ShouldBeTrue)
			})

			Convey("DeriveTempPath should stay next to the original file", func() {
				p, err := domain.NewDatabasePath("/data/app/strategies.db")
				So(err, ShouldBeNil)

				tempPath := reg.DeriveTempPath(p, domain.TypeStrategies)
				So(filepath.Dir(tempPath), ShouldEqual, "/data/app")
				So(domain.ClassifyFileName(filepath.Base(tempPath)), ShouldEqual, domain.PathKindTemp)
			})
		})

		Convey("InsideBackupDir", func() {
			Convey("It should reject traversal escapes", func() {
				So(reg.InsideBackupDir(filepath.Join(reg.BackupDir(), "..", "strategies.db")), ShouldBeFalse)
				So(reg.InsideBackupDir("/etc/passwd"), ShouldBeFalse)
			})
		})
	})
}
