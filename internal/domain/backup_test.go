package domain

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBackupRecord(t *testing.T) {
	Convey("Given a fresh BackupRecord", t, func() {
		profile, err := NewProfile("main strategies", TypeStrategies, "/data/strategies.db")
		So(err, ShouldBeNil)

		record := NewBackupRecord(profile, BackupTypeManual, "/data/user_backups/strategies_backup_20260101_120000.db")

		Convey("It should start out pending", func() {
			So(record.Status, ShouldEqual, BackupStatusPending)
			So(record.ProfileID, ShouldEqual, profile.ID)
			So(record.DatabaseType, ShouldEqual, TypeStrategies)
		})

		Convey("When following the happy path", func() {
			So(record.Start(), ShouldBeNil)
			So(record.Status, ShouldEqual, BackupStatusRunning)

			err := record.Complete(2048, "abc123", time.Now())

			Convey("It should end completed with size, checksum and completion time", func() {
				So(err, ShouldBeNil)
				So(record.Status, ShouldEqual, BackupStatusCompleted)
				So(record.SizeBytes, ShouldEqual, 2048)
				So(record.Checksum, ShouldEqual, "abc123")
				So(record.CompletedAt, ShouldNotBeNil)
				So(record.CompletedAt.Before(record.CreatedAt), ShouldBeFalse)
			})
		})

		Convey("When completing without a checksum", func() {
			So(record.Start(), ShouldBeNil)
			err := record.Complete(2048, "", time.Now())

			Convey("It should refuse the transition", func() {
				So(err, ShouldNotBeNil)
				So(record.Status, ShouldEqual, BackupStatusRunning)
			})
		})

		Convey("When completing before starting", func() {
			err := record.Complete(2048, "abc123", time.Now())

			Convey("It should refuse the transition", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When failing", func() {
			So(record.Start(), ShouldBeNil)
			record.Fail("disk full")

			Convey("It should carry the error message", func() {
				So(record.Status, ShouldEqual, BackupStatusFailed)
				So(record.ErrorMessage, ShouldEqual, "disk full")
			})
		})

		Convey("When marking a completed record corrupted", func() {
			So(record.Start(), ShouldBeNil)
			So(record.Complete(2048, "abc123", time.Now()), ShouldBeNil)

			record.MarkCorrupted("checksum mismatch on re-verification")

			Convey("It should be reclassified", func() {
				So(record.Status, ShouldEqual, BackupStatusCorrupted)
				So(record.ErrorMessage, ShouldContainSubstring, "checksum mismatch")
			})
		})

		Convey("When marking a failed record corrupted", func() {
			record.Fail("copy interrupted")
			record.MarkCorrupted("whatever")

			Convey("It should stay failed", func() {
				So(record.Status, ShouldEqual, BackupStatusFailed)
			})
		})
	})
}

func TestProfile(t *testing.T) {
	Convey("Given the Profile factory", t, func() {
		Convey("When creating with valid inputs", func() {
			p, err := NewProfile("primary settings", TypeSettings, "/data/settings.db")

			Convey("It should populate identity and timestamps", func() {
				So(err, ShouldBeNil)
				So(p.ID, ShouldNotBeEmpty)
				So(p.Active, ShouldBeFalse)
				So(p.CreatedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When creating with an unknown database type", func() {
			_, err := NewProfile("x", DatabaseType("journal"), "/data/journal.db")

			Convey("It should return a ValidationError", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When creating with a bad file extension", func() {
			_, err := NewProfile("x", TypeSettings, "/data/settings.txt")

			Convey("It should return a ValidationError", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
