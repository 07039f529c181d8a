package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/dbswap/internal/domain"
)

func newTestProfile(t *testing.T, dir, name string, dbType domain.DatabaseType) *domain.Profile {
	t.Helper()

	path := filepath.Join(dir, name+".db")
	if err := os.WriteFile(path, []byte("content of "+name), 0644); err != nil {
		t.Fatalf("write profile file: %v", err)
	}

	p, err := domain.NewProfile(name, dbType, path)
	if err != nil {
		t.Fatalf("new profile: %v", err)
	}
	return p
}

func TestProfileStore(t *testing.T) {
	Convey("Given a ProfileStore", t, func() {
		s := NewProfileStore()

		tempDir, err := os.MkdirTemp("", "store_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		Convey("AddProfile", func() {
			Convey("When adding a plain profile", func() {
				p := newTestProfile(t, tempDir, "settings_a", domain.TypeSettings)

				So(s.AddProfile(p), ShouldBeNil)

				got, err := s.GetProfile(p.ID)
				So(err, ShouldBeNil)
				So(got.Name, ShouldEqual, "settings_a")
			})

			Convey("When adding the same id twice", func() {
				p := newTestProfile(t, tempDir, "settings_a", domain.TypeSettings)
				So(s.AddProfile(p), ShouldBeNil)

				So(s.AddProfile(p), ShouldEqual, domain.ErrDuplicateProfile)
			})

			Convey("When adding a second profile on the same file path", func() {
				p1 := newTestProfile(t, tempDir, "settings_a", domain.TypeSettings)
				So(s.AddProfile(p1), ShouldBeNil)

				p2, err := domain.NewProfile("other", domain.TypeSettings, p1.FilePath)
				So(err, ShouldBeNil)

				So(s.AddProfile(p2), ShouldEqual, domain.ErrDuplicatePath)
			})

			Convey("When adding an active profile while another is active for the type", func() {
				p1 := newTestProfile(t, tempDir, "strategies_a", domain.TypeStrategies)
				p1.Active = true
				So(s.AddProfile(p1), ShouldBeNil)

				p2 := newTestProfile(t, tempDir, "strategies_b", domain.TypeStrategies)
				p2.Active = true
				So(s.AddProfile(p2), ShouldBeNil)

				Convey("The prior active profile should be deactivated", func() {
					active, err := s.GetActive(domain.TypeStrategies)
					So(err, ShouldBeNil)
					So(active.ID, ShouldEqual, p2.ID)

					prior, err := s.GetProfile(p1.ID)
					So(err, ShouldBeNil)
					So(prior.Active, ShouldBeFalse)
				})
			})
		})

		Convey("Activate and Deactivate", func() {
			p1 := newTestProfile(t, tempDir, "market_a", domain.TypeMarketData)
			p2 := newTestProfile(t, tempDir, "market_b", domain.TypeMarketData)
			So(s.AddProfile(p1), ShouldBeNil)
			So(s.AddProfile(p2), ShouldBeNil)

			Convey("When activating a profile whose file exists", func() {
				So(s.Activate(p1.ID), ShouldBeNil)

				active, err := s.GetActive(domain.TypeMarketData)
				So(err, ShouldBeNil)
				So(active.ID, ShouldEqual, p1.ID)
			})

			Convey("When activating a sibling afterwards", func() {
				So(s.Activate(p1.ID), ShouldBeNil)
				So(s.Activate(p2.ID), ShouldBeNil)

				Convey("Only the sibling should remain active", func() {
					active, err := s.GetActive(domain.TypeMarketData)
					So(err, ShouldBeNil)
					So(active.ID, ShouldEqual, p2.ID)

					first, _ := s.GetProfile(p1.ID)
					So(first.Active, ShouldBeFalse)
				})
			})

			Convey("When activating a profile whose file is gone", func() {
				So(os.Remove(p1.FilePath), ShouldBeNil)

				err := s.Activate(p1.ID)

				Convey("It should be rejected", func() {
					So(err, ShouldNotBeNil)
				})
			})

			Convey("When deactivating the active profile", func() {
				So(s.Activate(p1.ID), ShouldBeNil)
				So(s.Deactivate(p1.ID), ShouldBeNil)

				_, err := s.GetActive(domain.TypeMarketData)
				So(err, ShouldEqual, domain.ErrProfileNotFound)
			})
		})

		Convey("RemoveProfile", func() {
			p := newTestProfile(t, tempDir, "settings_a", domain.TypeSettings)
			So(s.AddProfile(p), ShouldBeNil)

			Convey("When the profile is active", func() {
				So(s.Activate(p.ID), ShouldBeNil)

				So(s.RemoveProfile(p.ID), ShouldEqual, domain.ErrProfileActive)
			})

			Convey("When the profile is inactive", func() {
				record := domain.NewBackupRecord(p, domain.BackupTypeManual, filepath.Join(tempDir, "settings_backup_20260101_000000.db"))
				So(s.AddBackup(record), ShouldBeNil)

				So(s.RemoveProfile(p.ID), ShouldBeNil)

				Convey("Its backup records should be cascaded away", func() {
					_, err := s.GetBackup(record.ID)
					So(err, ShouldEqual, domain.ErrBackupNotFound)
				})
			})
		})

		Convey("UpdatePath", func() {
			p := newTestProfile(t, tempDir, "strategies_a", domain.TypeStrategies)
			So(s.AddProfile(p), ShouldBeNil)

			Convey("When rebinding to a fresh path", func() {
				newPath := filepath.Join(tempDir, "strategies_moved.db")
				So(s.UpdatePath(p.ID, newPath), ShouldBeNil)

				got, _ := s.GetProfile(p.ID)
				So(got.FilePath, ShouldEqual, newPath)
			})

			Convey("When rebinding to a path owned by a sibling", func() {
				other := newTestProfile(t, tempDir, "strategies_b", domain.TypeStrategies)
				So(s.AddProfile(other), ShouldBeNil)

				So(s.UpdatePath(p.ID, other.FilePath), ShouldEqual, domain.ErrDuplicatePath)
			})

			Convey("When rebinding to a malformed path", func() {
				So(s.UpdatePath(p.ID, "relative.db"), ShouldNotBeNil)
			})
		})

		Convey("Backup records", func() {
			p := newTestProfile(t, tempDir, "settings_a", domain.TypeSettings)
			So(s.AddProfile(p), ShouldBeNil)

			Convey("When adding a record for an unknown profile", func() {
				orphan, err := domain.NewProfile("ghost", domain.TypeSettings, filepath.Join(tempDir, "ghost.db"))
				So(err, ShouldBeNil)
				record := domain.NewBackupRecord(orphan, domain.BackupTypeManual, filepath.Join(tempDir, "x.db"))

				So(s.AddBackup(record), ShouldEqual, domain.ErrProfileNotFound)
			})

			Convey("When filtering by age", func() {
				oldRecord := domain.NewBackupRecord(p, domain.BackupTypeAutomatic, filepath.Join(tempDir, "old.db"))
				oldRecord.CreatedAt = time.Now().AddDate(0, 0, -30)
				newRecord := domain.NewBackupRecord(p, domain.BackupTypeAutomatic, filepath.Join(tempDir, "new.db"))

				So(s.AddBackup(oldRecord), ShouldBeNil)
				So(s.AddBackup(newRecord), ShouldBeNil)

				cutoff := time.Now().AddDate(0, 0, -7)
				old := s.BackupsOlderThan(cutoff)

				Convey("Only records created before the cutoff should be returned", func() {
					So(len(old), ShouldEqual, 1)
					So(old[0].ID, ShouldEqual, oldRecord.ID)
				})
			})
		})

		Convey("GetByType", func() {
			p1 := newTestProfile(t, tempDir, "settings_a", domain.TypeSettings)
			p2 := newTestProfile(t, tempDir, "settings_b", domain.TypeSettings)
			p3 := newTestProfile(t, tempDir, "market_a", domain.TypeMarketData)
			So(s.AddProfile(p1), ShouldBeNil)
			So(s.AddProfile(p2), ShouldBeNil)
			So(s.AddProfile(p3), ShouldBeNil)

			settings := s.GetByType(domain.TypeSettings)
			So(len(settings), ShouldEqual, 2)
		})
	})
}
