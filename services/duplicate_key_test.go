package services

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/phishguard/models"
)

// beforeInsertOnce runs competing SQL inside the same transaction right before
// the next insert into table, the way a concurrent request would win the race
// between the existence check and the insert.
func beforeInsertOnce(t *testing.T, db *gorm.DB, table, sql string, args ...interface{}) {
	t.Helper()
	fired := false
	err := db.Callback().Create().Before("gorm:create").Register("test:competing_insert_"+table, func(tx *gorm.DB) {
		if fired || tx.Statement.Table != table {
			return
		}
		fired = true
		if err := tx.Session(&gorm.Session{NewDB: true}).Exec(sql, args...).Error; err != nil {
			t.Errorf("competing insert into %s: %v", table, err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

func TestConcurrentDuplicatesAreConflicts(t *testing.T) {
	now := time.Now()

	t.Run("register", func(t *testing.T) {
		f := newFixture(t)
		beforeInsertOnce(t, f.db, "users",
			"INSERT INTO users (email, name, is_admin, is_super_admin, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			"race@example.com", "First", false, false, now, now)
		_, err := f.users.Register(RegisterInput{Email: "race@example.com", Name: "Second", Password: "secret123"})
		wantCode(t, err, 40901)
	})

	t.Run("category", func(t *testing.T) {
		f := newFixture(t)
		beforeInsertOnce(t, f.db, "categories",
			"INSERT INTO categories (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)",
			"Phishing", "", now, now)
		_, err := f.categories.Create("Phishing", "")
		wantCode(t, err, 40950)
	})

	t.Run("first vote", func(t *testing.T) {
		f := newFixture(t)
		owner := f.user(t, "owner@example.com", "Owner")
		voter := f.user(t, "voter@example.com", "Voter")
		c := f.category(t, "Shops")
		r := f.report(t, owner.ID, c.ID, "https://fake.example")

		beforeInsertOnce(t, f.db, "report_votes",
			"INSERT INTO report_votes (report_id, user_id, value, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			r.ID, voter.ID, 1, now, now)
		_, err := f.reports.Vote(r.ID, voter.ID, 1)
		wantCode(t, err, 40911)

		var stored models.Report
		if err := f.db.First(&stored, r.ID).Error; err != nil {
			t.Fatal(err)
		}
		if stored.VoteCount != 0 {
			t.Errorf("vote_count = %d after rolled back vote", stored.VoteCount)
		}
	})
}
