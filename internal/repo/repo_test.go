package repo

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"
)

var dbNameReplacer = strings.NewReplacer("/", "_", " ", "_", "#", "_")

// newTestDB открывает отдельную in-memory SQLite базу на каждый тест и
// прогоняет все миграции через InitDB.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbNameReplacer.Replace(t.Name()))
	db, err := InitDB(dsn)
	if err != nil {
		t.Fatalf("failed to init sqlite (modernc): %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrBool(b bool) *bool { return &b }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
