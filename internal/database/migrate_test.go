package database

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"single without terminator", "CREATE TABLE a (id INT)", 1},
		{"two with blank tail", "CREATE TABLE a (id INT);\n\nCREATE TABLE b (id INT);\n  ", 2},
		{"only separators", ";;\n;", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitStatements(tc.in)
			if len(got) != tc.want {
				t.Fatalf("got %d statements, want %d: %q", len(got), tc.want, got)
			}
			for _, stmt := range got {
				if strings.TrimSpace(stmt) != stmt {
					t.Fatalf("statement not trimmed: %q", stmt)
				}
			}
		})
	}
}

func TestEmbeddedMigrationCreatesCoreTables(t *testing.T) {
	contents, err := migrationFiles.ReadFile("migrations/0001_init.up.sql")
	if err != nil {
		t.Fatalf("read embedded migration: %v", err)
	}
	sql := string(contents)
	for _, table := range []string{"users", "channels", "channel_members", "messages", "reactions", "files"} {
		if !strings.Contains(sql, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Errorf("migration does not create %s", table)
		}
	}
	if !strings.Contains(sql, "uq_channels_direct") {
		t.Error("migration is missing the direct channel unique key")
	}
}

func TestApplyMigrationsSkipsRecordedVersions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	files := fstest.MapFS{
		"migrations/0001_init.up.sql": {Data: []byte("CREATE TABLE a (id INT);")},
		"migrations/0002_more.up.sql": {Data: []byte("CREATE TABLE b (id INT);\nCREATE TABLE c (id INT);")},
	}

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("0001_init.up.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("0002_more.up.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE c (id INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations")).
		WithArgs("0002_more.up.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := applyMigrations(context.Background(), db, files); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
