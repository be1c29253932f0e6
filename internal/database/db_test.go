package database

import (
	"strings"
	"testing"
)

func TestFormatDSN(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		contains []string
	}{
		{
			name:     "discrete fields",
			settings: Settings{User: "chat", Password: "secret", Host: "db", Port: "3306", Name: "chatgenius"},
			contains: []string{"chat:secret@tcp(db:3306)/chatgenius", "parseTime=true"},
		},
		{
			name:     "explicit dsn gains parseTime",
			settings: Settings{DSN: "root:pw@tcp(localhost:3306)/chat"},
			contains: []string{"root:pw@tcp(localhost:3306)/chat", "parseTime=true"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dsn, err := FormatDSN(tc.settings)
			if err != nil {
				t.Fatalf("format dsn: %v", err)
			}
			for _, want := range tc.contains {
				if !strings.Contains(dsn, want) {
					t.Errorf("dsn %q does not contain %q", dsn, want)
				}
			}
		})
	}
}

func TestFormatDSNRejectsGarbage(t *testing.T) {
	if _, err := FormatDSN(Settings{DSN: "not a dsn"}); err == nil {
		t.Fatal("expected parse error")
	}
}
