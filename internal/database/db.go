package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Settings describes how to reach MySQL. DSN wins over the discrete fields.
type Settings struct {
	DSN      string
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// FormatDSN builds a driver DSN with parseTime forced on and times in UTC.
func FormatDSN(s Settings) (string, error) {
	var cfg *mysql.Config
	if s.DSN != "" {
		parsed, err := mysql.ParseDSN(s.DSN)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		cfg = parsed
	} else {
		cfg = mysql.NewConfig()
		cfg.User = s.User
		cfg.Passwd = s.Password
		cfg.Net = "tcp"
		cfg.Addr = s.Host + ":" + s.Port
		cfg.DBName = s.Name
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func Open(ctx context.Context, s Settings) (*sql.DB, error) {
	dsn, err := FormatDSN(s)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}
