package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var sqlFS embed.FS

// New 基于内嵌 SQL 创建迁移实例，db 需开启 multiStatements
func New(db *sql.DB) (*migrate.Migrate, error) {
	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return nil, fmt.Errorf("migrations: create mysql driver: %w", err)
	}

	source, err := iofs.New(sqlFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("migrations: open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
	if err != nil {
		return nil, fmt.Errorf("migrations: init migrate instance: %w", err)
	}
	return m, nil
}

// Up 执行所有未应用的迁移，已是最新时不做任何事
func Up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("migrations: database is up to date")
			return nil
		}
		return fmt.Errorf("migrations: apply: %w", err)
	}
	logVersion(m)
	return nil
}

// Down 回滚最近一次迁移
func Down(m *migrate.Migrate) error {
	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("migrations: rollback: %w", err)
	}
	logVersion(m)
	return nil
}

func logVersion(m *migrate.Migrate) {
	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Println("migrations: no migration applied")
	case err != nil:
		log.Printf("migrations: unable to read version: %v", err)
	default:
		log.Printf("migrations: schema version %d (dirty=%v)", v, dirty)
	}
}
