package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func dataSourceName(cfg ConfigurationDatabase) (string, error) {
	switch cfg.Dialect {
	case "mysql", "":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database), nil
	case "postgres":
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s dbname=%s password=%s sslmode=%s", cfg.Host, cfg.Port, cfg.User, cfg.Database, cfg.Password, sslMode), nil
	case "sqlite3":
		return cfg.Database, nil
	}
	return "", fmt.Errorf("unsupported database dialect %q", cfg.Dialect)
}

// OpenDatabase connects with the configured dialect.
// sqlite connections are limited to one so that ":memory:" stays a single database.
func OpenDatabase(cfg ConfigurationDatabase) (*gorm.DB, error) {
	dsn, err := dataSourceName(cfg)
	if err != nil {
		return nil, err
	}
	dialect := cfg.Dialect
	if dialect == "" {
		dialect = "mysql"
	}

	ormDB, err := gorm.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s database: %w", dialect, err)
	}

	switch dialect {
	case "sqlite3":
		ormDB.DB().SetMaxOpenConns(1)
	case "mysql":
		ormDB.Exec("SET time_zone = \"+00:00\"")
	}
	ormDB.LogMode(cfg.Debug)

	return ormDB, nil
}

// IsUniqueViolation reports whether err is a unique or primary key conflict
// of any supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var gormErrs gorm.Errors
	if errors.As(err, &gormErrs) {
		for _, e := range gormErrs {
			if IsUniqueViolation(e) {
				return true
			}
		}
	}
	return false
}

// LikeEscape is the escape clause to use with patterns from ContainsPattern.
// "!" needs no quoting in any supported dialect.
const LikeEscape = " ESCAPE '!'"

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ContainsPattern turns user input into a LIKE pattern matching it literally
// anywhere in the column.
func ContainsPattern(search string) string {
	return "%" + likeReplacer.Replace(search) + "%"
}
