package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	// implicitly load the postgres and sqlite drivers
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

// DB aliases the ORM package.
type DB = *gorm.DB

// Supported dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// ConnectionString builds the dialect specific connection string from settings.
func ConnectionString(settings *util.Settings) (string, error) {
	switch settings.DBType {
	case DialectPostgres:
		var connectionParams strings.Builder
		for _, kv := range [][2]string{
			{"host", settings.DBHost},
			{"port", settings.DBPort},
			{"dbname", settings.DBName},
			{"user", settings.DBUser},
			{"password", settings.DBPassword},
			{"sslmode", settings.DBSSLMode},
		} {
			if kv[1] == "" {
				continue
			}
			connectionParams.WriteString(fmt.Sprintf("%s=%s ", kv[0], kv[1]))
		}
		return strings.TrimSpace(connectionParams.String()), nil
	case DialectSQLite:
		if settings.SQLiteFile == "" {
			return "", errors.New("sqlite_file is required for sqlite3")
		}
		return fmt.Sprintf("file:%s?_foreign_keys=1", settings.SQLiteFile), nil
	}
	return "", errors.Errorf("unsupported db_type %s", settings.DBType)
}

// GetConnection opens the DB via gorm. The returned handle is safe for concurrent and reuse.
func GetConnection(settings *util.Settings) (DB, error) {
	conn, err := ConnectionString(settings)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(settings.DBType, conn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", settings.DBType)
	}
	if settings.DBType == DialectSQLite {
		// sqlite serializes writers
		db.DB().SetMaxOpenConns(1)
	}
	db.LogMode(settings.Debug)
	return db, nil
}

// CloseConnection closes the db connection. If it's a test DB, it also DELETEs the DB.
func CloseConnection(db DB) error {
	_, ok := db.Get("testDB")
	if ok {
		// Allow auditing to complete in test DBs
		time.Sleep(50 * time.Millisecond)
	}
	return db.Close()
}

// IsUniqueViolation reports whether err comes from a unique constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(errors.Cause(err).Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
