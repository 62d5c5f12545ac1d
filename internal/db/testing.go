package db

import (
	"fmt"

	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/jinzhu/gorm"
)

// GetTestDB creates a private in-memory sqlite database. It disappears when the
// handle is closed.
func GetTestDB() (*gorm.DB, error) {
	dbName := util.RandomAlphaString(16)

	db, err := gorm.Open(DialectSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", dbName))
	if err != nil {
		return nil, err
	}
	// a single connection keeps every statement on the same in-memory database
	db.DB().SetMaxOpenConns(1)

	db = db.Set("databaseName", dbName).Set("testDB", true)

	return db, err
}
