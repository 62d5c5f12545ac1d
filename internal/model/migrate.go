package model

import (
	"strings"

	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

// Migrate creates or updates the tables, indexes and, on postgres, the foreign keys.
func Migrate(dbConn *gorm.DB) error {

	if dbConn == nil {
		return errors.New("db cannot be nil")
	}

	err := dbConn.AutoMigrate(
		&User{},
		&UserTheme{},
		&Menu{},
		&Category{},
		&Post{},
		&Comment{},
		&AuditEntry{},
	).Error
	if err != nil {
		return err
	}

	err = dbConn.Model(&Menu{}).AddIndex("idx_menus_parent_order", "parent_id", "sort_order").Error
	if err != nil {
		return err
	}
	err = dbConn.Model(&Post{}).AddIndex("idx_posts_listing", "published", "pinned", "created_at").Error
	if err != nil {
		return err
	}

	// sqlite cannot add constraints to existing tables
	if dbConn.Dialect().GetName() != db.DialectPostgres {
		return nil
	}
	foreignKeys := []struct {
		model    interface{}
		field    string
		dest     string
		onDelete string
	}{
		{&UserTheme{}, "user_id", "users(id)", "CASCADE"},
		{&Menu{}, "parent_id", "menus(id)", "CASCADE"},
		{&Post{}, "author_id", "users(id)", "CASCADE"},
		{&Post{}, "category_id", "categories(id)", "SET NULL"},
		{&Comment{}, "post_id", "posts(id)", "CASCADE"},
		{&Comment{}, "author_id", "users(id)", "CASCADE"},
		{&Comment{}, "parent_id", "comments(id)", "SET NULL"},
	}
	for _, fk := range foreignKeys {
		err = dbConn.Model(fk.model).AddForeignKey(fk.field, fk.dest, fk.onDelete, "CASCADE").Error
		if err != nil && !isDuplicateConstraint(err) {
			return errors.Wrapf(err, "adding foreign key %s", fk.field)
		}
	}
	return nil
}

func isDuplicateConstraint(err error) bool {
	return strings.Contains(err.Error(), "already exists")
}
