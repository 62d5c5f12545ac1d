package model

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/google/go-cmp/cmp"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

// Menu is a node of the navigation tree. A nil ParentID marks a root.
// An empty RequiredRole means the node is visible to everyone.
type Menu struct {
	ID           int64     `json:"id" gorm:"primary_key"`
	Name         string    `json:"name" gorm:"type:varchar(100);not null"`
	URL          string    `json:"url" gorm:"type:varchar(255)"`
	Icon         string    `json:"icon" gorm:"type:varchar(50)"`
	SortOrder    int       `json:"order" gorm:"column:sort_order;not null"`
	ParentID     *int64    `json:"parentId" gorm:"index"`
	Active       bool      `json:"isActive" gorm:"not null"`
	RequiredRole Role      `json:"requiredRole,omitempty" gorm:"type:varchar(20)"`
	CreatedAt    time.Time `json:"createdAt"`
}

var _menuAllowedFields = map[string]bool{
	"name":         true,
	"url":          true,
	"icon":         true,
	"order":        true,
	"parentId":     true,
	"isActive":     true,
	"requiredRole": true,
}

// AllowedUpdateFields returns the fields that are mutable.
func (m *Menu) AllowedUpdateFields() map[string]bool {
	return _menuAllowedFields
}

// ApplyChanges updates the object with values found in the map and returns the "delta"
// of the changes. A parentId of 0 or "" moves the node to the top level and an empty
// requiredRole clears the requirement.
func (m *Menu) ApplyChanges(values map[string]string) (string, error) {
	orig := new(Menu)
	*orig = *m
	allowed := m.AllowedUpdateFields()
	for k, v := range values {
		if _, ok := allowed[k]; !ok {
			return "", errors.Errorf("update field not allowed %s", k)
		}
		switch k {
		case "name":
			if strings.TrimSpace(v) == "" {
				return "", errors.New("name cannot be empty")
			}
			m.Name = v
		case "url":
			m.URL = v
		case "icon":
			m.Icon = v
		case "order":
			order, err := strconv.Atoi(v)
			if err != nil {
				return "", errors.Wrap(err, "converting order to integer")
			}
			m.SortOrder = order
		case "parentId":
			if v == "" || v == "0" {
				m.ParentID = nil
				continue
			}
			parentID, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return "", errors.Wrap(err, "converting parentId to integer")
			}
			if parentID == m.ID {
				return "", errors.New("menu cannot be its own parent")
			}
			m.ParentID = &parentID
		case "isActive":
			active, err := strconv.ParseBool(v)
			if err != nil {
				return "", errors.Wrap(err, "converting isActive to boolean")
			}
			m.Active = active
		case "requiredRole":
			if v == "" {
				m.RequiredRole = ""
				continue
			}
			role, err := NewRole(v)
			if err != nil {
				return "", err
			}
			m.RequiredRole = role
		}
	}
	return cmp.Diff(orig, m), nil
}

// MenuByID returns a `Menu` by id.
func MenuByID(ctx context.Context, db db.DB, id int64) (*Menu, error) {
	m := new(Menu)
	err := db.Where("id = ?", id).First(m).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrRecordNotFound
	}
	return m, err
}

// Menus returns every menu node, active or not.
func Menus(ctx context.Context, db db.DB) ([]Menu, error) {
	nodes := make([]Menu, 0)
	err := db.Order("sort_order, id").Find(&nodes).Error
	return nodes, err
}

// MenuCount returns the number of stored menu nodes.
func MenuCount(ctx context.Context, db db.DB) (int64, error) {
	var count int64
	err := db.Model(&Menu{}).Count(&count).Error
	return count, err
}

// DeleteMenu removes a node and all of its descendants.
func DeleteMenu(ctx context.Context, dbConn db.DB, id int64) error {
	nodes, err := Menus(ctx, dbConn)
	if err != nil {
		return err
	}
	children := make(map[int64][]int64)
	found := false
	for _, n := range nodes {
		if n.ID == id {
			found = true
		}
		if n.ParentID != nil {
			children[*n.ParentID] = append(children[*n.ParentID], n.ID)
		}
	}
	if !found {
		return ErrRecordNotFound
	}
	doomed := []int64{id}
	seen := map[int64]bool{id: true}
	for i := 0; i < len(doomed); i++ {
		for _, c := range children[doomed[i]] {
			if !seen[c] {
				seen[c] = true
				doomed = append(doomed, c)
			}
		}
	}
	return dbConn.Where("id IN (?)", doomed).Delete(&Menu{}).Error
}
