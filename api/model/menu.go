package model

// MenuCreateRequest adds a menu node. A nil IsActive defaults to true.
type MenuCreateRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	URL          string `json:"url" validate:"max=255"`
	Icon         string `json:"icon" validate:"max=50"`
	Order        int    `json:"order"`
	ParentID     *int64 `json:"parentId"`
	IsActive     *bool  `json:"isActive"`
	RequiredRole string `json:"requiredRole" validate:"omitempty,oneof=admin moderator user"`
}
