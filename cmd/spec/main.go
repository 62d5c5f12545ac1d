package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"

	apimodel "github.com/corkboard-io/corkboard/api/model"
	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/corkboard-io/corkboard/internal/token"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/ghodss/yaml"
)

var schemas = []struct {
	name  string
	value interface{}
}{
	{"v1.User", &model.User{}},
	{"v1.TokenPair", &token.Pair{}},
	{"v1.RegisterRequest", &apimodel.RegisterRequest{}},
	{"v1.LoginRequest", &apimodel.LoginRequest{}},
	{"v1.RefreshRequest", &apimodel.RefreshRequest{}},
	{"v1.PasswordChangeRequest", &apimodel.PasswordChangeRequest{}},
	{"v1.RoleRequest", &apimodel.RoleRequest{}},
	{"v1.Menu", &model.Menu{}},
	{"v1.MenuCreateRequest", &apimodel.MenuCreateRequest{}},
	{"v1.Theme", &apimodel.Theme{}},
	{"v1.ThemeUpdateRequest", &apimodel.ThemeUpdateRequest{}},
	{"v1.AvailableThemes", &apimodel.AvailableThemes{}},
	{"v1.Category", &model.Category{}},
	{"v1.CategoryCreateRequest", &apimodel.CategoryCreateRequest{}},
	{"v1.Post", &apimodel.Post{}},
	{"v1.PostList", &apimodel.PostList{}},
	{"v1.PostCreateRequest", &apimodel.PostCreateRequest{}},
	{"v1.PostUpdateRequest", &apimodel.PostUpdateRequest{}},
	{"v1.Comment", &model.Comment{}},
	{"v1.CommentCreateRequest", &apimodel.CommentCreateRequest{}},
	{"v1.DashboardStats", &apimodel.DashboardStats{}},
	{"v1.AdminDashboardStats", &apimodel.AdminDashboardStats{}},
	{"v1.RecentUser", &apimodel.RecentUser{}},
	{"v1.Log", &model.AuditEntry{}},
}

// Used to generate openapi yaml file for components.
func main() {
	components := openapi3.NewComponents()
	components.Schemas = make(map[string]*openapi3.SchemaRef)

	for _, s := range schemas {
		ref, _, err := openapi3gen.NewSchemaRefForValue(s.value)
		if err != nil {
			panic(fmt.Sprintf("%s: %v", s.name, err))
		}
		components.Schemas[s.name] = ref
	}

	b := &bytes.Buffer{}
	err := json.NewEncoder(b).Encode(components.Schemas)
	if err != nil {
		panic(err)
	}

	y, err := yaml.JSONToYAML(b.Bytes())
	if err != nil {
		panic(err)
	}

	err = ioutil.WriteFile("cmd/spec/schemas.yaml", y, 0644)
	if err != nil {
		panic(err)
	}
	fmt.Println("wrote schemas.yaml")
}
