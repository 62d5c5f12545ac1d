package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_NewRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{" Moderator ", RoleModerator, false},
		{"USER", RoleUser, false},
		{"superuser", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NewRole(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func Test_RoleValid(t *testing.T) {
	assert := assert.New(t)
	assert.True(RoleAdmin.Valid())
	assert.False(Role("Admin").Valid())
	assert.False(Role("root").Valid())
	assert.False(Role("").Valid())
}

func Test_RoleSet(t *testing.T) {
	assert := assert.New(t)
	set := NewRoleSet(RoleUser, RoleAdmin)
	assert.True(set.Has(RoleAdmin))
	assert.True(set.Has(RoleUser))
	assert.False(set.Has(RoleModerator))
	assert.Equal([]Role{RoleAdmin, RoleUser}, set.Values())
	assert.False(NewRoleSet().Has(RoleAdmin))
}
