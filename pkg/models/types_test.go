package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity_AuthType(t *testing.T) {
	assert.Equal(t, "key", Identity{KeyPath: "~/.ssh/id_rsa", Password: "x"}.AuthType())
	assert.Equal(t, "password", Identity{Password: "x"}.AuthType())
	assert.Equal(t, "password", Identity{}.AuthType())
}

func TestNode_ApplyDefaults(t *testing.T) {
	n := Node{
		Endpoint: Endpoint{Host: Host{Address: "10.0.0.1"}},
		Jump:     &Endpoint{Host: Host{Address: "10.0.0.254", Port: 2222}},
		MySQL:    &MySQL{Host: "db"},
	}
	n.ApplyDefaults()

	assert.Equal(t, "server", n.Name)
	assert.Equal(t, DefaultPort, n.Port)
	assert.Equal(t, DefaultUser, n.User)
	assert.Equal(t, DefaultOwner, n.Owner)
	assert.Equal(t, DefaultTempDir, n.TempDir)
	assert.Equal(t, DefaultDeployDir, n.DeployDir)
	assert.Equal(t, 2222, n.Jump.Port)
	assert.Equal(t, DefaultUser, n.Jump.User)
	assert.Equal(t, DefaultMySQLPort, n.MySQL.Port)

	custom := Node{Name: "web", Owner: "nginx:nginx", DeployDir: "/srv/www", Endpoint: Endpoint{Host: Host{Port: 22022}}}
	custom.ApplyDefaults()
	assert.Equal(t, "web", custom.Name)
	assert.Equal(t, "nginx:nginx", custom.Owner)
	assert.Equal(t, "/srv/www", custom.DeployDir)
	assert.Equal(t, 22022, custom.Port)
}

func TestNode_SudoPassword(t *testing.T) {
	n := Node{Endpoint: Endpoint{Identity: Identity{Password: "login"}}}
	assert.Equal(t, "login", n.SudoPassword())

	n.SudoPwd = "root"
	assert.Equal(t, "root", n.SudoPassword())
}
