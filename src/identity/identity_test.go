package identity

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildmail-agent/src/history"
	"buildmail-agent/src/provider"
)

const directoryYAML = `
users:
  - id: alice
    email: alice@corp.test
    groups: [core]
  - id: bob
    groups: [docs]
  - id: carol
    email: carol@corp.test
grants:
  - group: core
    projects: ["core-*"]
  - user: carol
    projects: ["**"]
`

func buildIn(t *testing.T, project string) provider.Build {
	t.Helper()
	g := history.NewGraph()
	b, err := g.AddProject(project).AddBuild(history.BuildSpec{Number: 1})
	require.NoError(t, err)
	return b
}

func TestDirectory(t *testing.T) {
	d, err := LoadDirectory(strings.NewReader(directoryYAML))
	require.NoError(t, err)
	assert.True(t, d.SecurityEnabled())

	assert.Equal(t, "alice@corp.test", d.ConfiguredAddress(provider.User{ID: "alice", Email: "alice@home.test"}))
	assert.Equal(t, "bob@home.test", d.ConfiguredAddress(provider.User{ID: "bob", Email: "bob@home.test"}))
	assert.Equal(t, "", d.ConfiguredAddress(provider.User{ID: "dave"}))

	_, err = d.Impersonate(provider.User{ID: "dave"})
	assert.True(t, errors.Is(err, ErrUnknownUser))

	alice, err := d.Impersonate(provider.User{ID: "alice"})
	require.NoError(t, err)
	bob, err := d.Impersonate(provider.User{ID: "bob"})
	require.NoError(t, err)
	carol, err := d.Impersonate(provider.User{ID: "carol"})
	require.NoError(t, err)

	coreBuild := buildIn(t, "core-api")
	libBuild := buildIn(t, "lib")

	assert.True(t, d.HasReadPermission(alice, coreBuild))
	assert.False(t, d.HasReadPermission(alice, libBuild))
	assert.False(t, d.HasReadPermission(bob, coreBuild))
	assert.True(t, d.HasReadPermission(carol, libBuild))
	assert.False(t, d.HasReadPermission(nil, libBuild))
}

func TestDirectory_AddUser(t *testing.T) {
	d := NewDirectory()
	d.AddUser("erin", "erin@corp.test", "ops")
	d.AddGrant(Grant{Group: "ops", Projects: []string{"deploy"}})

	p, err := d.Impersonate(provider.User{ID: "erin"})
	require.NoError(t, err)
	assert.True(t, d.HasReadPermission(p, buildIn(t, "deploy")))
}

func TestLoadDirectory_Errors(t *testing.T) {
	_, err := LoadDirectory(strings.NewReader("users:\n  - email: x@y.z\n"))
	assert.Error(t, err)

	_, err = LoadDirectory(strings.NewReader("grants:\n  - group: a\n    projects: [\"[\"]\n"))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	var s Store = Open{}
	assert.False(t, s.SecurityEnabled())
	assert.Equal(t, "a@x.test", s.ConfiguredAddress(provider.User{ID: "a", Email: "a@x.test"}))
	p, err := s.Impersonate(provider.User{ID: "a"})
	require.NoError(t, err)
	assert.True(t, s.HasReadPermission(p, nil))
}
