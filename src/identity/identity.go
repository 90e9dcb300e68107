// Package identity provides the identity store consulted when notifying
// individual culprits: configured addresses, impersonation and read access.
package identity

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"buildmail-agent/src/provider"
)

// ErrUnknownUser is returned by Impersonate when the authorization backend
// does not know the identity.
var ErrUnknownUser = errors.New("unknown user")

// Principal is an authenticated identity that permissions can be checked against.
type Principal struct {
	ID     string
	Groups []string
}

// Store resolves culprits to addresses and answers authorization questions.
type Store interface {
	// ConfiguredAddress returns the user's address, or "" when none is known.
	ConfiguredAddress(u provider.User) string
	// SecurityEnabled reports whether Impersonate and HasReadPermission apply.
	SecurityEnabled() bool
	Impersonate(u provider.User) (*Principal, error)
	HasReadPermission(p *Principal, b provider.Build) bool
}

// Open is a Store with security disabled. Addresses come from the user
// record itself.
type Open struct{}

func (Open) ConfiguredAddress(u provider.User) string { return u.Email }
func (Open) SecurityEnabled() bool                    { return false }

func (Open) Impersonate(u provider.User) (*Principal, error) {
	return &Principal{ID: u.ID}, nil
}

func (Open) HasReadPermission(*Principal, provider.Build) bool { return true }

// Directory is a static, YAML-backed identity store.
//
//	users:
//	  - id: alice
//	    email: alice@example.com
//	    groups: [core]
//	grants:
//	  - group: core
//	    projects: ["core-*", "lib"]
type Directory struct {
	mu     sync.RWMutex
	users  map[string]directoryUser
	grants []Grant
}

type directoryUser struct {
	ID     string   `yaml:"id"`
	Email  string   `yaml:"email"`
	Groups []string `yaml:"groups"`
}

// Grant gives a group (or a single user) read access to projects matching
// the given glob patterns.
type Grant struct {
	Group    string   `yaml:"group"`
	User     string   `yaml:"user"`
	Projects []string `yaml:"projects"`
}

type directoryFile struct {
	Users  []directoryUser `yaml:"users"`
	Grants []Grant         `yaml:"grants"`
}

// LoadDirectoryFile reads a Directory from a YAML file.
func LoadDirectoryFile(p string) (*Directory, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open identity directory: %w", err)
	}
	defer f.Close()
	return LoadDirectory(f)
}

// LoadDirectory decodes a Directory from YAML.
func LoadDirectory(r io.Reader) (*Directory, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file directoryFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode identity directory: %w", err)
	}

	d := NewDirectory()
	for _, u := range file.Users {
		if u.ID == "" {
			return nil, fmt.Errorf("identity directory: user without id")
		}
		d.users[u.ID] = u
	}
	for _, g := range file.Grants {
		for _, pattern := range g.Projects {
			if !doublestar.ValidatePattern(pattern) {
				return nil, fmt.Errorf("identity directory: bad project pattern %q", pattern)
			}
		}
	}
	d.grants = file.Grants
	return d, nil
}

func NewDirectory() *Directory {
	return &Directory{users: make(map[string]directoryUser)}
}

// AddUser registers or replaces a user.
func (d *Directory) AddUser(id, email string, groups ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[id] = directoryUser{ID: id, Email: email, Groups: groups}
}

// AddGrant appends a read grant.
func (d *Directory) AddGrant(g Grant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grants = append(d.grants, g)
}

// ConfiguredAddress prefers the directory entry and falls back to the
// address attached to the change author.
func (d *Directory) ConfiguredAddress(u provider.User) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if du, ok := d.users[u.ID]; ok && du.Email != "" {
		return du.Email
	}
	return u.Email
}

func (d *Directory) SecurityEnabled() bool { return true }

func (d *Directory) Impersonate(u provider.User) (*Principal, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	du, ok := d.users[u.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, u.ID)
	}
	return &Principal{ID: du.ID, Groups: append([]string(nil), du.Groups...)}, nil
}

func (d *Directory) HasReadPermission(p *Principal, b provider.Build) bool {
	if p == nil || b == nil {
		return false
	}
	project := b.Project().Name()

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, g := range d.grants {
		if !grantApplies(g, p) {
			continue
		}
		for _, pattern := range g.Projects {
			if doublestar.MatchUnvalidated(pattern, project) {
				return true
			}
		}
	}
	return false
}

func grantApplies(g Grant, p *Principal) bool {
	if g.User != "" && g.User == p.ID {
		return true
	}
	if g.Group == "" {
		return false
	}
	for _, group := range p.Groups {
		if group == g.Group {
			return true
		}
	}
	return false
}
