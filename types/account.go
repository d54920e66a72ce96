package types

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// AccountState reports whether an account may authenticate.
type AccountState string

const (
	AccountEnabled  AccountState = "enabled"
	AccountDisabled AccountState = "disabled"
)

// Valid reports whether s is a known state.
func (s AccountState) Valid() bool {
	return s == AccountEnabled || s == AccountDisabled
}

// RoleAdmin is the role assigned to the bootstrap account.
const RoleAdmin = "admin"

// Account represents a profile record stored as one document per identity.
// It contains identity, credential, role, and audit metadata.
type Account struct {
	// ID is the account identifier (an email address). It is the storage key
	// and is derived from the record location, so it is never serialized
	// into the document itself.
	ID string `yaml:"-" json:"id"`

	// Name is the user's display name.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// HashedPassword stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	HashedPassword string `yaml:"hashed_password" json:"-"`

	// HashedPasswordReset stores the bcrypt hash of a pending reset value.
	// Empty when no reset is pending.
	HashedPasswordReset string `yaml:"hashed_password_reset,omitempty" json:"-"`

	// Roles lists the authorization roles of the account (e.g. "admin").
	Roles Roles `yaml:"roles" json:"roles"`

	// State is either enabled or disabled.
	State AccountState `yaml:"state" json:"state"`

	// UUID is the immutable identity anchor, independent of ID.
	UUID string `yaml:"uuid" json:"uuid"`

	// RegisteredAt is the creation time, formatted with the site date format.
	RegisteredAt string `yaml:"registered_at" json:"registered_at"`

	// Fields holds any additional profile fields, passed through untouched.
	Fields map[string]any `yaml:",inline" json:"fields,omitempty"`
}

// ResetPending reports whether a password reset is outstanding.
func (a Account) ResetPending() bool {
	return a.HashedPasswordReset != ""
}

// DisplayName returns the name when set and the id otherwise.
func (a Account) DisplayName() string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	return a.ID
}

// Public returns a copy with secret fields cleared.
func (a Account) Public() Account {
	a.HashedPassword = ""
	a.HashedPasswordReset = ""
	if a.Fields != nil {
		fields := make(map[string]any, len(a.Fields))
		for k, v := range a.Fields {
			fields[k] = v
		}
		a.Fields = fields
	}
	return a
}

// AccountPatch is a partial update. Nil fields are left unchanged; Fields
// is merged shallowly over the existing extra fields.
type AccountPatch struct {
	Name        *string        `json:"name,omitempty" validate:"omitempty,max=255"`
	Roles       *Roles         `json:"roles,omitempty"`
	State       *AccountState  `json:"state,omitempty" validate:"omitempty,oneof=enabled disabled"`
	NewPassword *string        `json:"new_password,omitempty" validate:"omitempty,min=1,max=72"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// Empty reports whether the patch carries no changes.
func (p AccountPatch) Empty() bool {
	return p.Name == nil && p.Roles == nil && p.State == nil &&
		(p.NewPassword == nil || *p.NewPassword == "") && len(p.Fields) == 0
}

// Roles is a set of role names. In documents it is written as a single
// comma-separated scalar ("admin" or "admin, editor") and it also accepts a
// YAML sequence.
type Roles []string

// ParseRoles splits a comma-separated role list.
func ParseRoles(s string) Roles {
	var roles Roles
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			roles = append(roles, part)
		}
	}
	return roles
}

// Has reports whether role is present.
func (r Roles) Has(role string) bool {
	for _, candidate := range r {
		if candidate == role {
			return true
		}
	}
	return false
}

// String joins the roles with ", ".
func (r Roles) String() string {
	return strings.Join(r, ", ")
}

// MarshalYAML writes the roles as a scalar.
func (r Roles) MarshalYAML() (any, error) {
	return r.String(), nil
}

// UnmarshalYAML accepts a scalar or a sequence.
func (r *Roles) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*r = ParseRoles(strings.Join(items, ","))
		return nil
	default:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*r = ParseRoles(s)
		return nil
	}
}

// UnmarshalJSON accepts "admin, editor" as well as ["admin", "editor"].
func (r *Roles) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = ParseRoles(s)
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*r = ParseRoles(strings.Join(items, ","))
	return nil
}
