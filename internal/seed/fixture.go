// Package seed loads companies, users and approval rules from a YAML
// fixture and creates them through the application services.
package seed

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is the top-level seed document
type Fixture struct {
	Companies []Company `yaml:"companies"`
}

// Company is a company with its first admin, further users and rules.
// Users and rules are referred to by key within the company.
type Company struct {
	Name        string       `yaml:"name"`
	Currency    string       `yaml:"currency"`
	Admin       User         `yaml:"admin"`
	Users       []User       `yaml:"users"`
	Rules       []Rule       `yaml:"rules"`
	Assignments []Assignment `yaml:"assignments"`
}

// User is a fixture user
type User struct {
	Key   string `yaml:"key"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

// Rule is a fixture approval rule. Approvers are user keys.
type Rule struct {
	Key         string     `yaml:"key"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Percentage  *int       `yaml:"percentage"`
	Threshold   float64    `yaml:"threshold"`
	Active      *bool      `yaml:"active"`
	Required    []string   `yaml:"required"`
	Ordinary    []Ordinary `yaml:"ordinary"`
}

// Ordinary is an ordinary approver and its sequence number
type Ordinary struct {
	User     string `yaml:"user"`
	Sequence int    `yaml:"sequence"`
}

// Assignment binds a user to a rule
type Assignment struct {
	User string `yaml:"user"`
	Rule string `yaml:"rule"`
}

// LoadFile reads and validates a fixture from a YAML file.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a fixture. Unknown fields are rejected.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return &f, nil
}

// Validate checks that every key reference resolves within its company.
// Field-level rules are left to the services.
func (f *Fixture) Validate() error {
	if len(f.Companies) == 0 {
		return fmt.Errorf("no companies")
	}
	for i, c := range f.Companies {
		users := map[string]bool{}
		for _, u := range append([]User{c.Admin}, c.Users...) {
			if u.Key == "" {
				return fmt.Errorf("company %d (%s): user %q has no key", i, c.Name, u.Name)
			}
			if users[u.Key] {
				return fmt.Errorf("company %d (%s): duplicate user key %q", i, c.Name, u.Key)
			}
			users[u.Key] = true
		}

		rules := map[string]bool{}
		for _, r := range c.Rules {
			if r.Key == "" {
				return fmt.Errorf("company %d (%s): rule %q has no key", i, c.Name, r.Name)
			}
			if rules[r.Key] {
				return fmt.Errorf("company %d (%s): duplicate rule key %q", i, c.Name, r.Key)
			}
			rules[r.Key] = true
			for _, key := range r.Required {
				if !users[key] {
					return fmt.Errorf("company %d (%s): rule %q: unknown required approver %q", i, c.Name, r.Key, key)
				}
			}
			for _, o := range r.Ordinary {
				if !users[o.User] {
					return fmt.Errorf("company %d (%s): rule %q: unknown ordinary approver %q", i, c.Name, r.Key, o.User)
				}
			}
		}

		for _, a := range c.Assignments {
			if !users[a.User] {
				return fmt.Errorf("company %d (%s): assignment to unknown user %q", i, c.Name, a.User)
			}
			if !rules[a.Rule] {
				return fmt.Errorf("company %d (%s): assignment of unknown rule %q", i, c.Name, a.Rule)
			}
		}
	}
	return nil
}
