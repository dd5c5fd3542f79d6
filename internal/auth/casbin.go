package auth

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var casbinModelContent string

// InitEnforcer creates a Casbin enforcer with the embedded model and seeds it
// with one policy per (role, permission) pair of the static role table.
// Policies are held in memory only; the table is the source of truth.
func InitEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	rules := PolicyRules()
	if len(rules) > 0 {
		if _, err := enforcer.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("seed casbin policies: %w", err)
		}
	}

	return enforcer, nil
}

// PolicyRules renders the role table as Casbin "p" rules: [role:<name>, <permission>].
func PolicyRules() [][]string {
	var rules [][]string
	for _, r := range allRoles {
		for _, p := range PermissionsFor(r) {
			rules = append(rules, []string{RoleID(r), string(p)})
		}
	}
	return rules
}
