package entities

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// roleAliases folds every label the backend has been seen to emit onto the
// canonical enumeration. Keys are accent-free, upper-case, underscore-joined.
var roleAliases = map[string]Role{
	"ADMIN":          RoleAdmin,
	"ADMINISTRATOR":  RoleAdmin,
	"ADMINISTRATEUR": RoleAdmin,

	"PROJECT_MANAGER": RoleProjectManager,
	"MANAGER":         RoleProjectManager,
	"PM":              RoleProjectManager,
	"CHEF_DE_PROJET":  RoleProjectManager,

	"EMPLOYEE":    RoleEmployee,
	"EMPLOYE":     RoleEmployee,
	"TEAM_MEMBER": RoleEmployee,
	"MEMBER":      RoleEmployee,
	"MEMBRE":      RoleEmployee,

	"CLIENT":   RoleClient,
	"CUSTOMER": RoleClient,
}

var roleLabels = map[Role]string{
	RoleAdmin:          "Administrateur",
	RoleProjectManager: "Chef de projet",
	RoleEmployee:       "Employé",
	RoleClient:         "Client",
}

var roleRedirects = map[Role]string{
	RoleAdmin:          "/dashboard",
	RoleProjectManager: "/dashboard",
	RoleEmployee:       "/projects",
	RoleClient:         "/client",
}

// NormalizeRole maps a raw role label onto the canonical enumeration.
// Accents, case, surrounding space and '-'/' ' separators are ignored.
// Labels with no mapping return ErrUnknownRole.
func NormalizeRole(label string) (Role, error) {
	key := roleKey(label)
	if role, ok := roleAliases[key]; ok {
		return role, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, label)
}

func roleKey(label string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(label))
	if err != nil {
		folded = strings.TrimSpace(label)
	}
	folded = strings.ToUpper(folded)
	return strings.Join(strings.FieldsFunc(folded, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}

// RoleRedirect returns the landing route for a canonical role.
func RoleRedirect(r Role) (string, bool) {
	path, ok := roleRedirects[r]
	return path, ok
}

// Label returns the display label, or the raw value for unknown roles.
func (r Role) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return string(r)
}
