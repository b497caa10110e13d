// Package access provides the role registry and pause flag consulted by the
// marketplace and collection policy checks. It mirrors the standard
// access-control/pausable collaborators at their policy boundary: storage
// here, decisions in the callers.
package access

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/autentica/marketplace/internal/domain"
)

// Role identifies a named permission group.
type Role string

const (
	// RoleAdmin holders manage roles, the allow-list, the treasury address,
	// and the pause flag.
	RoleAdmin Role = "DEFAULT_ADMIN_ROLE"
	// RoleOperator holders co-sign trade and mint intents.
	RoleOperator Role = "OPERATOR_ROLE"
)

// RoleSet stores role grants. The deploying account receives RoleAdmin.
// Execution is strictly serialized by the owning service, so there is no
// locking here.
type RoleSet struct {
	grants map[Role]map[common.Address]bool
}

// NewRoleSet creates a RoleSet with deployer as the initial admin.
func NewRoleSet(deployer common.Address) *RoleSet {
	rs := &RoleSet{grants: make(map[Role]map[common.Address]bool)}
	rs.grant(RoleAdmin, deployer)
	return rs
}

func (rs *RoleSet) grant(role Role, addr common.Address) {
	if rs.grants[role] == nil {
		rs.grants[role] = make(map[common.Address]bool)
	}
	rs.grants[role][addr] = true
}

// Has reports whether addr holds role.
func (rs *RoleSet) Has(role Role, addr common.Address) bool {
	return rs.grants[role][addr]
}

// Grant gives addr the role. Only admins may grant.
func (rs *RoleSet) Grant(caller common.Address, role Role, addr common.Address) error {
	if !rs.Has(RoleAdmin, caller) {
		return domain.ErrUnauthorized
	}
	rs.grant(role, addr)
	return nil
}

// Revoke removes the role from addr. Only admins may revoke.
func (rs *RoleSet) Revoke(caller common.Address, role Role, addr common.Address) error {
	if !rs.Has(RoleAdmin, caller) {
		return domain.ErrUnauthorized
	}
	delete(rs.grants[role], addr)
	return nil
}

// Holders returns every address holding role, in unspecified order.
func (rs *RoleSet) Holders(role Role) []common.Address {
	out := make([]common.Address, 0, len(rs.grants[role]))
	for addr := range rs.grants[role] {
		out = append(out, addr)
	}
	return out
}

// Pausable is the binary circuit breaker read by every mutating settlement
// entry point.
type Pausable struct {
	paused bool
}

// Paused reports the current state.
func (p *Pausable) Paused() bool { return p.paused }

// Pause engages the breaker.
func (p *Pausable) Pause() { p.paused = true }

// Unpause releases the breaker.
func (p *Pausable) Unpause() { p.paused = false }
