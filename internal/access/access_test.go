package access

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autentica/marketplace/internal/domain"
)

var (
	admin    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	operator = common.HexToAddress("0x2222222222222222222222222222222222222222")
	user     = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func TestNewRoleSet_DeployerIsAdmin(t *testing.T) {
	rs := NewRoleSet(admin)
	assert.True(t, rs.Has(RoleAdmin, admin))
	assert.False(t, rs.Has(RoleAdmin, user))
	assert.False(t, rs.Has(RoleOperator, admin))
}

func TestRoleSet_GrantAndRevoke(t *testing.T) {
	rs := NewRoleSet(admin)

	require.NoError(t, rs.Grant(admin, RoleOperator, operator))
	assert.True(t, rs.Has(RoleOperator, operator))

	require.NoError(t, rs.Revoke(admin, RoleOperator, operator))
	assert.False(t, rs.Has(RoleOperator, operator))
}

func TestRoleSet_GrantRequiresAdmin(t *testing.T) {
	rs := NewRoleSet(admin)

	err := rs.Grant(user, RoleOperator, operator)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	err = rs.Revoke(user, RoleAdmin, admin)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRoleSet_Holders(t *testing.T) {
	rs := NewRoleSet(admin)
	require.NoError(t, rs.Grant(admin, RoleOperator, operator))
	require.NoError(t, rs.Grant(admin, RoleOperator, user))

	holders := rs.Holders(RoleOperator)
	assert.Len(t, holders, 2)
	assert.Contains(t, holders, operator)
	assert.Contains(t, holders, user)
}

func TestPausable(t *testing.T) {
	var p Pausable
	assert.False(t, p.Paused())

	p.Pause()
	assert.True(t, p.Paused())

	p.Unpause()
	assert.False(t, p.Paused())
}
