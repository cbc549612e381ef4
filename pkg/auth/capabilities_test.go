package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicpulse/civicpulse/pkg/appctx"
)

func TestHasCapability(t *testing.T) {
	assert.True(t, HasCapability([]string{RoleSupervisor}, CapabilityAssign))
	assert.True(t, HasCapability([]string{RoleEmployee}, CapabilityResolve))
	assert.True(t, HasCapability([]string{RoleCitizen}, CapabilitySupport))
	assert.False(t, HasCapability([]string{RoleCitizen}, CapabilityAssign))
	assert.False(t, HasCapability([]string{RoleEmployee}, CapabilityReject))
	assert.False(t, HasCapability(nil, CapabilitySupport))

	// multiple roles accumulate
	assert.True(t, HasCapability([]string{RoleCitizen, RoleEmployee}, CapabilityResolve))
}

func TestRequire(t *testing.T) {
	ctx := context.Background()

	err := Require(ctx, CapabilitySupport)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, httperror.GetStatusCode(err))

	ctx = appctx.SetUserID(ctx, "42")
	ctx = appctx.SetRoles(ctx, []string{RoleCitizen})

	require.NoError(t, Require(ctx, CapabilitySupport))

	err = Require(ctx, CapabilityAssign)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
}
