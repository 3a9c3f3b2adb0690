package access_test

import (
	"errors"
	"testing"

	"go-orgstructure/internal/access"
	"go-orgstructure/internal/shared/apperror"

	"github.com/stretchr/testify/assert"
)

func TestActor_Require(t *testing.T) {
	actor := access.NewActor("user-1", access.CapabilityView, access.CapabilityAssign)

	assert.NoError(t, actor.Require(access.CapabilityView))
	assert.NoError(t, actor.Require(access.CapabilityAssign))

	err := actor.Require(access.CapabilityManage)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	appErr, ok := apperror.As(err)
	assert.True(t, ok)
	assert.Equal(t, map[string]string{"required": "org_structure:manage"}, appErr.Details)
	assert.Equal(t, []string{"view", "assign"}, actor.List())
}

func TestActor_ZeroValueHasNoCapabilities(t *testing.T) {
	var actor access.Actor
	assert.False(t, actor.Can(access.CapabilityView))
	assert.Error(t, actor.Require(access.CapabilityView))
}
