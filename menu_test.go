package adminkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func menuDescriptors() Descriptors {
	emp := employeeDescriptor()
	emp.Title, emp.Icon = "Employees", "users"
	skill := skillDescriptor()
	skill.Icon = "star"
	level := jobLevelDescriptor()
	level.Icon = "users"
	return Descriptors{emp.Key: emp, skill.Key: skill, level.Key: level}
}

// TestRequiredIcons tests collecting icon keys
func TestRequiredIcons(t *testing.T) {
	assert.Equal(t, []string{"star", "users"}, menuDescriptors().RequiredIcons())
	assert.Empty(t, Descriptors{}.RequiredIcons())
}

// TestBuildMenu tests menu entries per scope
func TestBuildMenu(t *testing.T) {
	icons, err := NewCapabilityRegistry(
		Capability{Key: "users", Label: "Users"},
		Capability{Key: "star", Label: "Star"},
	)
	require.NoError(t, err)
	descs := menuDescriptors()
	require.NoError(t, icons.Validate(descs.RequiredIcons()...))
	resolver := hrResolver()

	entries, err := BuildMenu(resolver.For("hr_manager"), descs, icons)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "employee", entries[0].Key)
	assert.Equal(t, "Employees", entries[0].Title)
	assert.Equal(t, "users", entries[0].Icon.Key)
	assert.Equal(t, "jobLevel", entries[1].Key)
	assert.Equal(t, "jobLevel", entries[1].Title, "title defaults to the key")
	assert.Equal(t, "skill", entries[2].Key)

	entries, err = BuildMenu(resolver.For("employee"), descs, icons)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "employee", entries[0].Key)

	entries, err = BuildMenu(nil, descs, icons)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestBuildMenuMissingIcon tests that unregistered icons are startup errors
func TestBuildMenuMissingIcon(t *testing.T) {
	icons, err := NewCapabilityRegistry(Capability{Key: "users"})
	require.NoError(t, err)
	descs := menuDescriptors()

	assert.ErrorIs(t, icons.Validate(descs.RequiredIcons()...), ErrInvalidCapability)

	_, err = BuildMenu(hrResolver().For("hr_manager"), descs, icons)
	assert.ErrorIs(t, err, ErrInvalidCapability)

	_, err = BuildMenu(hrResolver().For("hr_manager"), descs, nil)
	assert.ErrorIs(t, err, ErrInvalidCapability)
}
