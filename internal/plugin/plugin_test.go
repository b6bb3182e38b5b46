package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecore/kernel/internal/kernelerr"
)

func TestManifestValidateRejectsMissingFields(t *testing.T) {
	m := &Manifest{}
	err := m.Validate()
	require.Error(t, err)
	assert.True(t, kernelerr.Is(err, kernelerr.InvalidInput))

	m = &Manifest{ClassPath: "pkg.Factory"}
	require.Error(t, m.Validate())

	m = &Manifest{ClassPath: "pkg.Factory", Name: "devices"}
	require.NoError(t, m.Validate())
}

func TestManifestNormalizeDedupsDependencies(t *testing.T) {
	m := &Manifest{Dependencies: []string{"a", "b", "a", "", "b"}}
	m.Normalize()
	assert.Equal(t, []string{"a", "b"}, m.Dependencies)
}

func TestManifestDependsOn(t *testing.T) {
	m := &Manifest{Dependencies: []string{"a", "b"}}
	assert.True(t, m.DependsOn("a"))
	assert.False(t, m.DependsOn("c"))
}
