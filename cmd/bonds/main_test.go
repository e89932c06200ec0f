package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const argonTOML = `
name = "argon"
species = ["Ar", "Ar"]
frac = [[0.1, 0.1, 0.1], [0.6, 0.6, 0.6]]

[box]
vectors = [[8, 0, 0], [0, 8, 0], [0, 0, 8]]
`

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestInferStrictExitCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "argon.toml")
	require.NoError(t, os.WriteFile(path, []byte(argonTOML), 0o644))

	require.NoError(t, execute(t, "infer", "--crystal", path), "violations alone do not fail")

	err := execute(t, "infer", "--crystal", path, "--strict")
	var ee *exitError
	require.True(t, errors.As(err, &ee), "got %v", err)
	assert.Equal(t, 2, ee.code)
}

func TestInferMissingCrystal(t *testing.T) {
	err := execute(t, "infer", "--crystal", filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	var ee *exitError
	assert.False(t, errors.As(err, &ee))
}

func TestActiveRules(t *testing.T) {
	require.NoError(t, execute(t, "rules", "--rules", "", "--sigma", "3", "--min-tol", "0.25"))
	rs, err := activeRules()
	require.NoError(t, err)
	require.NotEmpty(t, rs)

	path := filepath.Join(t.TempDir(), "rules.csv")
	require.NoError(t, os.WriteFile(path, []byte("C,H,0.8,1.3\n"), 0o644))
	require.NoError(t, execute(t, "rules", "--rules", path))
	rs, err = activeRules()
	require.NoError(t, err)
	assert.Len(t, rs, 1)
}
