package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgsInterleavesCodeAndFiles(t *testing.T) {
	cfg, err := parseArgs([]string{"-e", "1 2 +", "one.fs", "-e", ". CR", "two.fs"})
	require.NoError(t, err)
	require.Equal(t, []cliInput{
		{code: true, value: "1 2 +"},
		{code: false, value: "one.fs"},
		{code: true, value: ". CR"},
		{code: false, value: "two.fs"},
	}, cfg.inputs)
}

func TestParseArgsFlags(t *testing.T) {
	cfg, err := parseArgs([]string{"-mem-limit", "1024", "-timeout", "5s", "-trace", "-raw", "-boot", "alt.fs"})
	require.NoError(t, err)
	require.Equal(t, uint(1024), cfg.memLimit)
	require.True(t, cfg.trace)
	require.True(t, cfg.raw)
	require.Equal(t, "alt.fs", cfg.bootPath)
}

func TestParseArgsUnknownFlag(t *testing.T) {
	_, err := parseArgs([]string{"-bogus"})
	require.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	require.Equal(t, "/home/tester", expandHome("~"))
	require.Equal(t, "/home/tester/lib/core.fs", expandHome("~/lib/core.fs"))
	require.Equal(t, "lib/core.fs", expandHome("lib/core.fs"))
}
