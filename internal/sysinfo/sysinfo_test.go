package sysinfo

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	info := Collect()
	require.Equal(t, runtime.GOOS, info.OS)
	require.Equal(t, runtime.GOARCH, info.Arch)
	require.NotEmpty(t, info.CurrentDir)
	require.NotEmpty(t, info.MainSeparator)
	require.NotEmpty(t, info.Shell)
}
