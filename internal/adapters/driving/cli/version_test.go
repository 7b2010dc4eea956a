package cli

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVersion(t *testing.T, v string) {
	t.Helper()
	prev := version
	SetVersion(v)
	t.Cleanup(func() { version = prev })
}

func TestVersionCmd(t *testing.T) {
	setupTestServices(t)
	withVersion(t, "1.4.0")

	out, err := runCLI(t, nil, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "docrag 1.4.0 ("+runtime.Version())
	assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestVersionCmd_JSON(t *testing.T) {
	setupTestServices(t)
	withVersion(t, "dev")

	out, err := runCLI(t, nil, "version", "--json")
	require.NoError(t, err)

	var info versionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, runtime.Version(), info.Go)
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	setupTestServices(t)

	_, err := runCLI(t, nil, "version", "extra")

	assert.Error(t, err)
}
