package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stamp(t *testing.T, version, commit, date string) {
	t.Helper()
	saved := []string{Version, Commit, BuildDate}
	t.Cleanup(func() { Version, Commit, BuildDate = saved[0], saved[1], saved[2] })
	Version, Commit, BuildDate = version, commit, date
}

func TestReleaseBuild(t *testing.T) {
	stamp(t, "v1.2.0", "abc1234", "2024-05-06")

	assert.Equal(t, "v1.2.0 (abc1234)", String())
	assert.Equal(t, "v1.2.0", Short())
	assert.Equal(t, "v1.2.0 (abc1234) built 2024-05-06 with "+runtime.Version(), Full())

	b := Current()
	assert.Equal(t, "abc1234", b.Commit)
	assert.Equal(t, runtime.Version(), b.GoVersion)
}

func TestDevBuild(t *testing.T) {
	stamp(t, "dev", "", "")

	assert.Equal(t, "dev", String())
	assert.Equal(t, "dev with "+runtime.Version(), Full())
	assert.Empty(t, Current().BuildDate)
}
