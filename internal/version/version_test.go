package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultsWithoutLdflags(t *testing.T) {
	v, c, d := Info()
	assert.Equal(t, "dev", v)
	assert.Equal(t, "unknown", c)
	assert.Equal(t, "unknown", d)
	assert.Equal(t, "version=dev commit=unknown date=unknown", String())
}

func TestGettersFollowLdflagsValues(t *testing.T) {
	prevVersion, prevCommit, prevDate := version, commit, date
	t.Cleanup(func() { version, commit, date = prevVersion, prevCommit, prevDate })

	// так значения подставляет -ldflags "-X .../internal/version.version=..."
	version, commit, date = "v0.4.1", "3f2c9ab", "2026-10-01T08:00:00Z"

	assert.Equal(t, "v0.4.1", GetVersion())
	assert.Equal(t, "3f2c9ab", GetCommit())
	assert.Equal(t, "2026-10-01T08:00:00Z", GetDate())

	v, c, d := Info()
	assert.Equal(t, [3]string{GetVersion(), GetCommit(), GetDate()}, [3]string{v, c, d})
	assert.Equal(t, "version=v0.4.1 commit=3f2c9ab date=2026-10-01T08:00:00Z", String())
}
