package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVersionGreaterOrEqualThan(t *testing.T) {
	tests := []struct {
		version, target string
		want            bool
	}{
		{"0.2.0", "0.1.9", true},
		{"0.1.0", "0.1.0", true},
		{"0.1.0", "0.10.0", false},
		{"v1.0.0", "0.9.0", true},
		{"garbage", "0.0.1", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsVersionGreaterOrEqualThan(tt.version, tt.target), "%s >= %s", tt.version, tt.target)
	}
}

func TestStringFull(t *testing.T) {
	oldVersion, oldCommit, oldTime := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldVersion, oldCommit, oldTime })

	Version, GitCommit, BuildTime = "1.2.3", "0123456789abcdef", "2025-03-03T14:05:00Z"
	assert.Equal(t, "1.2.3-01234567", String())
	assert.Equal(t, "Version=1.2.3 Commit=01234567 BuildTime=2025-03-03T14:05:00Z", StringFull())

	Version, GitCommit, BuildTime = "nightly", "unknown", "unknown"
	assert.Equal(t, "nightly", String())
	assert.Equal(t, "Version=nightly (non-semver)", StringFull())
}

func TestGetCurrentVersion(t *testing.T) {
	assert.Equal(t, DevVersion, GetCurrentVersion("dev"))
	assert.Equal(t, Version, GetCurrentVersion("prod"))
}
