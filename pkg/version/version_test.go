package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersion(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		want        string
		wantRelease bool
	}{
		{name: "release tag", raw: "1.4.2", want: "1.4.2", wantRelease: true},
		{name: "v prefix", raw: "v2.0.0", want: "2.0.0", wantRelease: true},
		{name: "prerelease", raw: "1.0.0-rc.1", want: "1.0.0-rc.1", wantRelease: false},
		{name: "garbage falls back", raw: "not-a-version", want: devVersion, wantRelease: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := version
			t.Cleanup(func() { version = orig })
			version = tt.raw

			assert.Equal(t, tt.want, GetVersion())
			assert.Equal(t, tt.wantRelease, IsRelease())
			assert.Equal(t, "scorelookup/"+tt.want, UserAgent())
		})
	}
}
