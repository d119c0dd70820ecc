package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadInput(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     []string
	}{
		{
			name:     "single column",
			contents: "u1\nu2\nu3\n",
			want:     []string{"u1", "u2", "u3"},
		},
		{
			name:     "first field of wider records",
			contents: "u1,alice@example.com,2024-01-01\nu2,bob@example.com\n",
			want:     []string{"u1", "u2"},
		},
		{
			name:     "duplicates collapse",
			contents: "u1\nu2\nu1\nu2\nu1\n",
			want:     []string{"u1", "u2"},
		},
		{
			name:     "no trailing newline",
			contents: "u1\nu2",
			want:     []string{"u1", "u2"},
		},
		{
			name:     "blank lines and blank identifiers ignored",
			contents: "u1\n\n ,x\nu2\n",
			want:     []string{"u1", "u2"},
		},
		{
			name:     "quoted identifiers",
			contents: "\"u,1\"\nu2\n",
			want:     []string{"u,1", "u2"},
		},
		{
			name:     "empty file",
			contents: "",
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "input.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.contents), 0o600))

			ids, err := LoadInput(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids.Sorted())
		})
	}
}

func TestLoadInput_MissingSourceIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.csv")

	ids, err := LoadInputWithContext(context.Background(), path)

	require.ErrorIs(t, err, ErrSourceUnavailable)
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), path)
	assert.Nil(t, ids)
}

func TestReadIdentifiers_ReadFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	r := iotest.ErrReader(boom)

	_, _, err := ReadIdentifiers(context.Background(), r)

	require.ErrorIs(t, err, boom)
}

func TestReadIdentifiers_CountsSkipped(t *testing.T) {
	ids, skipped, err := ReadIdentifiers(context.Background(), strings.NewReader("u1\n,\nu2\n"))

	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, []string{"u1", "u2"}, ids.Sorted())
}
