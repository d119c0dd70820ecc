package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/scorelookup/internal/engine"
)

func newTestStore(t *testing.T, contents *string) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "output.csv")
	if contents != nil {
		require.NoError(t, os.WriteFile(path, []byte(*contents), 0o600))
	}
	s, err := NewFileStore(path)
	require.NoError(t, err)
	return s
}

func ptr(s string) *string { return &s }

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNewFileStore_EmptyPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestLoadProgress(t *testing.T) {
	tests := []struct {
		name         string
		contents     *string
		want         []string
		wantUnscored []string
		wantSkipped  int
	}{
		{
			name: "missing output is first run",
			want: []string{},
		},
		{
			name:     "empty output",
			contents: ptr(""),
			want:     []string{},
		},
		{
			name:     "well formed records",
			contents: ptr("u1,42\nu2,-1\nu3,0.93\n"),
			want:     []string{"u1", "u2", "u3"},
		},
		{
			name:        "torn trailing record is skipped",
			contents:    ptr("u1,42\nu2,-1\nu3,0.9"),
			want:        []string{"u1", "u2"},
			wantSkipped: 1,
		},
		{
			name:        "torn trailing identifier without score",
			contents:    ptr("u1,42\nu2"),
			want:        []string{"u1"},
			wantSkipped: 1,
		},
		{
			name:        "unterminated quote at end",
			contents:    ptr("u1,42\n\"u2"),
			want:        []string{"u1"},
			wantSkipped: 1,
		},
		{
			name:         "complete records without a valid score stay recorded",
			contents:     ptr("u1,42\nu2,\nu3,abc\nu4,-5\nu5,42,extra\nu6\nu7,7\n"),
			want:         []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7"},
			wantUnscored: []string{"u2", "u3", "u4", "u5", "u6"},
		},
		{
			name:        "blank identifier is skipped",
			contents:    ptr("u1,42\n ,5\nu2,1\n"),
			want:        []string{"u1", "u2"},
			wantSkipped: 1,
		},
		{
			name:        "line rejected by the csv reader is skipped",
			contents:    ptr("u1,42\nu\"2,1\nu3,1\n"),
			want:        []string{"u1", "u3"},
			wantSkipped: 1,
		},
		{
			name:     "quoted identifiers",
			contents: ptr("\"a,b\",1\n\"line\nbreak\",2\n"),
			want:     []string{"a,b", "line\nbreak"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, tt.contents)

			res, err := s.ReadRecords(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantSkipped, res.Skipped)
			assert.Equal(t, tt.wantUnscored, res.Unscored)

			progress, err := s.LoadProgress(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, progress.Sorted())
		})
	}
}

func TestLoadProgress_UnreadableOutput(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = s.LoadProgress(context.Background())
	assert.Error(t, err)
}

func TestAppender_AppendAndReadBack(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	app, err := s.OpenAppender(ctx)
	require.NoError(t, err)
	require.NoError(t, app.Append("u1", 42))
	require.NoError(t, app.Append("u2", NoScore))
	require.NoError(t, app.Append("needs,quoting", 0.5))
	require.NoError(t, app.Close())
	require.NoError(t, app.Close(), "second close is a no-op")

	assert.Equal(t, "u1,42\nu2,-1\n\"needs,quoting\",0.5\n", readFile(t, s.Path()))

	res, err := s.ReadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ScoreRecord{
		{Identifier: "u1", Score: 42},
		{Identifier: "u2", Score: NoScore},
		{Identifier: "needs,quoting", Score: 0.5},
	}, res.Records)
	assert.True(t, res.Records[0].HasScore())
	assert.False(t, res.Records[1].HasScore())
}

func TestAppender_RecordIsDurableBeforeClose(t *testing.T) {
	s := newTestStore(t, ptr("u0,1\n"))

	app, err := s.OpenAppender(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NoError(t, app.Append("u1", 3))
	assert.Equal(t, "u0,1\nu1,3\n", readFile(t, s.Path()))
}

func TestAppender_AppendAfterClose(t *testing.T) {
	s := newTestStore(t, nil)
	app, err := s.OpenAppender(context.Background())
	require.NoError(t, err)
	require.NoError(t, app.Close())

	assert.ErrorIs(t, app.Append("u1", 1), os.ErrClosed)
}

func TestOpenAppender_RepairsTornTail(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     string
	}{
		{name: "torn score", contents: "u1,42\nu2,0.9", want: "u1,42\nu3,7\n"},
		{name: "torn identifier only", contents: "u1,42\nu", want: "u1,42\nu3,7\n"},
		{name: "single torn line", contents: "u1,4", want: "u3,7\n"},
		{name: "clean file untouched", contents: "u1,42\n", want: "u1,42\nu3,7\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, ptr(tt.contents))

			app, err := s.OpenAppender(context.Background())
			require.NoError(t, err)
			require.NoError(t, app.Append("u3", 7))
			require.NoError(t, app.Close())

			assert.Equal(t, tt.want, readFile(t, s.Path()))
		})
	}
}

func TestLastLineEnd_AcrossChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.csv")
	line := "u1,42\n"
	tail := make([]byte, tailChunkSize*2+17)
	for i := range tail {
		tail[i] = 'x'
	}
	require.NoError(t, os.WriteFile(path, append([]byte(line), tail...), 0o600))

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	info, err := f.Stat()
	require.NoError(t, err)

	keep, err := lastLineEnd(f, info.Size())
	require.NoError(t, err)
	assert.Equal(t, int64(len(line)), keep)
}

func TestFileStore_SatisfiesRecordStore(t *testing.T) {
	var rs engine.RecordStore = newTestStore(t, nil)
	assert.NotNil(t, rs)
}
