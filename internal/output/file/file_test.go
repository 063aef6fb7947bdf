package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejijunhao/tagger/internal/model"
)

func rec(id string) model.Classification {
	return model.Classification{
		ID:         id,
		Source:     id + ".png",
		Categories: []model.ScoredCategory{{Label: "Pet Supplies - Pet Food - dog food", Confidence: 0.27}},
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestWriteAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndjson")
	out, err := New(path)
	require.NoError(t, err)

	for i := range 3 {
		require.NoError(t, out.Write(context.Background(), rec(fmt.Sprint(i))))
	}
	require.NoError(t, out.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	var got model.Classification
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &got))
	assert.Equal(t, "2", got.ID)
}

func TestAppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("{\"id\":\"old\"}\n"), 0o644))

	out, err := New(path)
	require.NoError(t, err)
	require.NoError(t, out.Write(context.Background(), rec("new")))
	require.NoError(t, out.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "old")
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndjson")
	line, err := json.Marshal(rec("0"))
	require.NoError(t, err)
	// Room for two records per file.
	out, err := New(path, WithMaxSize(int64(2*(len(line)+1))))
	require.NoError(t, err)

	for i := range 5 {
		require.NoError(t, out.Write(context.Background(), rec(fmt.Sprint(i))))
	}
	require.NoError(t, out.Close())

	assert.Len(t, readLines(t, path), 1)
	assert.Len(t, readLines(t, path+".1"), 2)
	assert.Len(t, readLines(t, path+".2"), 2)
	assert.True(t, strings.Contains(readLines(t, path+".2")[0], `"id":"0"`))
}

func TestNewBadPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "out.ndjson"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file output: open")
}
