package feedback

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"feedback": ["Value leadership in senior roles", 42, "  "]}`)
	writeFile(t, dir, "b.json", `{"notes": ["wrong key"]}`)
	writeFile(t, dir, "c.json", `not json`)
	writeFile(t, dir, "d.json", `{"feedback": ["Prefer hands-on cloud experience"]}`)
	writeFile(t, dir, "ignored.txt", `{"feedback": ["not a json file"]}`)

	core, observed := observer.New(zapcore.WarnLevel)
	s := Load(dir, zap.New(core))

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"Value leadership in senior roles", "Prefer hands-on cloud experience"}, s.Recent(5))
	assert.Equal(t, 2, observed.FilterMessage("skipping feedback file").Len())
}

func TestLoadMissingDirectory(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "absent"), nil)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Enhanced())
	assert.Empty(t, s.PromptSection())
}

func TestRecentKeepsLastEntries(t *testing.T) {
	s := New("1", "2", "3", "4", "5", "6", "7")
	assert.Equal(t, []string{"3", "4", "5", "6", "7"}, s.Recent(DefaultRecent))
	assert.Nil(t, s.Recent(0))
}

func TestPromptSection(t *testing.T) {
	s := New("Weigh communication highly")
	want := "\nPrevious Feedback and Learning Points:\n- Weigh communication highly\n\nPlease consider these insights when providing your assessment.\n"
	assert.Equal(t, want, s.PromptSection())

	var nilStore *Store
	assert.Empty(t, nilStore.PromptSection())
}

func TestAppend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "feedback")

	require.NoError(t, Append(dir, "first"))
	require.NoError(t, Append(dir, " second "))
	assert.Error(t, Append(dir, "   "))

	s := Load(dir, nil)
	assert.Equal(t, []string{"first", "second"}, s.Recent(10))
}
