package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitDataURL(t *testing.T) {
	mime, payload := SplitDataURL("data:image/jpeg;base64,QUJD")
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, "QUJD", payload)

	mime, payload = SplitDataURL("data:;base64,QUJD")
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, "QUJD", payload)

	mime, payload = SplitDataURL("data:image/png; charset=binary;base64,QQ==")
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, "QQ==", payload)

	mime, payload = SplitDataURL("not a data url")
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, "not a data url", payload)
}

func TestToDataURL(t *testing.T) {
	assert.Equal(t, "data:image/gif;base64,QUJD", ToDataURL("image/gif", []byte("ABC")))
}

func TestGuessMIMEAndExtension(t *testing.T) {
	assert.Equal(t, "image/jpeg", GuessMIME("a/B.JPG"))
	assert.Equal(t, "image/png", GuessMIME("avatar"))
	assert.Equal(t, ".webp", ExtensionForMIME("image/webp"))
	assert.Equal(t, ".png", ExtensionForMIME("application/octet-stream"))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "chat.jsonl")

	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.True(t, DirectoryExists(filepath.Dir(path)))
	assert.False(t, DirectoryExists(path))
}

func unsetForTest(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadEnv_WorkingDirThenConfigDir(t *testing.T) {
	unsetForTest(t, "CIG_ENV_TEST_A", "CIG_ENV_TEST_B", "CIG_ENV_TEST_C")

	home := t.TempDir()
	t.Setenv("HOME", home)
	wd := t.TempDir()
	t.Chdir(wd)
	cfgDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(wd, ".env"), []byte("CIG_ENV_TEST_A=wd\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, ".env"), []byte("CIG_ENV_TEST_A=cfg\nCIG_ENV_TEST_B=cfg\n"), 0o644))
	appDir := filepath.Join(home, ".config", "cig")
	require.NoError(t, os.MkdirAll(appDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, ".env"), []byte("CIG_ENV_TEST_B=home\nCIG_ENV_TEST_C=home\n"), 0o644))

	loaded, err := LoadEnv(filepath.Join(cfgDir, "config.yaml"))
	require.NoError(t, err)
	assert.Len(t, loaded, 3)
	assert.Equal(t, "wd", os.Getenv("CIG_ENV_TEST_A"))
	assert.Equal(t, "cfg", os.Getenv("CIG_ENV_TEST_B"))
	assert.Equal(t, "home", os.Getenv("CIG_ENV_TEST_C"))
}

func TestLoadEnv_NothingToLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	loaded, err := LoadEnv("")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadEnv_MalformedFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	wd := t.TempDir()
	t.Chdir(wd)
	require.NoError(t, os.WriteFile(filepath.Join(wd, ".env"), []byte("BAD-KEY=1\n"), 0o644))

	_, err := LoadEnv("")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	unsetForTest(t, "CIG_ENV_TEST_D")
	path := filepath.Join(t.TempDir(), "custom.env")
	require.NoError(t, os.WriteFile(path, []byte("CIG_ENV_TEST_D=yes\n"), 0o644))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "yes", os.Getenv("CIG_ENV_TEST_D"))
	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestEnvFileCandidates_Dedup(t *testing.T) {
	wd := t.TempDir()
	t.Chdir(wd)
	home := t.TempDir()
	t.Setenv("HOME", home)

	got := EnvFileCandidates("config.yaml")
	require.Len(t, got, 2)
	assert.Equal(t, ".env", filepath.Base(got[0]))
	assert.Equal(t, filepath.Join(home, ".config", "cig", ".env"), got[1])
}
