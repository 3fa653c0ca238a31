package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEnv(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEnvFile_missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "nonexistent")); err != nil {
		t.Fatalf("missing file should return nil: %v", err)
	}
}

func TestLoadEnvFile_setsEnv(t *testing.T) {
	os.Unsetenv("SKYCLIP_TEST_ADDR")
	os.Unsetenv("SKYCLIP_TEST_DIR")
	t.Cleanup(func() {
		os.Unsetenv("SKYCLIP_TEST_ADDR")
		os.Unsetenv("SKYCLIP_TEST_DIR")
	})
	path := writeEnv(t, "SKYCLIP_TEST_ADDR=:9090\n# comment\n\nexport SKYCLIP_TEST_DIR=/srv/clips\nnot a pair\n")
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("SKYCLIP_TEST_ADDR"); got != ":9090" {
		t.Errorf("SKYCLIP_TEST_ADDR = %q", got)
	}
	if got := os.Getenv("SKYCLIP_TEST_DIR"); got != "/srv/clips" {
		t.Errorf("SKYCLIP_TEST_DIR = %q", got)
	}
}

func TestLoadEnvFile_existingWins(t *testing.T) {
	t.Setenv("SKYCLIP_TEST_FORMAT", "ts")
	path := writeEnv(t, "SKYCLIP_TEST_FORMAT=mp4\n")
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("SKYCLIP_TEST_FORMAT"); got != "ts" {
		t.Errorf("SKYCLIP_TEST_FORMAT = %q, want shell value ts", got)
	}
}

func TestParseEnvLine(t *testing.T) {
	tests := []struct {
		line      string
		key, want string
		ok        bool
	}{
		{`X="hello world"`, "X", "hello world", true},
		{`X='a # b'`, "X", "a # b", true},
		{`X=plain # trailing`, "X", "plain", true},
		{`export  Y = 2`, "Y", "2", true},
		{`=nokey`, "", "", false},
		{`# X=1`, "", "", false},
		{``, "", "", false},
	}
	for _, tt := range tests {
		key, val, ok := parseEnvLine(tt.line)
		if ok != tt.ok || key != tt.key || val != tt.want {
			t.Errorf("parseEnvLine(%q) = %q, %q, %v; want %q, %q, %v", tt.line, key, val, ok, tt.key, tt.want, tt.ok)
		}
	}
}
