package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := execute(args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, err := run(t, "", args...)
	if err != nil {
		t.Fatalf("anystore %s: %v\n%s", strings.Join(args, " "), err, errOut)
	}
	return out
}

func TestVersion(t *testing.T) {
	if out := mustRun(t, "version"); out != "anystore v"+Version+"\n" {
		t.Errorf("got %q", out)
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	flags := []string{"--backend", "fs", "--path", dir}

	mustRun(t, append(flags, "set", "/config/name", "anystore")...)
	mustRun(t, append(flags, "set", "/config/port", "8080")...)

	if out := mustRun(t, append(flags, "get", "/config/name")...); out != "anystore\n" {
		t.Errorf("get: got %q", out)
	}
	if out := mustRun(t, append(flags, "list", "/config")...); out != "/config/name\n/config/port\n" {
		t.Errorf("list: got %q", out)
	}
	if out := mustRun(t, append(flags, "walk")...); out != "config/\n  name\n  port\n" {
		t.Errorf("walk: got %q", out)
	}

	mustRun(t, append(flags, "delete", "/config/port")...)
	_, _, err := run(t, "", append(flags, "get", "/config/port")...)
	if !errors.Is(err, errNotFound) {
		t.Errorf("get deleted: got %v, want errNotFound", err)
	}
}

func TestSetFromStdin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.sqlite")
	flags := []string{"--backend", "sqlite", "--path", path}

	if _, errOut, err := run(t, "line one\nline two\n", append(flags, "set", "/notes/a", "-")...); err != nil {
		t.Fatalf("set: %v\n%s", err, errOut)
	}
	if out := mustRun(t, append(flags, "get", "/notes/a")...); out != "line one\nline two\n" {
		t.Errorf("get: got %q", out)
	}
}

func TestJSONCodec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.bolt")
	flags := []string{"--backend", "bolt", "--path", path, "--codec", "json"}

	mustRun(t, append(flags, "set", "/user", `{"name": "Alice", "age": 30}`)...)
	want := "{\n  \"age\": 30,\n  \"name\": \"Alice\"\n}\n"
	if out := mustRun(t, append(flags, "get", "/user")...); out != want {
		t.Errorf("get: got %q, want %q", out, want)
	}

	if _, _, err := run(t, "", append(flags, "set", "/bad", `{"name":`)...); err == nil {
		t.Error("expected invalid JSON to be rejected")
	}
}

func TestEnvironmentAndScope(t *testing.T) {
	t.Setenv("ANYSTORE_BACKEND", "tiered")
	t.Setenv("ANYSTORE_PATH", filepath.Join(t.TempDir(), "db.sqlite"))

	mustRun(t, "--scope", "/tenants/acme", "set", "/plan", "pro")
	if out := mustRun(t, "get", "/tenants/acme/plan"); out != "pro\n" {
		t.Errorf("get: got %q", out)
	}
	if out := mustRun(t, "--scope", "/tenants", "list"); out != "/acme\n" {
		t.Errorf("scoped list: got %q", out)
	}
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	flags := []string{"--backend", "redis", "--redis-addr", mr.Addr(), "--redis-prefix", "cli"}

	mustRun(t, append(flags, "set", "/a/b", "v")...)
	if !mr.Exists("cli:a:b") {
		t.Errorf("key cli:a:b missing, have %v", mr.Keys())
	}
	if out := mustRun(t, append(flags, "get", "/a/b")...); out != "v\n" {
		t.Errorf("get: got %q", out)
	}
}

func TestRateLimitAndMetrics(t *testing.T) {
	dir := t.TempDir()
	_, errOut, err := run(t, "", "--backend", "fs", "--path", dir, "--rate-limit", "10", "--metrics", "set", "/k", "v")
	if err != nil {
		t.Fatal(err)
	}
	if want := `anystore_operations_total{store="fs",op="set"} 1`; !strings.Contains(errOut, want) {
		t.Errorf("stderr missing %q:\n%s", want, errOut)
	}
}

func TestDebugLogging(t *testing.T) {
	_, errOut, err := run(t, "", "--backend", "fs", "--path", t.TempDir(), "--log-level", "debug", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(errOut, "list") || !strings.Contains(errOut, `"store": "fs"`) {
		t.Errorf("debug log missing from stderr:\n%s", errOut)
	}
}

func TestInvalidSettings(t *testing.T) {
	for _, args := range [][]string{
		{"--backend", "nope", "list"},
		{"--backend", "memory", "--codec", "xml", "set", "/a", "v"},
		{"--backend", "memory", "--log-level", "loud", "list"},
		{"--backend", "airtable", "list"},
	} {
		if _, _, err := run(t, "", args...); err == nil {
			t.Errorf("anystore %s: expected an error", strings.Join(args, " "))
		}
	}
}

func TestWrapString(t *testing.T) {
	got := wrapString("one two three four five six seven eight nine ten eleven twelve")
	for _, line := range strings.Split(got, "\n") {
		if len(line) > wrapWidth {
			t.Errorf("line longer than %d: %q", wrapWidth, line)
		}
	}
	if strings.Join(strings.Fields(got), " ") != "one two three four five six seven eight nine ten eleven twelve" {
		t.Errorf("words changed: %q", got)
	}
}
