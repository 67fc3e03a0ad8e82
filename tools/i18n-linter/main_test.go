package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestFlattenYAML(t *testing.T) {
	keys := make(map[string]struct{})
	flattenYAML("", map[string]any{
		"lock":  map[string]any{"locked": "Locked", "nested": map[string]any{"x": "y"}},
		"plain": "v",
	}, keys)
	for _, want := range []string{"lock.locked", "lock.nested.x", "plain"} {
		if _, ok := keys[want]; !ok {
			t.Fatalf("expected %s in %v", want, keys)
		}
	}
}

func TestLint(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "internal", "x", "a.go"), `package x
func f() { _ = i18n.T("lock.locked"); _ = i18n.T("lock.status", s) }`)
	writeFile(t, filepath.Join(root, "internal", "x", "a_test.go"), `package x
func g() { _ = i18n.T("only.in.tests") }`)
	writeFile(t, filepath.Join(root, "_examples", "b.go"), `package y
func h() { _ = i18n.T("ignored.key") }`)
	writeFile(t, filepath.Join(root, localesDir, "en.yaml"), "timestamp:\n  layout: x\nlock:\n  locked: Locked\n  status: \"%s\"\n  unused: u\n")
	writeFile(t, filepath.Join(root, localesDir, "de.yaml"), "lock:\n  locked: Gesperrt\n")

	report, err := lint(root, localesDir)
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if !report.failed() {
		t.Fatalf("expected failure for missing German key")
	}
	if got := report.missing["de.yaml"]; !reflect.DeepEqual(got, []string{"lock.status"}) {
		t.Fatalf("unexpected missing keys %v", got)
	}
	if len(report.missing["en.yaml"]) != 0 {
		t.Fatalf("en.yaml should be complete, got %v", report.missing["en.yaml"])
	}
	if !reflect.DeepEqual(report.orphaned, []string{"lock.unused"}) {
		t.Fatalf("unexpected orphaned keys %v", report.orphaned)
	}
}
