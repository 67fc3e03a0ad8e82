// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks that every i18n.T() key used in the Go sources exists
// in every locale file, and reports keys no code refers to.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
	projectRoot   = "."
)

var keyPattern = regexp.MustCompile(`i18n\.T\("([a-zA-Z0-9_.]+)"`)

// keysReferencedIndirectly are looked up by computed ID rather than a
// literal i18n.T call.
var keysReferencedIndirectly = map[string]struct{}{
	"timestamp.layout": {},
}

func main() {
	report, err := lint(projectRoot, localesDir)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
	for _, line := range report.lines() {
		fmt.Println(line)
	}
	if report.failed() {
		os.Exit(1)
	}
	fmt.Println("i18n: all keys present")
}

type lintReport struct {
	missing  map[string][]string // locale -> keys used in code but absent
	orphaned []string            // keys in the primary locale no code uses
}

func (r lintReport) failed() bool {
	for _, keys := range r.missing {
		if len(keys) > 0 {
			return true
		}
	}
	return false
}

func (r lintReport) lines() []string {
	var out []string
	locales := make([]string, 0, len(r.missing))
	for l := range r.missing {
		locales = append(locales, l)
	}
	sort.Strings(locales)
	for _, l := range locales {
		for _, k := range r.missing[l] {
			out = append(out, fmt.Sprintf("missing in %s: %s", l, k))
		}
	}
	for _, k := range r.orphaned {
		out = append(out, "orphaned: "+k)
	}
	return out
}

func lint(root, locales string) (lintReport, error) {
	used, err := findUsedKeys(root)
	if err != nil {
		return lintReport{}, err
	}
	files, err := filepath.Glob(filepath.Join(root, locales, "*.yaml"))
	if err != nil {
		return lintReport{}, err
	}
	if len(files) == 0 {
		return lintReport{}, fmt.Errorf("no locale files in %s", filepath.Join(root, locales))
	}

	report := lintReport{missing: map[string][]string{}}
	for _, f := range files {
		keys, err := loadKeysFromLocale(f)
		if err != nil {
			return lintReport{}, fmt.Errorf("%s: %w", f, err)
		}
		name := filepath.Base(f)
		report.missing[name] = diff(used, keys)
		if name == primaryLocale {
			report.orphaned = diff(keys, used, keysReferencedIndirectly)
		}
	}
	return report, nil
}

// diff returns the sorted keys of a that are in none of bs.
func diff(a map[string]struct{}, bs ...map[string]struct{}) []string {
	var out []string
	for k := range a {
		found := false
		for _, b := range bs {
			if _, ok := b[k]; ok {
				found = true
				break
			}
		}
		if !found {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// findUsedKeys collects the literal keys of i18n.T calls in non-test Go
// files, skipping vendored and underscore directories.
func findUsedKeys(root string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, m := range keyPattern.FindAllStringSubmatch(string(data), -1) {
			keys[m[1]] = struct{}{}
		}
		return nil
	})
	return keys, err
}

func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var content map[string]any
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	flattenYAML("", content, keys)
	return keys, nil
}

func flattenYAML(prefix string, node any, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenYAML(next, child, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}
