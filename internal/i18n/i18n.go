// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// package i18n provides localization for Safewatch. It loads the embedded
// YAML translation files with go-i18n and also owns the locale-dependent
// rendering of display timestamps, which the warning ledger uses as part of
// its deduplication key.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// localeFS embeds the YAML translation files from the 'locales' directory.
//
//go:embed locales/*.yaml
var localeFS embed.FS

// timestampLayoutID is the message holding the Go time layout for display
// timestamps in each locale.
const timestampLayoutID = "timestamp.layout"

var (
	mu        sync.RWMutex
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	lang      string
)

// Init loads every embedded locale and selects lang. Unknown languages fall
// back to English through the bundle's default.
func Init(l string) {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, _ := fs.ReadDir(localeFS, "locales")
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			continue
		}
		_, _ = b.ParseMessageFileBytes(data, f.Name())
	}

	mu.Lock()
	bundle = b
	localizer = i18n.NewLocalizer(b, l)
	lang = l
	mu.Unlock()
}

// Lang returns the active language tag.
func Lang() string {
	mu.RLock()
	defer mu.RUnlock()
	return lang
}

func current() *i18n.Localizer {
	mu.RLock()
	loc := localizer
	mu.RUnlock()
	if loc == nil {
		Init("en")
		mu.RLock()
		loc = localizer
		mu.RUnlock()
	}
	return loc
}

// T translates messageID. When args are given the translation is used as a
// fmt format string. Missing IDs are returned unchanged.
func T(messageID string, args ...any) string {
	msg, err := current().Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if err != nil {
		msg = messageID
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// FormatTimestamp renders t in local time with the active locale's layout.
// The layout has seconds precision.
func FormatTimestamp(t time.Time) string {
	layout := T(timestampLayoutID)
	if layout == timestampLayoutID {
		layout = time.DateTime
	}
	return t.Local().Format(layout)
}
