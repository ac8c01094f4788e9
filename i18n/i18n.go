// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2025 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

// Package i18n translates the messages shown to the remote operator.
package i18n

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/snapcore/go-gettext"

	"github.com/snapcore/remote-unlock/dirs"
	"github.com/snapcore/remote-unlock/osutil"
)

// TEXTDOMAIN is the gettext domain of the remote unlock tools.
var TEXTDOMAIN = "remote-unlock"

var (
	translations gettext.Translations
	catalog      gettext.Catalog
)

func init() {
	bindTextDomain(TEXTDOMAIN, dirs.LocaleDir)
	setLocale("")
}

// moFile finds the catalog for locale under root, falling back from a
// territory such as de_AT to the bare language.
func moFile(root, locale, domain string) string {
	lang, _, _ := strings.Cut(locale, "_")
	for _, l := range []string{locale, lang} {
		p := filepath.Join(root, l, "LC_MESSAGES", domain+".mo")
		if osutil.FileExists(p) {
			return p
		}
	}
	return ""
}

func bindTextDomain(domain, dir string) {
	translations = gettext.NewTranslations(dir, domain, moFile)
}

// setLocale selects loc, or the locale of the environment when empty.
// Encoding and modifier suffixes are ignored.
func setLocale(loc string) {
	if loc == "" {
		loc = os.Getenv("LC_MESSAGES")
	}
	if loc == "" {
		loc = os.Getenv("LANG")
	}
	loc, _, _ = strings.Cut(loc, "@")
	loc, _, _ = strings.Cut(loc, ".")

	catalog = translations.Locale(loc)
}

// G translates msgid.
func G(msgid string) string {
	return catalog.Gettext(msgid)
}
