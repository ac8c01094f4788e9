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

package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"gopkg.in/check.v1"
)

type containsChecker struct {
	*check.CheckerInfo
}

// Contains checks that a string holds a substring, or that a slice or
// array holds an element deeply equal to the needle.
var Contains check.Checker = &containsChecker{
	&check.CheckerInfo{Name: "Contains", Params: []string{"haystack", "needle"}},
}

func (*containsChecker) Check(params []interface{}, names []string) (bool, string) {
	if s, ok := params[0].(string); ok {
		needle, ok := params[1].(string)
		if !ok {
			return false, fmt.Sprintf("needle is a %T but haystack is a string", params[1])
		}
		return strings.Contains(s, needle), ""
	}

	haystack := reflect.ValueOf(params[0])
	if k := haystack.Kind(); k != reflect.Slice && k != reflect.Array {
		return false, fmt.Sprintf("haystack is of unsupported type %T", params[0])
	}
	if elem, needle := haystack.Type().Elem(), reflect.TypeOf(params[1]); elem != needle {
		return false, fmt.Sprintf("haystack contains items of type %s but needle is a %s", elem, needle)
	}
	for i := 0; i < haystack.Len(); i++ {
		if reflect.DeepEqual(haystack.Index(i).Interface(), params[1]) {
			return true, ""
		}
	}
	return false, ""
}

type fileEqualsChecker struct {
	*check.CheckerInfo
}

// FileEquals checks the content of a file against a string or a byte slice.
var FileEquals check.Checker = &fileEqualsChecker{
	&check.CheckerInfo{Name: "FileEquals", Params: []string{"filename", "contents"}},
}

func (*fileEqualsChecker) Check(params []interface{}, names []string) (bool, string) {
	filename, ok := params[0].(string)
	if !ok {
		return false, "filename must be a string"
	}
	var want []byte
	switch v := params[1].(type) {
	case string:
		want = []byte(v)
	case []byte:
		want = v
	default:
		return false, fmt.Sprintf("cannot compare file contents with a %T", v)
	}
	got, err := os.ReadFile(filename)
	if err != nil {
		return false, fmt.Sprintf("cannot read file %q: %v", filename, err)
	}
	return bytes.Equal(got, want), ""
}

type fileExistsChecker struct {
	*check.CheckerInfo
	exists bool
}

// FilePresent checks that a path exists.
var FilePresent check.Checker = &fileExistsChecker{
	&check.CheckerInfo{Name: "FilePresent", Params: []string{"filename"}}, true,
}

// FileAbsent checks that a path does not exist.
var FileAbsent check.Checker = &fileExistsChecker{
	&check.CheckerInfo{Name: "FileAbsent", Params: []string{"filename"}}, false,
}

func (f *fileExistsChecker) Check(params []interface{}, names []string) (bool, string) {
	filename, ok := params[0].(string)
	if !ok {
		return false, "filename must be a string"
	}
	_, err := os.Stat(filename)
	switch {
	case err == nil && !f.exists:
		return false, fmt.Sprintf("%q exists", filename)
	case errors.Is(err, fs.ErrNotExist) && f.exists:
		return false, fmt.Sprintf("%q does not exist", filename)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return false, err.Error()
	}
	return true, ""
}

type errorIsChecker struct {
	*check.CheckerInfo
}

// ErrorIs checks an error against a target with errors.Is. A nil error only
// matches a nil target.
var ErrorIs check.Checker = &errorIsChecker{
	&check.CheckerInfo{Name: "ErrorIs", Params: []string{"error", "target"}},
}

func (*errorIsChecker) Check(params []interface{}, names []string) (bool, string) {
	if params[0] == nil || params[1] == nil {
		return params[0] == params[1], ""
	}
	err, ok := params[0].(error)
	if !ok {
		return false, fmt.Sprintf("error is a %T, not an error", params[0])
	}
	target, ok := params[1].(error)
	if !ok {
		return false, fmt.Sprintf("target is a %T, not an error", params[1])
	}
	return errors.Is(err, target), ""
}
