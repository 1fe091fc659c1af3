/*
Copyright 2025 Flant JSC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package quantity parses Kubernetes resource-quantity strings into exact
// integer byte and millicore counts.
//
// Only integer quantities with an optional unit suffix are accepted: binary
// suffixes (Ki..Ei, radix 1024), decimal suffixes (k..E, radix 1000) and the
// milli suffix "m". Scaling is overflow-checked; a quantity which does not
// fit into int64 fails instead of wrapping.
package quantity

import (
	"errors"
	"strconv"
)

// ErrInvalidUnit is returned for an unrecognized unit suffix.
var ErrInvalidUnit = errors.New("invalid quantity unit")

// ErrParse is returned for a malformed or overflowing numeric part.
var ErrParse = errors.New("malformed quantity")

var byteUnits = map[string]int64{
	"Ki": 1 << 10,
	"Mi": 1 << 20,
	"Gi": 1 << 30,
	"Ti": 1 << 40,
	"Pi": 1 << 50,
	"Ei": 1 << 60,
	"k":  1e3,
	"M":  1e6,
	"G":  1e9,
	"T":  1e12,
	"P":  1e15,
	"E":  1e18,
}

// ToBytes parses a storage quantity like "5Gi", "1G" or "12345" into an
// exact byte count.
func ToBytes(s string) (int64, error) {
	unit := trailingUnit(s)
	if unit == "" {
		return parseInt(s)
	}

	amount, err := parseInt(s[:len(s)-len(unit)])
	if err != nil {
		// An unknown suffix is reported as such even when the remainder is
		// malformed too.
		if _, known := byteUnits[unit]; !known && unit != "m" {
			return 0, errInvalidUnit(unit)
		}
		return 0, err
	}

	if unit == "m" {
		return amount / 1000, nil
	}

	factor, ok := byteUnits[unit]
	if !ok {
		return 0, errInvalidUnit(unit)
	}

	return mulChecked(amount, factor)
}

// ToMilliCPUs parses a CPU quantity: a trailing "m" means the value is
// already in millicores, otherwise it is whole cores.
func ToMilliCPUs(s string) (int64, error) {
	if len(s) > 0 && s[len(s)-1] == 'm' {
		return parseInt(s[:len(s)-1])
	}

	cores, err := parseInt(s)
	if err != nil {
		return 0, err
	}

	return mulChecked(cores, 1000)
}

// trailingUnit returns the trailing 1-2 alphabetic characters of s, if any.
func trailingUnit(s string) string {
	n := 0
	for n < len(s) && n < 2 && isAlpha(s[len(s)-1-n]) {
		n++
	}
	return s[len(s)-n:]
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func parseInt(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Join(ErrParse, err)
	}
	return v, nil
}

func mulChecked(a, factor int64) (int64, error) {
	if a == 0 {
		return 0, nil
	}
	r := a * factor
	if r/factor != a {
		return 0, errors.Join(ErrParse, errors.New("value overflows int64"))
	}
	return r, nil
}

func errInvalidUnit(unit string) error {
	return errors.Join(ErrInvalidUnit, errors.New("unit "+strconv.Quote(unit)))
}
