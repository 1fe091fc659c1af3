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

package ctlerrors

import (
	"errors"
	"fmt"
)

// ErrValidation marks a missing required field, annotation or finalizer.
// Such errors are not retried: they are logged and the object is skipped.
var ErrValidation = errors.New("validation failed")

// ErrNotFound marks a referenced object, node or quota group being absent.
var ErrNotFound = errors.New("not found")

// ErrNotSupported marks an explicitly unsupported branch, such as dynamic
// node assignment.
var ErrNotSupported = errors.New("not supported")

// ErrOrphanedSubvolume marks a provisioning failure that happened after the
// subvolume was already created. The subvolume is not rolled back; the
// operator has to clean it up.
var ErrOrphanedSubvolume = errors.New("subvolume orphaned")

func WrapErrorf(err error, format string, a ...any) error {
	return fmt.Errorf("%w: %w", err, fmt.Errorf(format, a...))
}

func ErrValidationf(format string, a ...any) error {
	return WrapErrorf(ErrValidation, format, a...)
}

func ErrNotFoundf(format string, a ...any) error {
	return WrapErrorf(ErrNotFound, format, a...)
}

func ErrNotSupportedf(format string, a ...any) error {
	return WrapErrorf(ErrNotSupported, format, a...)
}

func ErrOrphanedSubvolumef(format string, a ...any) error {
	return WrapErrorf(ErrOrphanedSubvolume, format, a...)
}
