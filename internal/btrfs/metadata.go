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

package btrfs

import (
	"path/filepath"
	"strings"
)

// VolumeMeta describes a subvolume from the provisioner's perspective. The
// subvolume does not necessarily exist yet.
type VolumeMeta struct {
	// Path is the logical subvolume path within the volumes filesystem,
	// as seen after chrooting into the host root.
	Path string

	// HostPath is the same path as visible to this process, i.e. rewritten
	// under the host root mount when one is configured.
	HostPath string
}

// NewVolumeMeta derives subvolume paths for a volume name.
func NewVolumeMeta(volumesDir, hostRoot, volumeName string) VolumeMeta {
	path := filepath.Join(volumesDir, volumeName)

	return VolumeMeta{
		Path:     path,
		HostPath: HostPath(hostRoot, path),
	}
}

// HostPath rewrites an absolute path under the host root mount. With an
// empty host root the path is returned as is.
func HostPath(hostRoot string, parts ...string) string {
	p := hostRoot
	for _, part := range parts {
		p = filepath.Join(p, strings.TrimPrefix(part, "/"))
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
