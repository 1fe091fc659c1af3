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

import "strconv"

var Command = "btrfs"

var ChrootCommand = "chroot"

var MoveCommand = "mv"

var SubvolumeCreateArgs = func(path string) []string {
	return []string{"subvolume", "create", path}
}

var SubvolumeDeleteArgs = func(path string) []string {
	// --commit-after makes the deletion durable before the command returns
	return []string{"subvolume", "delete", "--commit-after", path}
}

var QuotaEnableArgs = func(path string) []string {
	return []string{"quota", "enable", path}
}

var QuotaRescanWaitArgs = func(path string) []string {
	return []string{"quota", "rescan", "-w", path}
}

var QgroupLimitArgs = func(bytes int64, path string) []string {
	return []string{"qgroup", "limit", strconv.FormatInt(bytes, 10), path}
}

var QgroupDestroyArgs = func(qgroup string, path string) []string {
	return []string{"qgroup", "destroy", qgroup, path}
}

var QgroupShowArgs = func(path string) []string {
	return []string{"qgroup", "show", "-pcref", path}
}

var MoveArgs = func(source string, target string) []string {
	return []string{source, target}
}
