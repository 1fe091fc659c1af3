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

// Package pvcontroller implements the pv_controller controller, which
// dispatches deletion Jobs for released PersistentVolumes.
//
// # Controller Responsibilities
//
// A PersistentVolume created by this provisioner carries a finalizer that
// blocks its removal until the backing btrfs subvolume is destroyed or
// archived. When such a volume enters deletion, the controller resolves
// the node that holds the subvolume from the volume's node affinity and
// dispatches a deletion Job pinned there. The Job removes the finalizer
// once the subvolume is gone.
//
// Unlike provisioning, deletion dispatch keeps no in-process record of
// handled volumes: the live-Job lookup is the only dedup, so a failed Job
// that got garbage-collected is dispatched anew on the next volume event.
//
// Volumes whose node affinity names a node that no longer exists stay held
// by the finalizer and are reported in the log.
package pvcontroller
