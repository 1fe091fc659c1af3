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

// Package pvccontroller implements the pvc_controller controller, which
// dispatches provisioning Jobs for pending PersistentVolumeClaims.
//
// # Controller Responsibilities
//
// For each Pending claim whose StorageClass belongs to this provisioner,
// the controller resolves the node assigned to the class and dispatches a
// provisioning Job pinned to that node. Bound claims are recorded as
// handled so churn on them never re-dispatches.
//
// # Deduplication
//
// Each claim UID is dispatched at most once per controller lifetime via an
// in-memory seen set. Across restarts the Job label pair
// (job-type, target-uid) is the guard: dispatch is skipped while a Job for
// the same claim is still live.
package pvccontroller
