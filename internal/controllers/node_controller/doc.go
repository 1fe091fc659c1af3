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

// Package nodecontroller implements the node_controller controller, which
// dispatches node initialization Jobs for worker nodes.
//
// # Controller Responsibilities
//
// When per-node StorageClasses are enabled, each worker node gets an
// initialization Job that verifies the node's volumes directory and
// registers a StorageClass dedicated to that node. Nodes that already
// have their StorageClass are skipped, as are control plane nodes.
//
// The controller is not built at all when per-node StorageClasses are
// disabled.
package nodecontroller
