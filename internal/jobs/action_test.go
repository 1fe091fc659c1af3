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

package jobs_test

import (
	"testing"

	"github.com/deckhouse/btrfs-provisioner/internal/consts"
	"github.com/deckhouse/btrfs-provisioner/internal/jobs"
)

func TestActionLabelsRoundTrip(t *testing.T) {
	actions := []jobs.Action{
		jobs.Provision{ClaimUID: "claim-uid-1"},
		jobs.Delete{VolumeUID: "volume-uid-2"},
		jobs.InitializeNode{NodeUID: "node-uid-3"},
	}

	for _, action := range actions {
		decoded, err := jobs.FromLabels(action.Labels())
		if err != nil {
			t.Fatalf("FromLabels(%v) failed: %v", action.Labels(), err)
		}
		if decoded != action {
			t.Errorf("FromLabels(Labels(%#v)) = %#v", action, decoded)
		}
	}
}

func TestFromLabelsErrors(t *testing.T) {
	tests := []struct {
		name string
		lbls map[string]string
	}{
		{name: "empty", lbls: map[string]string{}},
		{
			name: "job type missing",
			lbls: map[string]string{consts.JobTargetUIDLabelKey: "uid"},
		},
		{
			name: "target uid missing",
			lbls: map[string]string{consts.JobTypeLabelKey: consts.JobTypeProvisionValue},
		},
		{
			name: "unknown job type",
			lbls: map[string]string{
				consts.JobTypeLabelKey:      "resize",
				consts.JobTargetUIDLabelKey: "uid",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := jobs.FromLabels(tt.lbls); err == nil {
				t.Error("FromLabels() succeeded unexpectedly")
			}
		})
	}
}

func TestSelector(t *testing.T) {
	action := jobs.Provision{ClaimUID: "uid-1"}
	sel := jobs.Selector(action)

	// SelectorFromSet sorts requirements by key
	want := consts.JobTypeLabelKey + "=provision," + consts.JobTargetUIDLabelKey + "=uid-1"
	if sel.String() != want {
		t.Errorf("Selector() = %q, want %q", sel.String(), want)
	}
}
