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

package quantity_test

import (
	"errors"
	"testing"

	"github.com/deckhouse/btrfs-provisioner/internal/quantity"
)

func TestToBytes(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr error
	}{
		{in: "12345", want: 12345},
		{in: "0Mi", want: 0},
		{in: "1Ki", want: 1024},
		{in: "1Mi", want: 1048576},
		{in: "5Gi", want: 5368709120},
		{in: "1Ti", want: 1 << 40},
		{in: "2Pi", want: 2 << 50},
		{in: "1Ei", want: 1 << 60},
		{in: "1k", want: 1000},
		{in: "1M", want: 1000000},
		{in: "1G", want: 1000000000},
		{in: "3T", want: 3000000000000},
		{in: "1P", want: 1000000000000000},
		{in: "1E", want: 1000000000000000000},
		{in: "1500m", want: 1},
		{in: "-1Gi", want: -1 << 30},
		{in: "12345r", wantErr: quantity.ErrInvalidUnit},
		{in: "12345xy", wantErr: quantity.ErrInvalidUnit},
		{in: "123.123", wantErr: quantity.ErrParse},
		{in: "1.5Gi", wantErr: quantity.ErrParse},
		{in: "", wantErr: quantity.ErrParse},
		// 10 * 10^18 does not fit into int64
		{in: "10E", wantErr: quantity.ErrParse},
		{in: "9Ei", wantErr: quantity.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := quantity.ToBytes(tt.in)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ToBytes(%q) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("ToBytes(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ToBytes(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestToMilliCPUs(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr error
	}{
		{in: "1536m", want: 1536},
		{in: "4", want: 4000},
		{in: "0", want: 0},
		{in: "250m", want: 250},
		{in: "1.5", wantErr: quantity.ErrParse},
		{in: "m", wantErr: quantity.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := quantity.ToMilliCPUs(tt.in)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ToMilliCPUs(%q) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("ToMilliCPUs(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ToMilliCPUs(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
