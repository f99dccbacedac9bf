// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package devmem_test

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/devmem"
)

func TestDTypeConversions(t *testing.T) {
	kinds := []dtype.DataType{
		dtype.Bool,
		dtype.Float32,
		dtype.Float64,
		dtype.Int32,
		dtype.Int64,
		dtype.Uint32,
		dtype.Uint64,
	}
	for _, k := range kinds {
		dt := devmem.ToDType(k)
		if dt == dtypes.InvalidDType {
			t.Errorf("ToDType(%s) = InvalidDType", k)
			continue
		}
		if got := devmem.ToGXDType(dt); got != k {
			t.Errorf("ToGXDType(ToDType(%s)) = %s", k, got)
		}
	}
}

func TestDTypeSizes(t *testing.T) {
	for _, k := range []dtype.DataType{dtype.Float32, dtype.Float64, dtype.Int32, dtype.Uint64} {
		if got, want := devmem.ToDType(k).Size(), dtype.Sizeof(k); got != want {
			t.Errorf("%s: PJRT element size %d, GX element size %d", k, got, want)
		}
	}
}

func TestInvalidDType(t *testing.T) {
	if got := devmem.ToDType(dtype.Invalid); got != dtypes.InvalidDType {
		t.Errorf("ToDType(Invalid) = %s, want InvalidDType", got)
	}
	if got := devmem.ToDType(dtype.Bfloat16); got != dtypes.InvalidDType {
		t.Errorf("ToDType(Bfloat16) = %s, want InvalidDType", got)
	}
	if got := devmem.ToGXDType(dtypes.Uint8); got != dtype.Invalid {
		t.Errorf("ToGXDType(Uint8) = %s, want Invalid", got)
	}
}
