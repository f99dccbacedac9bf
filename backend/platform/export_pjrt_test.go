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


//go:build pjrt && !cuda

package platform

import (
	"github.com/gomlx/gopjrt/pjrt"
	"github.com/pkg/errors"
)

// PJRTFailure classifies an error returned by PJRT.
var PJRTFailure = pjrtFailure

// IsOutOfMemory returns true if err reports an exhausted device.
func IsOutOfMemory(err error) bool {
	return errors.Is(err, errOutOfMemory)
}

// LiveHandles returns the number of PJRT buffers backing live allocations.
func LiveHandles() int {
	return len(pjrtState.allocs)
}

// FailDestroy makes the next n PJRT buffer releases fail.
// The returned function restores the default release.
func FailDestroy(n int, err error) func() {
	destroy := pjrtDestroy
	pjrtDestroy = func(b *pjrt.Buffer) error {
		if n > 0 {
			n--
			return err
		}
		return destroy(b)
	}
	return func() { pjrtDestroy = destroy }
}
