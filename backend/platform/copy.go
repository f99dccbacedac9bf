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

package platform

import (
	"go.uber.org/zap"
)

// Copy copies n bytes from src to dst.
//
// Either operand may be host memory or a device address: the direction of
// the transfer follows from their types. The copy transfers all n bytes or
// fails; a zero-length copy never fails and never reaches the runtime.
func Copy(src, dst Memory, n uint64) error {
	if n == 0 {
		return nil
	}
	if !Accelerated {
		// Without a device every copy is unsupported, whatever its operands.
		return runtimeCopy(dst, src, n)
	}
	if err := checkOperand(src, n); err != nil {
		return err
	}
	if err := checkOperand(dst, n); err != nil {
		return err
	}
	if err := runtimeCopy(dst, src, n); err != nil {
		return err
	}
	countCopy(src, dst, n)
	logger.Debug("device copy", zap.Stringer("src", src), zap.Stringer("dst", dst), zap.Uint64("bytes", n))
	return nil
}

// checkOperand rejects operands that cannot hold n bytes before the runtime
// is called, so that no copy is ever partial.
func checkOperand(m Memory, n uint64) error {
	switch mT := m.(type) {
	case nil:
		return invalidArgument("copy of %d bytes with a nil operand", n)
	case Host:
		if uint64(len(mT)) < n {
			return invalidArgument("copy of %d bytes with %s", n, mT)
		}
	case DevicePtr:
		if mT.IsNil() {
			return invalidArgument("copy of %d bytes at %s", n, mT)
		}
	}
	return nil
}
