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

package surface

import (
	"fmt"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/devmem"
	"github.com/gx-org/devmem/backend/platform"
	"github.com/pkg/errors"
)

// SyncState tells which copy of a mirrored field holds the latest values.
type SyncState int

const (
	// InSync means host and device hold the same values.
	InSync SyncState = iota
	// HostNewer means the host copy was written since the last transfer.
	HostNewer
	// DeviceNewer means the device copy was written since the last transfer.
	DeviceNewer
)

func (s SyncState) String() string {
	switch s {
	case InSync:
		return "in-sync"
	case HostNewer:
		return "host-newer"
	case DeviceNewer:
		return "device-newer"
	}
	return fmt.Sprintf("SyncState(%d)", int(s))
}

// Field is a mirrored field whatever its element type.
type Field interface {
	Name() string
	Unit() string
	Kind() dtype.DataType
	Len() int
	ByteSize() uint64
	State() SyncState
	// Device returns the device buffer, or nil if the field is not mirrored.
	Device() *platform.Buffer

	MarkHostWritten()
	MarkDeviceWritten()

	Allocate() error
	Push() error
	Pull() error
	Release() error
}

// Mirror is a host array with an optional copy in device memory.
//
// Host and device copies are only synchronized by Push and Pull. The mirror
// records which side was written last; deciding when to transfer is left to
// the owner.
type Mirror[T devmem.Supported] struct {
	name, unit string
	raw        platform.Host
	host       []T
	dev        *platform.Buffer
	state      SyncState
}

var _ Field = (*Mirror[float64])(nil)

// NewMirror returns a mirror of n elements that only exists on the host.
func NewMirror[T devmem.Supported](name, unit string, n int) *Mirror[T] {
	raw, host := platform.NewHost[T](n)
	return &Mirror[T]{
		name:  name,
		unit:  unit,
		raw:   raw,
		host:  host,
		state: HostNewer,
	}
}

// Name of the field.
func (m *Mirror[T]) Name() string { return m.name }

// Unit of the field values.
func (m *Mirror[T]) Unit() string { return m.unit }

// Kind of the elements.
func (m *Mirror[T]) Kind() dtype.DataType { return dtype.Generic[T]() }

// Len returns the number of elements.
func (m *Mirror[T]) Len() int { return len(m.host) }

// ByteSize returns the size of the field in bytes.
func (m *Mirror[T]) ByteSize() uint64 { return uint64(len(m.raw)) }

// State returns which copy was written last.
func (m *Mirror[T]) State() SyncState { return m.state }

// Host returns the host copy. Call MarkHostWritten after writing to it.
func (m *Mirror[T]) Host() []T { return m.host }

// Device returns the device buffer, or nil if the field is not mirrored.
func (m *Mirror[T]) Device() *platform.Buffer { return m.dev }

// MarkHostWritten records that the host copy holds the latest values.
func (m *Mirror[T]) MarkHostWritten() { m.state = HostNewer }

// MarkDeviceWritten records that the device copy holds the latest values.
func (m *Mirror[T]) MarkDeviceWritten() { m.state = DeviceNewer }

// Allocate sizes the device buffer to the host array.
// Device contents are undefined until the next Push.
func (m *Mirror[T]) Allocate() error {
	size := m.ByteSize()
	if m.dev == nil {
		buf, err := platform.NewBuffer(size)
		if err != nil {
			return errors.WithMessagef(err, "cannot allocate %s on the device", m.name)
		}
		m.dev = buf
	} else if err := m.dev.Reallocate(size); err != nil {
		return errors.WithMessagef(err, "cannot reallocate %s on the device", m.name)
	}
	m.state = HostNewer
	return nil
}

func (m *Mirror[T]) checkMirrored() error {
	if m.dev == nil {
		return errors.Errorf("%s is not allocated on the device", m.name)
	}
	if m.dev.Size() != m.ByteSize() {
		return errors.Errorf("%s: device buffer holds %d bytes, host array %d bytes", m.name, m.dev.Size(), m.ByteSize())
	}
	return nil
}

// Push copies the host array to the device.
func (m *Mirror[T]) Push() error {
	if err := m.checkMirrored(); err != nil {
		return err
	}
	if err := platform.Copy(m.raw, m.dev.Ptr(), m.ByteSize()); err != nil {
		return errors.WithMessagef(err, "cannot copy %s to the device", m.name)
	}
	m.state = InSync
	return nil
}

// Pull copies the device buffer to the host array.
func (m *Mirror[T]) Pull() error {
	if err := m.checkMirrored(); err != nil {
		return err
	}
	if err := platform.Copy(m.dev.Ptr(), m.raw, m.ByteSize()); err != nil {
		return errors.WithMessagef(err, "cannot copy %s from the device", m.name)
	}
	m.state = InSync
	return nil
}

// Release frees the device buffer. The host copy becomes the only copy.
func (m *Mirror[T]) Release() error {
	if m.dev == nil {
		return nil
	}
	if err := m.dev.Free(); err != nil {
		return errors.WithMessagef(err, "cannot release %s", m.name)
	}
	m.dev = nil
	m.state = HostNewer
	return nil
}
