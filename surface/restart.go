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
	"io"

	"github.com/gx-org/devmem/checkpoint"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// restartFields returns the fields written to restart files.
func (m *Model[T]) restartFields() []*Mirror[T] {
	fields := []*Mirror[T]{m.obuk, m.ustar}
	if !m.opts.ConstantZ0 {
		fields = append(fields, m.z0m, m.z0h)
	}
	return fields
}

// Save writes the prognostic fields of the model at time iotime.
// Fields written on the device must be pulled first.
func (m *Model[T]) Save(w io.Writer, iotime int64) error {
	var fields []checkpoint.Field
	for _, f := range m.restartFields() {
		if f.State() == DeviceNewer {
			return errors.Errorf("cannot save %s: device values have not been copied back to the host", f.Name())
		}
		fields = append(fields, checkpoint.FieldOf(f.Name(), f.Host()))
	}
	if err := checkpoint.Write(w, iotime, fields...); err != nil {
		return err
	}
	m.logger.Info("surface restart saved", zap.Int64("iotime", iotime), zap.Int("fields", len(fields)))
	return nil
}

// Load reads the prognostic fields written by Save and returns their time.
// Every field is validated before any host array is overwritten; loaded
// fields are marked as written on the host.
func (m *Model[T]) Load(r io.Reader) (int64, error) {
	file, err := checkpoint.Read(r)
	if err != nil {
		return 0, err
	}
	mirrors := m.restartFields()
	fields := make([]checkpoint.Field, len(mirrors))
	for i, f := range mirrors {
		field, ok := file.Lookup(f.Name())
		if !ok {
			return 0, errors.Errorf("restart file has no field %s", f.Name())
		}
		if err := checkpoint.Check[T](field, f.Len()); err != nil {
			return 0, err
		}
		fields[i] = field
	}
	for i, f := range mirrors {
		if err := checkpoint.Decode(fields[i], f.Host()); err != nil {
			return 0, err
		}
		f.MarkHostWritten()
	}
	m.logger.Info("surface restart loaded", zap.Int64("iotime", file.IOTime))
	return file.IOTime, nil
}
