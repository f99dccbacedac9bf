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

// Package surface mirrors the diagnostic fields of a surface-layer model
// on the device.
//
// The model owns one host array per field and, while the device is prepared,
// one device buffer per field. It decides which fields to transfer and when:
//
//	m.Init()
//	m.PrepareDevice()       // allocate and push every field
//	for each step {
//	    m.ForwardDevice()   // push fields written on the host
//	    m.Exec(solver)      // solver writes in device memory
//	    m.BackwardDevice()  // pull fields written on the device
//	}
//	m.ClearDevice()
//
// The similarity solver itself is not part of this package.
package surface

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/devmem/backend/platform"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Field names.
const (
	Z0m   = "z0m"
	Z0h   = "z0h"
	Obuk  = "obuk"
	Ustar = "ustar"
	Dudz  = "dudz_mo"
	Dvdz  = "dvdz_mo"
	Dbdz  = "dbdz_mo"
	ZL    = "zL_sl"
	F     = "f_sl"
	Nobuk = "nobuk"
)

// Float is the floating point type of the model fields.
type Float interface {
	float32 | float64
}

// Grid is the horizontal extent of the surface fields, ghost cells included.
type Grid struct {
	ICells, JCells int
}

// Cells returns the number of surface cells.
func (g Grid) Cells() int {
	return g.ICells * g.JCells
}

// LookupTable fills the similarity lookup tables used by the solver.
type LookupTable interface {
	Fill(zL, f []float32)
}

// LinearLookup spaces zL uniformly over [Min, Max] and sets f to zL.
type LinearLookup struct {
	Min, Max float32
}

// Fill the tables.
func (l LinearLookup) Fill(zL, f []float32) {
	n := len(zL)
	for i := range zL {
		zL[i] = l.Min
		if n > 1 {
			zL[i] += (l.Max - l.Min) * float32(i) / float32(n-1)
		}
	}
	copy(f, zL)
}

// Options of the model.
type Options struct {
	// Z0m and Z0h are the roughness lengths for momentum and heat (m).
	Z0m, Z0h float64
	// Ustar is the fixed friction velocity (m/s).
	Ustar float64
	// ConstantZ0 is true if the roughness lengths never change during a run.
	// Non-constant roughness lengths are written to restart files.
	ConstantZ0 bool
	// LookupSize is the number of entries of the lookup tables.
	LookupSize int
	// Lookup fills the lookup tables. Defaults to LinearLookup{-5, 10}.
	Lookup LookupTable
}

// DeviceFields are the device buffers handed to a solver.
type DeviceFields struct {
	Grid       Grid
	LookupSize int

	Z0m, Z0h, Obuk, Ustar *platform.Buffer
	Dudz, Dvdz, Dbdz      *platform.Buffer
	// ZL and F are float32 lookup tables, Nobuk holds one int32 per cell.
	ZL, F, Nobuk *platform.Buffer
}

// DeviceSolver computes the surface layer in device memory.
type DeviceSolver interface {
	Solve(*DeviceFields) error
}

// SolverFunc adapts a function to a DeviceSolver.
type SolverFunc func(*DeviceFields) error

// Solve calls f.
func (f SolverFunc) Solve(fields *DeviceFields) error {
	return f(fields)
}

// Model is the surface-layer model with its mirrored fields.
type Model[T Float] struct {
	grid   Grid
	opts   Options
	logger *zap.Logger

	z0m, z0h, obuk, ustar *Mirror[T]
	dudz, dvdz, dbdz      *Mirror[T]
	zL, f                 *Mirror[float32]
	nobuk                 *Mirror[int32]

	fields   []Field
	onDevice bool
}

// New returns a model with its host fields allocated.
func New[T Float](grid Grid, opts Options, logger *zap.Logger) (*Model[T], error) {
	if grid.ICells <= 0 || grid.JCells <= 0 {
		return nil, errors.Errorf("invalid surface grid %dx%d", grid.ICells, grid.JCells)
	}
	if opts.LookupSize < 2 {
		return nil, errors.Errorf("lookup tables need at least 2 entries, got %d", opts.LookupSize)
	}
	if opts.Lookup == nil {
		opts.Lookup = LinearLookup{Min: -5, Max: 10}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	n := grid.Cells()
	m := &Model[T]{
		grid:   grid,
		opts:   opts,
		logger: logger,
		z0m:    NewMirror[T](Z0m, "m", n),
		z0h:    NewMirror[T](Z0h, "m", n),
		obuk:   NewMirror[T](Obuk, "m", n),
		ustar:  NewMirror[T](Ustar, "m s-1", n),
		dudz:   NewMirror[T](Dudz, "s-1", n),
		dvdz:   NewMirror[T](Dvdz, "s-1", n),
		dbdz:   NewMirror[T](Dbdz, "s-2", n),
		zL:     NewMirror[float32](ZL, "-", opts.LookupSize),
		f:      NewMirror[float32](F, "-", opts.LookupSize),
		nobuk:  NewMirror[int32](Nobuk, "-", n),
	}
	m.fields = []Field{m.z0m, m.z0h, m.obuk, m.ustar, m.dudz, m.dvdz, m.dbdz, m.zL, m.f, m.nobuk}
	return m, nil
}

// Grid of the surface fields.
func (m *Model[T]) Grid() Grid { return m.grid }

// Fields returns every mirrored field.
func (m *Model[T]) Fields() []Field { return m.fields }

// Field returns the field with the given name.
func (m *Model[T]) Field(name string) (Field, bool) {
	for _, f := range m.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// OnDevice returns true between PrepareDevice and ClearDevice.
func (m *Model[T]) OnDevice() bool { return m.onDevice }

// Host copies of the fields.
func (m *Model[T]) Z0m() []T   { return m.z0m.Host() }
func (m *Model[T]) Z0h() []T   { return m.z0h.Host() }
func (m *Model[T]) Obuk() []T  { return m.obuk.Host() }
func (m *Model[T]) Ustar() []T { return m.ustar.Host() }
func (m *Model[T]) Dudz() []T  { return m.dudz.Host() }
func (m *Model[T]) Dvdz() []T  { return m.dvdz.Host() }
func (m *Model[T]) Dbdz() []T  { return m.dbdz.Host() }

// Device copies of the fields read by other components.
func (m *Model[T]) Z0mDevice() *platform.Buffer  { return m.z0m.Device() }
func (m *Model[T]) DudzDevice() *platform.Buffer { return m.dudz.Device() }
func (m *Model[T]) DvdzDevice() *platform.Buffer { return m.dvdz.Device() }
func (m *Model[T]) DbdzDevice() *platform.Buffer { return m.dbdz.Device() }

func fill[T dtype.AlgebraType](values []T, v T) {
	for i := range values {
		values[i] = v
	}
}

// Init sets the initial values of the host fields.
func (m *Model[T]) Init() {
	fill(m.z0m.Host(), T(m.opts.Z0m))
	fill(m.z0h.Host(), T(m.opts.Z0h))
	fill(m.ustar.Host(), T(m.opts.Ustar))
	fill(m.obuk.Host(), 0)
	fill(m.dudz.Host(), 0)
	fill(m.dvdz.Host(), 0)
	fill(m.dbdz.Host(), 0)
	fill(m.nobuk.Host(), 0)
	m.opts.Lookup.Fill(m.zL.Host(), m.f.Host())
	for _, f := range m.fields {
		f.MarkHostWritten()
	}
}

// PrepareDevice allocates every field on the device and copies the host values.
// On failure, the fields already allocated are released.
func (m *Model[T]) PrepareDevice() error {
	var total uint64
	for _, f := range m.fields {
		if err := f.Allocate(); err != nil {
			return multierr.Append(err, m.ClearDevice())
		}
		total += f.ByteSize()
	}
	m.onDevice = true
	m.logger.Info("surface fields allocated on the device",
		zap.Int("fields", len(m.fields)),
		zap.Uint64("bytes", total),
	)
	if err := m.ForwardDevice(); err != nil {
		return multierr.Append(err, m.ClearDevice())
	}
	return nil
}

// ForwardDevice pushes the fields written on the host since the last transfer.
func (m *Model[T]) ForwardDevice() error {
	if !m.onDevice {
		return errors.New("surface fields are not on the device")
	}
	for _, f := range m.fields {
		if f.State() != HostNewer {
			continue
		}
		if err := f.Push(); err != nil {
			return err
		}
		m.logger.Debug("pushed field", zap.String("field", f.Name()), zap.Uint64("bytes", f.ByteSize()))
	}
	return nil
}

// Exec runs the solver on the device fields and records its outputs as
// written on the device.
func (m *Model[T]) Exec(solver DeviceSolver) error {
	if !m.onDevice {
		return errors.New("surface fields are not on the device")
	}
	if err := solver.Solve(m.deviceFields()); err != nil {
		return errors.WithMessage(err, "surface solver failed")
	}
	for _, f := range []Field{m.obuk, m.ustar, m.dudz, m.dvdz, m.dbdz, m.nobuk} {
		f.MarkDeviceWritten()
	}
	return nil
}

func (m *Model[T]) deviceFields() *DeviceFields {
	return &DeviceFields{
		Grid:       m.grid,
		LookupSize: m.opts.LookupSize,
		Z0m:        m.z0m.Device(),
		Z0h:        m.z0h.Device(),
		Obuk:       m.obuk.Device(),
		Ustar:      m.ustar.Device(),
		Dudz:       m.dudz.Device(),
		Dvdz:       m.dvdz.Device(),
		Dbdz:       m.dbdz.Device(),
		ZL:         m.zL.Device(),
		F:          m.f.Device(),
		Nobuk:      m.nobuk.Device(),
	}
}

// BackwardDevice pulls the fields written on the device since the last transfer.
func (m *Model[T]) BackwardDevice() error {
	if !m.onDevice {
		return errors.New("surface fields are not on the device")
	}
	for _, f := range m.fields {
		if f.State() != DeviceNewer {
			continue
		}
		if err := f.Pull(); err != nil {
			return err
		}
		m.logger.Debug("pulled field", zap.String("field", f.Name()), zap.Uint64("bytes", f.ByteSize()))
	}
	return nil
}

// ClearDevice releases the device buffers of every field.
// Every field is released even if some releases fail.
func (m *Model[T]) ClearDevice() error {
	var err error
	for _, f := range m.fields {
		if f.Device() == nil {
			continue
		}
		if f.State() == DeviceNewer {
			m.logger.Warn("releasing device field holding values never pulled", zap.String("field", f.Name()))
		}
		err = multierr.Append(err, f.Release())
	}
	m.onDevice = false
	return err
}
