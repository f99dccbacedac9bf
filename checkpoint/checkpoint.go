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

// Package checkpoint reads and writes restart files of named host fields.
//
// A file is a protobuf message:
//
//	message File {
//	  int64 iotime = 1;
//	  repeated Field fields = 2;
//	}
//	message Field {
//	  string name = 1;
//	  uint32 kind = 2;  // GX data type
//	  bytes data = 3;  // raw elements in host byte order
//	}
package checkpoint

import (
	"io"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/devmem"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fileIOTime protowire.Number = 1
	fileFields protowire.Number = 2

	fieldName protowire.Number = 1
	fieldKind protowire.Number = 2
	fieldData protowire.Number = 3
)

// Field is a named array of elements.
type Field struct {
	Name string
	Kind dtype.DataType
	Data []byte
}

// FieldOf returns a field holding a copy of values.
func FieldOf[T devmem.Supported](name string, values []T) Field {
	kind := dtype.Generic[T]()
	field := Field{Name: name, Kind: kind}
	if len(values) > 0 {
		field.Data = make([]byte, len(values)*dtype.Sizeof(kind))
		copy(dtype.ToSlice[T](field.Data), values)
	}
	return field
}

func validKind(k dtype.DataType) bool {
	return dtype.IsAlgebra(k) || dtype.IsNonAlgebra(k)
}

// Len returns the number of elements in the field.
func (f Field) Len() int {
	if !validKind(f.Kind) {
		return 0
	}
	return len(f.Data) / dtype.Sizeof(f.Kind)
}

// Check returns an error if f cannot be decoded into n elements of type T.
func Check[T devmem.Supported](f Field, n int) error {
	want := dtype.Generic[T]()
	if f.Kind != want {
		return errors.Errorf("field %s holds %s elements, not %s", f.Name, f.Kind, want)
	}
	if len(f.Data) != n*dtype.Sizeof(want) {
		return errors.Errorf("field %s has %d elements, destination has %d", f.Name, f.Len(), n)
	}
	return nil
}

// Decode copies the elements of f into dst.
// The kind of f must be the kind of T and the lengths must match.
func Decode[T devmem.Supported](f Field, dst []T) error {
	if err := Check[T](f, len(dst)); err != nil {
		return err
	}
	if len(dst) > 0 {
		copy(dst, dtype.ToSlice[T](f.Data))
	}
	return nil
}

// File is the content of a restart file.
type File struct {
	IOTime int64
	Fields []Field
}

// Lookup returns the field with the given name.
func (f *File) Lookup(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Marshal encodes the file.
func (f *File) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fileIOTime, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.IOTime))
	for _, field := range f.Fields {
		var fb []byte
		fb = protowire.AppendTag(fb, fieldName, protowire.BytesType)
		fb = protowire.AppendString(fb, field.Name)
		fb = protowire.AppendTag(fb, fieldKind, protowire.VarintType)
		fb = protowire.AppendVarint(fb, uint64(field.Kind))
		fb = protowire.AppendTag(fb, fieldData, protowire.BytesType)
		fb = protowire.AppendBytes(fb, field.Data)

		b = protowire.AppendTag(b, fileFields, protowire.BytesType)
		b = protowire.AppendBytes(b, fb)
	}
	return b
}

// Unmarshal decodes a file. Unknown fields are skipped.
func Unmarshal(b []byte) (*File, error) {
	f := &File{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(protowire.ParseError(n), "cannot decode checkpoint")
		}
		b = b[n:]
		switch {
		case num == fileIOTime && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(protowire.ParseError(n), "cannot decode checkpoint time")
			}
			f.IOTime = int64(v)
			b = b[n:]
		case num == fileFields && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.Wrap(protowire.ParseError(n), "cannot decode checkpoint field")
			}
			field, err := unmarshalField(v)
			if err != nil {
				return nil, err
			}
			f.Fields = append(f.Fields, field)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrap(protowire.ParseError(n), "cannot skip unknown checkpoint field")
			}
			b = b[n:]
		}
	}
	return f, nil
}

func unmarshalField(b []byte) (Field, error) {
	var field Field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Field{}, errors.Wrap(protowire.ParseError(n), "cannot decode field")
		}
		b = b[n:]
		switch {
		case num == fieldName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return Field{}, errors.Wrap(protowire.ParseError(n), "cannot decode field name")
			}
			field.Name = v
			b = b[n:]
		case num == fieldKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Field{}, errors.Wrap(protowire.ParseError(n), "cannot decode field kind")
			}
			if v >= dtype.MaxDataType {
				return Field{}, errors.Errorf("field %q has invalid kind %d", field.Name, v)
			}
			field.Kind = dtype.DataType(v)
			b = b[n:]
		case num == fieldData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Field{}, errors.Wrap(protowire.ParseError(n), "cannot decode field data")
			}
			field.Data = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Field{}, errors.Wrap(protowire.ParseError(n), "cannot skip unknown field")
			}
			b = b[n:]
		}
	}
	if !validKind(field.Kind) {
		return Field{}, errors.Errorf("field %q has invalid kind %s", field.Name, field.Kind)
	}
	if len(field.Data)%dtype.Sizeof(field.Kind) != 0 {
		return Field{}, errors.Errorf("field %q: %d bytes is not a whole number of %s elements", field.Name, len(field.Data), field.Kind)
	}
	return field, nil
}

// Write writes a restart file holding fields at time iotime.
func Write(w io.Writer, iotime int64, fields ...Field) error {
	f := &File{IOTime: iotime, Fields: fields}
	if _, err := w.Write(f.Marshal()); err != nil {
		return errors.Wrap(err, "cannot write checkpoint")
	}
	return nil
}

// Read reads a restart file.
func Read(r io.Reader) (*File, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read checkpoint")
	}
	return Unmarshal(b)
}
