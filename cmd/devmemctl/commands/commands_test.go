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

package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gx-org/devmem/backend/platform"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRoot()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestInfo(t *testing.T) {
	out, err := execute(t, "info")
	if err != nil {
		t.Fatalf("info: %v\n%s", err, out)
	}
	for _, want := range []string{"Device runtime", "backend", platform.Name(), "accelerated", "peak"} {
		if !strings.Contains(out, want) {
			t.Errorf("info output does not contain %q:\n%s", want, out)
		}
	}
}

func TestRoundTripEmpty(t *testing.T) {
	out, err := execute(t, "roundtrip", "--sizes", "0")
	if err != nil {
		t.Fatalf("roundtrip: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ok") {
		t.Errorf("roundtrip output does not report success:\n%s", out)
	}
	if got := platform.LiveAllocations(); got != 0 {
		t.Errorf("%d allocations left after roundtrip", got)
	}
}

func TestMissingConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := execute(t, "--config", path, "info"); err == nil {
		t.Errorf("info succeeded with a missing config file")
	}
}

func TestInvalidLogLevel(t *testing.T) {
	var out bytes.Buffer
	root := NewRoot()
	root.SetOut(&out)
	root.SetArgs([]string{"--log-level", "loud", "info"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("got error %v, want an invalid log level", err)
	}
}

func TestHumanSize(t *testing.T) {
	tests := map[uint64]string{
		0:             "0 B",
		1023:          "1023 B",
		4096:          "4.00 KiB",
		10_000_000:    "9.54 MiB",
		3 << 30:       "3.00 GiB",
		5 << 40:       "5.00 TiB",
		uint64(1<<50): "1024.00 TiB",
	}
	for n, want := range tests {
		if got := humanSize(n); got != want {
			t.Errorf("humanSize(%d) = %q, want %q", n, got, want)
		}
	}
}
