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
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			PaddingRight(2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			PaddingRight(2)

	cellStyle = lipgloss.NewStyle().
			PaddingRight(2)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

// humanSize formats a byte count with a binary unit.
func humanSize(n uint64) string {
	val := float64(n)
	units := []string{"B", "KiB", "MiB", "GiB", "TiB"}
	i := 0
	for val >= 1024 && i < len(units)-1 {
		val /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.2f %s", val, units[i])
}

// renderPairs writes a titled list of label/value pairs.
func renderPairs(w io.Writer, title string, pairs [][2]string) error {
	labels := make([]string, len(pairs))
	values := make([]string, len(pairs))
	for i, p := range pairs {
		labels[i] = p[0]
		values[i] = p[1]
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		labelStyle.Render(strings.Join(labels, "\n")),
		strings.Join(values, "\n"),
	)
	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), body))
	return err
}

// renderTable writes a titled table. Columns are aligned on their widest cell.
func renderTable(w io.Writer, title string, header []string, rows [][]string) error {
	columns := make([]string, len(header))
	for c, h := range header {
		cells := []string{headerStyle.Render(h)}
		for _, row := range rows {
			cells = append(cells, cellStyle.Render(row[c]))
		}
		columns[c] = lipgloss.JoinVertical(lipgloss.Left, cells...)
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, columns...)
	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), body))
	return err
}
