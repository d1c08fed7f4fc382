// SPDX-License-Identifier: Apache-2.0

package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
)

// ConsolidatedFile is the name of the eligible-school base.
const ConsolidatedFile = "base_final_consolidada.csv"

// ConsolidatedColumns is the header of ConsolidatedFile.
var ConsolidatedColumns = []string{
	"municipality_code",
	"school_code",
	"state_code",
	"municipality_name",
	"region",
	"device_active",
}

// SubsetFileName returns the download name of a threshold subset without
// extension.
func SubsetFileName(th coverage.Threshold) string {
	switch th {
	case coverage.ThresholdAll:
		return "municipios_todos"
	case coverage.Threshold100:
		return "municipios_100"
	}
	return "municipios_" + string(th) + "_mais"
}

// WriteSubsets writes one file per threshold subset into dir, rows sorted by
// state and name, and returns the written paths.
func WriteSubsets(dir string, table *coverage.Table, w Writer) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	var paths []string
	for _, th := range coverage.Thresholds() {
		rows := table.Subset(th)
		coverage.SortRows(rows)

		path := filepath.Join(dir, SubsetFileName(th)+"."+string(w.Format()))
		err := writeFile(path, func(out io.Writer) error { return w.Write(out, rows) })
		if err != nil {
			return paths, fmt.Errorf("export %s: %w", th.Label(), err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteConsolidated writes the eligible-school base to dir and returns its
// path.
func WriteConsolidated(dir string, schools []coverage.EligibleSchool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, ConsolidatedFile)
	err := writeFile(path, func(out io.Writer) error {
		cw := csv.NewWriter(out)
		if err := cw.Write(ConsolidatedColumns); err != nil {
			return err
		}
		for _, s := range schools {
			err := cw.Write([]string{
				s.Key.Municipality,
				s.Key.School,
				s.Municipality.State,
				s.Municipality.Name,
				s.Municipality.Region,
				strconv.FormatBool(s.DeviceActive),
			})
			if err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return "", fmt.Errorf("export consolidated base: %w", err)
	}
	return path, nil
}

// writeFile replaces path with what fill writes, through a temporary file
// in the same directory.
func writeFile(path string, fill func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err = fill(buf); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
