// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/conectividadeproj/conectividade-mcp/internal/dataset"
	"github.com/conectividadeproj/conectividade-mcp/internal/normalize"
)

// columnRule maps header aliases to a registry column. Aliases are compared
// in folded form with underscores read as spaces.
type columnRule struct {
	column  string
	aliases []string
}

const columnCode = "co_municipio"

var columnRules = []columnRule{
	{column: columnCode, aliases: []string{"CO MUNICIPIO", "COD MUNICIPIO", "CODIGO MUNICIPIO", "CODIGO DO MUNICIPIO", "CO MUN", "COD IBGE", "CODIGO IBGE"}},
	{column: "uf", aliases: []string{"UF", "SG UF", "SIGLA UF", "ESTADO"}},
	{column: "municipio", aliases: []string{"MUNICIPIO", "NO MUNICIPIO", "NOME MUNICIPIO", "NOME DO MUNICIPIO"}},
	{column: "regiao", aliases: []string{"REGIAO", "NO REGIAO", "NOME REGIAO"}},
}

// Config locates the registry file.
type Config struct {
	Path  string
	Sheet string
	// KeyWidth is the zero-padding width of municipality codes.
	KeyWidth int
}

// Loader reads and canonicalizes the registry.
type Loader struct {
	config  Config
	readers []Reader
	logger  *zap.Logger
}

// NewLoader creates a Loader. Without explicit readers the XLSX and CSV
// readers are registered.
func NewLoader(cfg Config, logger *zap.Logger, readers ...Reader) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(readers) == 0 {
		readers = []Reader{NewXLSXReader(cfg.Sheet), NewCSVReader()}
	}
	return &Loader{config: cfg, readers: readers, logger: logger.Named("registry")}
}

// Load reads the registry file, canonicalizes the key column and
// deduplicates by it.
func (l *Loader) Load(ctx context.Context) (*Registry, error) {
	path := l.config.Path
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("registry: stat %s: %w", path, err)
	}

	reader, err := l.selectReader(path)
	if err != nil {
		return nil, err
	}
	rows, err := reader.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("registry: reader %q failed: %w", reader.Name(), err)
	}

	reg, err := build(path, rows, l.config.KeyWidth)
	if err != nil {
		return nil, err
	}

	l.logger.Info("registry loaded",
		zap.String("path", path),
		zap.String("reader", reader.Name()),
		zap.Int("municipalities", reg.Len()),
		zap.Int("duplicates", reg.Duplicates),
		zap.Int("dropped", reg.Dropped))
	if reg.Dropped > 0 {
		l.logger.Warn("registry rows without a usable municipality code", zap.Int("rows", reg.Dropped))
	}
	return reg, nil
}

func (l *Loader) selectReader(path string) (Reader, error) {
	for _, r := range l.readers {
		if r.CanHandle(path) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("registry: unsupported file format for %q", path)
}

func build(path string, rows [][]string, keyWidth int) (*Registry, error) {
	if len(rows) == 0 {
		return nil, &SchemaError{Path: path, Column: columnCode}
	}
	header := rows[0]
	idx := indexColumns(header)
	if _, ok := idx[columnCode]; !ok {
		return nil, &SchemaError{Path: path, Column: columnCode, Header: header}
	}

	reg := &Registry{entries: make(map[string]Entry, len(rows)-1)}
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		reg.add(Entry{
			Code:   dataset.MunicipalityKey(cell(row, idx, columnCode), keyWidth),
			State:  strings.ToUpper(cell(row, idx, "uf")),
			Name:   cell(row, idx, "municipio"),
			Region: cell(row, idx, "regiao"),
		})
	}
	return reg, nil
}

func headerKey(h string) string {
	return strings.TrimSpace(strings.ReplaceAll(normalize.Fold(h), "_", " "))
}

func indexColumns(header []string) map[string]int {
	idx := map[string]int{}
	for i, h := range header {
		key := headerKey(h)
		for _, rule := range columnRules {
			if _, taken := idx[rule.column]; taken {
				continue
			}
			for _, alias := range rule.aliases {
				if key == alias {
					idx[rule.column] = i
					break
				}
			}
		}
	}
	return idx
}

func cell(row []string, idx map[string]int, column string) string {
	i, ok := idx[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
