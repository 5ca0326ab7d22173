package convert

import (
	"bytes"
	"context"
	"embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"fileconv/internal/deps"
	"fileconv/internal/runner"
	"fileconv/internal/services"
)

//go:embed scripts/*.py
var scripts embed.FS

// exitMissingModule is returned by the embedded scripts when a python
// dependency cannot be imported.
const exitMissingModule = 3

// runScript writes the named embedded script to scratch and runs it. It
// reports ok=false when python or one of the script's modules is missing.
func (tk *Toolkit) runScript(ctx context.Context, name, scratch string, args ...string) (bool, error) {
	tool, ok, err := tk.optional(ctx, deps.Python)
	if err != nil || !ok {
		return false, err
	}
	body, err := scripts.ReadFile("scripts/" + name)
	if err != nil {
		return false, err
	}
	path := filepath.Join(scratch, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return false, services.Wrap(services.ErrStorage, "convert", name, "write script", err)
	}
	_, err = tool.Run(ctx, append([]string{path}, args...), runner.Options{Dir: scratch})
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == exitMissingModule {
		return false, nil
	}
	return err == nil, err
}

func (tk *Toolkit) convertCSVToJSON(ctx context.Context, in Input, outputDir string) ([]string, error) {
	pair := in.Recipe.Pair()
	dest := filepath.Join(outputDir, in.Base()+".json")
	scratch, cleanup, err := scratchDir(outputDir, "python")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ok, err := tk.runScript(ctx, "csv_to_json.py", scratch, in.Path, dest)
	if err != nil {
		return nil, err
	}
	if ok {
		return []string{dest}, requireOutput(pair, dest)
	}

	tk.fallingBack(ctx, deps.Python, "encoding/csv")
	src, err := os.Open(in.Path)
	if err != nil {
		return nil, storageErr(pair, "open input", err)
	}
	defer src.Close()
	data, err := csvToJSON(src)
	if err != nil {
		return nil, invalid(pair, "The CSV file could not be parsed.", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return nil, storageErr(pair, "write output", err)
	}
	return []string{dest}, nil
}

// record keeps header order when marshaled.
type record struct {
	keys   []string
	values []*string
}

func (r record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// csvToJSON maps each row onto the header row. Short rows get null for the
// missing columns; cells beyond the header are dropped.
func csvToJSON(r io.Reader) ([]byte, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []byte("[]"), nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	records := []record{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec := record{keys: header, values: make([]*string, len(header))}
		for i := range header {
			if i < len(row) {
				cell := row[i]
				rec.values[i] = &cell
			}
		}
		records = append(records, rec)
	}

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return bytes.TrimRight(out.Bytes(), "\n"), nil
}

func (tk *Toolkit) extractTables(ctx context.Context, in Input, outputDir string) ([]string, error) {
	pair := in.Recipe.Pair()
	format := in.Recipe.OutputFormat
	if _, err := pageCount(pair, in.Path); err != nil {
		return nil, err
	}
	dest := filepath.Join(outputDir, in.Base()+"."+format)
	scratch, cleanup, err := scratchDir(outputDir, "python")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ok, err := tk.runScript(ctx, "pdf_to_tables.py", scratch, in.Path, dest)
	if err != nil {
		return nil, err
	}
	if ok {
		return []string{dest}, requireOutput(pair, dest)
	}

	tk.fallingBack(ctx, deps.Python, "layout text columns")
	text, err := tk.extractText(ctx, pair, in.Path)
	if err != nil {
		return nil, err
	}
	if err := writeTable(dest, format, splitColumns(text)); err != nil {
		return nil, storageErr(pair, "write "+format, err)
	}
	return []string{dest}, nil
}
