package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatTable renders Tabular values as an aligned table (default).
	FormatTable OutputFormat = "table"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
	// FormatYAML is YAML output.
	FormatYAML OutputFormat = "yaml"
	// FormatCSV renders Tabular values as CSV.
	FormatCSV OutputFormat = "csv"
)

// Formats lists the accepted --output values.
var Formats = []OutputFormat{FormatTable, FormatJSON, FormatYAML, FormatCSV}

// Tabular is implemented by results that can be shown as rows.
type Tabular interface {
	Header() []string
	Rows() [][]string
}

// Formatter formats command output.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// TableFormatter renders Tabular values with tablewriter. Other values are
// printed with %v.
type TableFormatter struct{}

// Format converts data to table format.
func (f *TableFormatter) Format(data any) ([]byte, error) {
	var sb strings.Builder
	if err := f.FormatTo(&sb, data); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// FormatTo writes data to w as a table.
func (f *TableFormatter) FormatTo(w io.Writer, data any) error {
	tab, ok := data.(Tabular)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	table := tablewriter.NewWriter(w)
	header := make([]any, 0, len(tab.Header()))
	for _, h := range tab.Header() {
		header = append(header, h)
	}
	table.Header(header...)
	for _, row := range tab.Rows() {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("append table row: %w", err)
		}
	}
	return table.Render()
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON format.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	if f.Indent {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// YAMLFormatter formats output as YAML. Keys follow the json tags of data so
// both formats agree on field names.
type YAMLFormatter struct{}

// Format converts data to YAML format.
func (f *YAMLFormatter) Format(data any) ([]byte, error) {
	var sb strings.Builder
	if err := f.FormatTo(&sb, data); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// FormatTo writes data to writer in YAML format.
func (f *YAMLFormatter) FormatTo(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	// JSON is valid YAML; decoding into a node keeps the field order.
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return err
	}
	blockStyle(&node)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(&node); err != nil {
		return err
	}
	return encoder.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, child := range n.Content {
		blockStyle(child)
	}
}

// CSVFormatter formats Tabular values as CSV.
type CSVFormatter struct {
	// OmitHeader skips the header record.
	OmitHeader bool
}

// Format converts data to CSV format.
func (f *CSVFormatter) Format(data any) ([]byte, error) {
	var sb strings.Builder
	if err := f.FormatTo(&sb, data); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// FormatTo writes data to writer in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	tab, ok := data.(Tabular)
	if !ok {
		return fmt.Errorf("csv output is not supported for %T", data)
	}

	csvWriter := csv.NewWriter(w)
	if !f.OmitHeader {
		if err := csvWriter.Write(tab.Header()); err != nil {
			return err
		}
	}
	if err := csvWriter.WriteAll(tab.Rows()); err != nil {
		return err
	}
	return csvWriter.Error()
}

// ParseFormat validates an --output value.
func ParseFormat(s string) (OutputFormat, error) {
	if s == "" {
		return FormatTable, nil
	}
	format := OutputFormat(strings.ToLower(s))
	for _, known := range Formats {
		if format == known {
			return format, nil
		}
	}
	return "", NewUsageError("output", fmt.Sprintf("unknown format %q (want table, json, yaml or csv)", s))
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch format {
	case FormatTable, "":
		return &TableFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{Indent: true}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatCSV:
		return &CSVFormatter{}, nil
	default:
		return nil, NewUsageError("output", fmt.Sprintf("unknown format %q", format))
	}
}
