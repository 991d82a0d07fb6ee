package cmd

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/trackscope-cli/internal/utils"
)

// normalizeFormat maps user input to md, json or yaml.
func normalizeFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return "md", nil
	case "json":
		return "json", nil
	case "yaml", "yml":
		return "yaml", nil
	}
	return "", fmt.Errorf("unsupported --format: %s (use md|json|yaml)", s)
}

type markdowner interface {
	Markdown() string
}

// render serializes v in the requested format.
func render(v markdowner, format string) ([]byte, error) {
	switch format {
	case "json":
		return utils.PrettyJSON(v)
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return b, nil
	default:
		return []byte(v.Markdown()), nil
	}
}

// emit writes data to path, or to w when path is empty.
func emit(w io.Writer, data []byte, path string, quiet bool) error {
	if path == "" {
		_, err := fmt.Fprintln(w, strings.TrimRight(string(data), "\n"))
		return err
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if !quiet {
		fmt.Fprintf(w, "✓ Wrote analysis to %s\n", path)
	}
	return nil
}
