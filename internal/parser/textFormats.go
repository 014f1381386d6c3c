package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/plantdex/plantdex/internal/domain/docModel"
)

// parsePlainText treats the whole file as a single UTF-8 page.
func parsePlainText(data []byte, doc *docModel.ParsedDocument) error {
	if !utf8.Valid(data) {
		return perFile("text decoding", fmt.Errorf("file is not valid UTF-8"))
	}
	doc.Pages = []string{string(data)}
	doc.ExtractionMethod = docModel.ExtractTextPrimary
	return nil
}

// parseJSON flattens string leaves into "key.path: value" lines, sorted by
// key path so re-parsing the same bytes is deterministic.
func parseJSON(data []byte, doc *docModel.ParsedDocument) error {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return perFile("json parsing", err)
	}

	leaves := map[string]string{}
	flattenJSON("", root, leaves)

	paths := make([]string, 0, len(leaves))
	for path := range leaves {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var sb strings.Builder
	for _, path := range paths {
		sb.WriteString(path)
		sb.WriteString(": ")
		sb.WriteString(leaves[path])
		sb.WriteString("\n")
	}
	doc.Pages = []string{sb.String()}
	doc.ExtractionMethod = docModel.ExtractStructured
	return nil
}

func flattenJSON(prefix string, node any, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			flattenJSON(joinPath(prefix, key), child, out)
		}
	case []any:
		for i, child := range v {
			flattenJSON(joinPath(prefix, fmt.Sprintf("%d", i)), child, out)
		}
	case string:
		if strings.TrimSpace(v) != "" {
			out[prefix] = v
		}
	case float64:
		out[prefix] = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
	case bool:
		out[prefix] = fmt.Sprintf("%t", v)
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
