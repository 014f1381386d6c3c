package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/plantdex/plantdex/internal/domain/docModel"
)

// parseIFC walks the DATA section of a STEP-encoded IFC model. Every
// product entity becomes one IFCEntity keyed by its type; geometry and
// relationship records carry no searchable text and are skipped.
func parseIFC(data []byte, doc *docModel.ParsedDocument) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	inData := false
	var entities []docModel.IFCEntity

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.EqualFold(line, "DATA;"):
			inData = true
			continue
		case strings.EqualFold(line, "ENDSEC;"):
			inData = false
			continue
		}
		if !inData {
			continue
		}

		entity, ok := parseStepLine(line)
		if !ok {
			continue
		}
		entities = append(entities, entity)
	}
	if err := scanner.Err(); err != nil {
		return perFile("ifc scanning", err)
	}
	if len(entities) == 0 {
		return perFile("ifc parsing", fmt.Errorf("no entities in DATA section"))
	}

	doc.Entities = entities
	doc.Pages = []string{""} //IFC text lives on the entities, not pages
	doc.ExtractionMethod = docModel.ExtractStructured
	return nil
}

// skippedIfcPrefixes filters out geometry, ownership and relationship
// records that would flood the index without adding retrievable content.
var skippedIfcPrefixes = []string{
	"IFCCARTESIAN", "IFCDIRECTION", "IFCAXIS", "IFCPOLYLINE", "IFCSHAPE",
	"IFCGEOMETRIC", "IFCLOCALPLACEMENT", "IFCOWNERHISTORY", "IFCREL",
	"IFCSTYLED", "IFCPRESENTATION", "IFCPRODUCTDEFINITIONSHAPE",
}

func parseStepLine(line string) (docModel.IFCEntity, bool) {
	var entity docModel.IFCEntity

	if !strings.HasPrefix(line, "#") {
		return entity, false
	}
	eq := strings.Index(line, "=")
	open := strings.Index(line, "(")
	if eq < 0 || open < 0 || open < eq {
		return entity, false
	}

	ifcType := strings.ToUpper(strings.TrimSpace(line[eq+1 : open]))
	if !strings.HasPrefix(ifcType, "IFC") {
		return entity, false
	}
	for _, prefix := range skippedIfcPrefixes {
		if strings.HasPrefix(ifcType, prefix) {
			return entity, false
		}
	}

	args := splitStepArgs(strings.TrimSuffix(strings.TrimSpace(line[open+1:]), ");"))

	entity.Type = ifcType
	entity.Properties = map[string]string{}

	// IfcRoot attribute order: GlobalId, OwnerHistory, Name, Description.
	if len(args) > 0 {
		entity.GUID = unquoteStep(args[0])
	}
	if len(args) > 2 {
		if name := unquoteStep(args[2]); name != "" {
			entity.Properties["name"] = name
		}
	}
	if len(args) > 3 {
		if desc := unquoteStep(args[3]); desc != "" {
			entity.Properties["description"] = desc
		}
	}
	if len(args) > 4 {
		if tag := unquoteStep(args[len(args)-1]); tag != "" {
			entity.Properties["tag"] = tag
		}
	}
	if entity.GUID == "" {
		return entity, false
	}
	return entity, true
}

// splitStepArgs splits a STEP argument list at top-level commas, honoring
// quoted strings and nested parentheses.
func splitStepArgs(raw string) []string {
	var args []string
	var current strings.Builder
	depth := 0
	inString := false

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '\'':
			inString = !inString
			current.WriteByte(c)
		case inString:
			current.WriteByte(c)
		case c == '(':
			depth++
			current.WriteByte(c)
		case c == ')':
			depth--
			current.WriteByte(c)
		case c == ',' && depth == 0:
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}
	return args
}

func unquoteStep(arg string) string {
	arg = strings.TrimSpace(arg)
	if len(arg) >= 2 && arg[0] == '\'' && arg[len(arg)-1] == '\'' {
		return strings.ReplaceAll(arg[1:len(arg)-1], "''", "'")
	}
	return ""
}
