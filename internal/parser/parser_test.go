package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/domain/faults"
	"github.com/plantdex/plantdex/internal/parser/ocr"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMimeForPath(t *testing.T) {
	cases := map[string]string{
		"a/b/report.PDF": "application/pdf",
		"spec.docx":      "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"notes.txt":      "text/plain",
		"readme.md":      "text/plain",
		"bom.json":       "application/json",
		"model.ifc":      "model/ifc",
		"letter.rtf":     "application/rtf",
		"image.png":      "",
		"noextension":    "",
	}
	for path, want := range cases {
		if got := MimeForPath(path); got != want {
			t.Errorf("MimeForPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestInferDocNoRev(t *testing.T) {
	cases := []struct {
		path, docNo, rev string
	}{
		{"PLX-100-P01_revB.pdf", "PLX-100-P01", "B"},
		{"PLX-100-P01_rev_2.pdf", "PLX-100-P01", "2"},
		{"PLX-100-P01 Rev C.docx", "PLX-100-P01", "C"},
		{"pump-spec.pdf", "pump-spec", "0"},
	}
	for _, tc := range cases {
		docNo, rev := inferDocNoRev(tc.path)
		if docNo != tc.docNo || rev != tc.rev {
			t.Errorf("inferDocNoRev(%q) = %q/%q, want %q/%q",
				tc.path, docNo, rev, tc.docNo, tc.rev)
		}
	}
}

func TestClassifyDocType(t *testing.T) {
	cases := []struct {
		path, mime string
		want       docModel.DocType
	}{
		{"unit100-pfd_revA.pdf", "application/pdf", docModel.DocTypePFD},
		{"PID-200.pdf", "application/pdf", docModel.DocTypePID},
		{"project-bom.json", "application/json", docModel.DocTypeBOM},
		{"pump-spec.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", docModel.DocTypeSpec},
		{"model.ifc", "model/ifc", docModel.DocTypeIFC},
		{"monthly-notes.txt", "text/plain", docModel.DocTypeReport},
	}
	for _, tc := range cases {
		if got := classifyDocType(tc.path, tc.mime); got != tc.want {
			t.Errorf("classifyDocType(%q) = %s, want %s", tc.path, got, tc.want)
		}
	}
}

func TestParse_PlainText(t *testing.T) {
	p := New(ocr.NewRunner(""))
	path := writeTestFile(t, "PLX-100-P01_revB.txt", "Центробежный насос Н-101.")

	doc, err := p.Parse(context.Background(), path, "text/plain")
	if err != nil {
		t.Fatal(err)
	}
	if doc.DocNo != "PLX-100-P01" || doc.Rev != "B" {
		t.Errorf("doc no/rev = %s/%s", doc.DocNo, doc.Rev)
	}
	if doc.PageCount != 1 || !strings.Contains(doc.Pages[0], "насос") {
		t.Errorf("pages = %#v", doc.Pages)
	}
	if doc.SourceHash == "" {
		t.Error("source hash not computed")
	}
	if doc.ExtractionMethod != docModel.ExtractTextPrimary {
		t.Errorf("extraction method = %s", doc.ExtractionMethod)
	}
}

func TestParse_InvalidUTF8IsPerFile(t *testing.T) {
	p := New(ocr.NewRunner(""))
	path := writeTestFile(t, "broken.txt", string([]byte{0xff, 0xfe, 0xfd}))

	_, err := p.Parse(context.Background(), path, "text/plain")
	if err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
	if faults.KindOf(err) != faults.KindPerFile {
		t.Errorf("fault kind = %s, want %s", faults.KindOf(err), faults.KindPerFile)
	}
}

func TestParse_UnknownMimeIsInput(t *testing.T) {
	p := New(ocr.NewRunner(""))
	path := writeTestFile(t, "image.png", "not really a png")

	_, err := p.Parse(context.Background(), path, "")
	if err == nil {
		t.Fatal("expected error for unknown mime")
	}
	if faults.KindOf(err) != faults.KindInput {
		t.Errorf("fault kind = %s, want %s", faults.KindOf(err), faults.KindInput)
	}
}

func TestParse_JSONDeterministic(t *testing.T) {
	p := New(ocr.NewRunner(""))
	content := `{"pump":{"name":"Н-101","flow":50.5,"standby":true},"tags":["process","bom"]}`
	path := writeTestFile(t, "project-bom.json", content)

	first, err := p.Parse(context.Background(), path, "application/json")
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Parse(context.Background(), path, "application/json")
	if err != nil {
		t.Fatal(err)
	}
	if first.Pages[0] != second.Pages[0] {
		t.Error("json flattening must be deterministic")
	}
	for _, want := range []string{"pump.name: Н-101", "pump.flow: 50.5", "pump.standby: true", "tags.0: process"} {
		if !strings.Contains(first.Pages[0], want) {
			t.Errorf("flattened output missing %q:\n%s", want, first.Pages[0])
		}
	}
	if first.DocType != docModel.DocTypeBOM {
		t.Errorf("doc type = %s", first.DocType)
	}
}

const ifcFixture = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION((''),'2;1');
ENDSEC;
DATA;
#1=IFCPROJECT('2O2Fr$t4X7Zf8NOew3FNr2',#2,'Plant Alpha',$,$,$,$,(#20),#7);
#2=IFCOWNERHISTORY(#3,#4,$,.ADDED.,$,$,$,0);
#10=IFCCARTESIANPOINT((0.,0.,0.));
#30=IFCPUMP('1kTvXnbbzCWw8lcMd1dR4o',#2,'H-101','Centrifugal pump',$,#31,#32,'H-101');
#40=IFCRELAGGREGATES('3vB2YO$MX4xv5uCqZZG05x',#2,$,$,#1,(#30));
ENDSEC;
END-ISO-10303-21;
`

func TestParse_IFC(t *testing.T) {
	p := New(ocr.NewRunner(""))
	path := writeTestFile(t, "model.ifc", ifcFixture)

	doc, err := p.Parse(context.Background(), path, "model/ifc")
	if err != nil {
		t.Fatal(err)
	}
	if doc.DocType != docModel.DocTypeIFC {
		t.Errorf("doc type = %s", doc.DocType)
	}
	// geometry, owner history and relationship records are filtered
	if len(doc.Entities) != 2 {
		t.Fatalf("entities = %d, want 2: %+v", len(doc.Entities), doc.Entities)
	}

	pump := doc.Entities[1]
	if pump.Type != "IFCPUMP" {
		t.Errorf("type = %s", pump.Type)
	}
	if pump.GUID != "1kTvXnbbzCWw8lcMd1dR4o" {
		t.Errorf("guid = %s", pump.GUID)
	}
	if pump.Properties["name"] != "H-101" {
		t.Errorf("name = %q", pump.Properties["name"])
	}
	if pump.Properties["description"] != "Centrifugal pump" {
		t.Errorf("description = %q", pump.Properties["description"])
	}
	if pump.Properties["tag"] != "H-101" {
		t.Errorf("tag = %q", pump.Properties["tag"])
	}
}

func TestParse_IFCNoEntities(t *testing.T) {
	p := New(ocr.NewRunner(""))
	path := writeTestFile(t, "empty.ifc", "ISO-10303-21;\nDATA;\nENDSEC;\n")

	_, err := p.Parse(context.Background(), path, "model/ifc")
	if err == nil {
		t.Fatal("expected error for model without entities")
	}
	if faults.KindOf(err) != faults.KindPerFile {
		t.Errorf("fault kind = %s", faults.KindOf(err))
	}
}

func TestSplitStepArgs(t *testing.T) {
	args := splitStepArgs(`'guid',#2,'Name, with comma',$,(#3,#4),'it''s'`)
	want := []string{"'guid'", "#2", "'Name, with comma'", "$", "(#3,#4)", "'it''s'"}
	if len(args) != len(want) {
		t.Fatalf("args = %#v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, args[i], want[i])
		}
	}
	if got := unquoteStep(args[2]); got != "Name, with comma" {
		t.Errorf("unquoteStep = %q", got)
	}
	if got := unquoteStep(args[5]); got != "it's" {
		t.Errorf("unquoteStep escaped quote = %q", got)
	}
}

func TestClassifyDrawingPages(t *testing.T) {
	p := New(ocr.NewRunner(""))
	doc := &docModel.ParsedDocument{
		DocType: docModel.DocTypePID,
		Pages: []string{
			strings.Repeat("Описание технологической схемы установки. ", 5),
			"DN 150",
		},
	}
	p.classifyDrawingPages(doc)
	if len(doc.DrawingPages) != 1 || doc.DrawingPages[0] != 2 {
		t.Errorf("drawing pages = %v, want [2]", doc.DrawingPages)
	}

	// report pages never classify as drawings regardless of text volume
	rep := &docModel.ParsedDocument{DocType: docModel.DocTypeReport, Pages: []string{"x"}}
	p.classifyDrawingPages(rep)
	if len(rep.DrawingPages) != 0 {
		t.Errorf("report drawing pages = %v", rep.DrawingPages)
	}
}
