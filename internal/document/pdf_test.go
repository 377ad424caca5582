package document_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// testPage describes one page object. Empty fields are inherited from the
// page tree root.
type testPage struct {
	mediaBox string
	cropBox  string
	rotate   int
}

// writePDF writes a minimal uncompressed PDF with a classic xref table.
// rootBox, when set, is the MediaBox of the page tree root.
func writePDF(t *testing.T, rootBox string, pages ...testPage) string {
	t.Helper()
	var objects []string
	kids := &bytes.Buffer{}
	for i := range pages {
		fmt.Fprintf(kids, "%d 0 R ", i+3)
	}
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")
	root := fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d", kids.String(), len(pages))
	if rootBox != "" {
		root += " /MediaBox " + rootBox
	}
	objects = append(objects, root+" >>")
	for _, p := range pages {
		obj := "<< /Type /Page /Parent 2 0 R"
		if p.mediaBox != "" {
			obj += " /MediaBox " + p.mediaBox
		}
		if p.cropBox != "" {
			obj += " /CropBox " + p.cropBox
		}
		if p.rotate != 0 {
			obj += fmt.Sprintf(" /Rotate %d", p.rotate)
		}
		objects = append(objects, obj+" >>")
	}

	buf := &bytes.Buffer{}
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "test.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeGarbage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
