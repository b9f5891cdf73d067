package opc_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// buildPackage creates a ZIP package at path with the given members, written
// in sorted name order so tests see a deterministic entry layout.
func buildPackage(t *testing.T, path string, members map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	for _, name := range sortedKeys(members) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}

		if _, err := w.Write([]byte(members[name])); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// readPackage returns every member of the ZIP at path keyed by entry name.
func readPackage(t *testing.T, path string) map[string][]byte {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip %s: %v", path, err)
	}
	defer zr.Close()

	out := make(map[string][]byte, len(zr.File))

	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}

		data := make([]byte, 0, f.UncompressedSize64)
		buf := make([]byte, 4096)

		for {
			n, readErr := rc.Read(buf)
			data = append(data, buf[:n]...)

			if readErr != nil {
				break
			}
		}

		_ = rc.Close()
		out[f.Name] = data
	}

	return out
}

// writeScratchCore creates a scratch tree containing only docProps/core.xml
// with the given content and returns the scratch root.
func writeScratchCore(t *testing.T, content string) string {
	t.Helper()

	scratch := t.TempDir()

	dir := filepath.Join(scratch, "docProps")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "core.xml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write core.xml: %v", err)
	}

	return scratch
}

const bareCoreXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
                   xmlns:dc="http://purl.org/dc/elements/1.1/"
                   xmlns:dcterms="http://purl.org/dc/terms/"
                   xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <dc:title>Calibration Worksheet</dc:title>
  <dc:creator>JGI</dc:creator>
  <dcterms:created xsi:type="dcterms:W3CDTF">2025-11-02T09:12:00Z</dcterms:created>
</cp:coreProperties>`

// keywordsFirstCoreXML places cp:keywords as the first child so ordering
// tests can assert it gets moved to the end.
const keywordsFirstCoreXML = `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
                   xmlns:dc="http://purl.org/dc/elements/1.1/">
  <cp:keywords>old-keywords</cp:keywords>
  <dc:title>Calibration Worksheet</dc:title>
  <cp:version>v0.0.1</cp:version>
</cp:coreProperties>`

// sampleWorkbookMembers returns the member set for a minimal workbook
// package: a core-properties part with no version or keywords, plus two
// content parts that the pipeline must never touch.
func sampleWorkbookMembers() map[string]string {
	return map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"xl/workbook.xml":     workbookXML,
		"docProps/core.xml":   bareCoreXML,
	}
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>
  <Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>`

const workbookXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"
          xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheets>
    <sheet name="Measurements" sheetId="1" r:id="rId1"/>
    <sheet name="Uncertainty" sheetId="2" r:id="rId2"/>
  </sheets>
</workbook>`
