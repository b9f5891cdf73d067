package cmd

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("boom"), 1},
		{&ExitError{Code: 2, Err: errors.New("usage")}, 2},
		{&ExitError{Code: 1, Err: errBrokenReferences}, 1},
	}

	for _, tc := range cases {
		if got := ExitCode(tc.err); got != tc.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	err := Execute([]string{"definitely-not-a-command"})

	if ExitCode(err) != 2 {
		t.Fatalf("exit code = %d (%v), want 2", ExitCode(err), err)
	}
}

func TestExecuteMetadataStampsWorkbook(t *testing.T) {
	pkg := filepath.Join(t.TempDir(), "book.xlsx")
	buildZip(t, pkg, map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"docProps/core.xml": `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"/>`,
	})

	err := Execute([]string{"metadata", pkg, "--commit", "abc123", "--tag", "v9.9.9"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	core := readZipMember(t, pkg, "docProps/core.xml")

	if !strings.Contains(core, ">v9.9.9<") {
		t.Errorf("core.xml missing stamped version: %s", core)
	}

	if !strings.Contains(core, ">abc123<") {
		t.Errorf("core.xml missing stamped keywords: %s", core)
	}
}

func TestExecuteMetadataMissingFile(t *testing.T) {
	err := Execute([]string{"metadata", filepath.Join(t.TempDir(), "absent.xlsx")})

	if ExitCode(err) != 2 {
		t.Fatalf("exit code = %d (%v), want 2", ExitCode(err), err)
	}
}

func TestExecuteCheckRefsFindsErrors(t *testing.T) {
	pkg := filepath.Join(t.TempDir(), "broken.xlsx")

	f := excelize.NewFile()

	if err := f.SetCellValue("Sheet1", "A1", "#REF!"); err != nil {
		t.Fatalf("set cell: %v", err)
	}

	if err := f.SetCellFormula("Sheet1", "A1", "#REF!"); err != nil {
		t.Fatalf("set formula: %v", err)
	}

	if err := f.SaveAs(pkg); err != nil {
		t.Fatalf("save workbook: %v", err)
	}

	_ = f.Close()

	err := Execute([]string{"check-refs", pkg})

	if ExitCode(err) != 1 {
		t.Fatalf("exit code = %d (%v), want 1", ExitCode(err), err)
	}

	if !errors.Is(err, errBrokenReferences) {
		t.Fatalf("got %v, want errBrokenReferences", err)
	}
}

func TestExecuteCheckRefsUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("a,b\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	err := Execute([]string{"check-refs", path})

	if ExitCode(err) != 2 {
		t.Fatalf("exit code = %d (%v), want 2", ExitCode(err), err)
	}
}

func TestExecuteUploadSopMissingCredentials(t *testing.T) {
	t.Setenv("QUALER_EMAIL", "")
	t.Setenv("QUALER_PASSWORD", "")

	path := filepath.Join(t.TempDir(), "sop.xlsm")
	if err := os.WriteFile(path, []byte("bytes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	err := Execute([]string{"upload-sop", path})

	if ExitCode(err) != 2 {
		t.Fatalf("exit code = %d (%v), want 2", ExitCode(err), err)
	}
}

func buildZip(t *testing.T, path string, members map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	for name, content := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}

		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

func readZipMember(t *testing.T, path, name string) string {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip %s: %v", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open member %s: %v", name, err)
		}
		defer rc.Close()

		var sb strings.Builder
		buf := make([]byte, 4096)

		for {
			n, readErr := rc.Read(buf)
			sb.Write(buf[:n])

			if readErr != nil {
				break
			}
		}

		return sb.String()
	}

	t.Fatalf("member %s not found in %s", name, path)

	return ""
}
