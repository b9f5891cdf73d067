// Package opc rewrites release metadata inside Office Open XML packages.
//
// An OOXML workbook (.xlsx, .xlsm, ...) is a ZIP archive of XML parts. The
// package implements a strict unpack → patch → repack pipeline: every archive
// member is extracted to a scratch directory along with its original entry
// metadata, the core-properties part is patched in place, and the archive is
// rebuilt entry-for-entry from the captured metadata so that untouched members
// survive byte-identical.
package opc

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MemberRecord describes one ZIP entry of the original package. Records are
// produced by Unpack and consumed, unmodified, by Repack.
type MemberRecord struct {
	Name          string // archive-relative path, forward slashes
	Method        uint16 // zip.Store or zip.Deflate
	Modified      time.Time
	ExternalAttrs uint32
	Comment       string
}

var errEntryEscapesScratch = errors.New("entry path escapes scratch directory")

// maxMemberSize caps the decompressed size of a single archive member. Guards
// against zip bombs inflating a small workbook into gigabytes on disk.
const maxMemberSize = 512 * 1024 * 1024

// Unpack extracts every member of the ZIP package at srcPath into scratchDir,
// creating the directory and any needed subdirectories, and returns the
// ordered list of MemberRecords describing the original archive layout.
//
// The source package is never modified. An unreadable or non-ZIP source
// yields an *ArchiveError; scratch-directory write failures yield a
// *FilesystemError.
func Unpack(srcPath, scratchDir string) ([]MemberRecord, error) {
	zr, err := zip.OpenReader(srcPath)
	if err != nil {
		return nil, &ArchiveError{Path: srcPath, Err: err}
	}
	defer zr.Close()

	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, &FilesystemError{Path: scratchDir, Err: err}
	}

	records := make([]MemberRecord, 0, len(zr.File))

	for _, f := range zr.File {
		if err := extractMember(f, scratchDir); err != nil {
			return nil, err
		}

		records = append(records, MemberRecord{
			Name:          f.Name,
			Method:        f.Method,
			Modified:      f.Modified,
			ExternalAttrs: f.ExternalAttrs,
			Comment:       f.Comment,
		})
	}

	return records, nil
}

// extractMember writes a single ZIP entry below scratchDir.
func extractMember(f *zip.File, scratchDir string) error {
	target, err := scratchPath(scratchDir, f.Name)
	if err != nil {
		return &ArchiveError{Path: f.Name, Err: err}
	}

	// Directory entries carry no content.
	if strings.HasSuffix(f.Name, "/") {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return &FilesystemError{Path: target, Err: err}
		}

		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return &FilesystemError{Path: filepath.Dir(target), Err: err}
	}

	rc, err := f.Open()
	if err != nil {
		return &ArchiveError{Path: f.Name, Err: err}
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return &FilesystemError{Path: target, Err: err}
	}

	if _, err := io.Copy(out, io.LimitReader(rc, maxMemberSize)); err != nil {
		_ = out.Close()

		return &FilesystemError{Path: target, Err: err}
	}

	if err := out.Close(); err != nil {
		return &FilesystemError{Path: target, Err: err}
	}

	return nil
}

// scratchPath maps an archive member name to a path under scratchDir,
// rejecting names that would escape the scratch tree.
func scratchPath(scratchDir, name string) (string, error) {
	target := filepath.Join(scratchDir, filepath.FromSlash(name))

	base := filepath.Clean(scratchDir)
	if target != base && !strings.HasPrefix(target, base+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", errEntryEscapesScratch, name)
	}

	return target, nil
}

// Repack rebuilds the ZIP package at pkgPath from the scratch directory,
// writing one entry per MemberRecord with that record's captured metadata.
// The new archive is written to a temp file and renamed over pkgPath, so a
// failed repack never leaves the original package missing or truncated.
//
// On success the scratch directory is removed. On failure it is deliberately
// left in place so the caller can inspect or retry.
func Repack(pkgPath, scratchDir string, records []MemberRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(pkgPath), ".xlci-repack-*.tmp")
	if err != nil {
		return &ArchiveError{Path: pkgPath, Err: err}
	}

	tmpPath := tmp.Name()

	if err := writeArchive(tmp, scratchDir, records); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return &ArchiveError{Path: pkgPath, Err: err}
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)

		return &ArchiveError{Path: pkgPath, Err: err}
	}

	if err := os.Rename(tmpPath, pkgPath); err != nil {
		_ = os.Remove(tmpPath)

		return &ArchiveError{Path: pkgPath, Err: err}
	}

	if err := os.RemoveAll(scratchDir); err != nil {
		return &FilesystemError{Path: scratchDir, Err: err}
	}

	return nil
}

// writeArchive streams every recorded member from scratchDir into w.
func writeArchive(w io.Writer, scratchDir string, records []MemberRecord) error {
	zw := zip.NewWriter(w)

	for _, rec := range records {
		hdr := &zip.FileHeader{
			Name:          rec.Name,
			Method:        rec.Method,
			Modified:      rec.Modified,
			ExternalAttrs: rec.ExternalAttrs,
			Comment:       rec.Comment,
		}

		ew, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("create entry %s: %w", rec.Name, err)
		}

		if strings.HasSuffix(rec.Name, "/") {
			continue
		}

		src, err := scratchPath(scratchDir, rec.Name)
		if err != nil {
			return err
		}

		f, err := os.Open(src)
		if err != nil {
			return fmt.Errorf("open extracted member %s: %w", rec.Name, err)
		}

		if _, err := io.Copy(ew, f); err != nil {
			_ = f.Close()

			return fmt.Errorf("write entry %s: %w", rec.Name, err)
		}

		if err := f.Close(); err != nil {
			return fmt.Errorf("close extracted member %s: %w", rec.Name, err)
		}
	}

	return zw.Close()
}
