package opc

import (
	"fmt"
	"os"
)

// AssignMetadata stamps release metadata into the workbook at pkgPath:
// cp:version receives releaseTag and cp:keywords receives commitHash. The
// package is mutated in place through a single unpack → infuse → repack
// cycle; failures from any stage propagate with their original error kind
// and there are no retries.
//
// Each invocation uses its own temporary scratch directory, so concurrent
// calls against different packages do not interfere. The scratch directory
// is removed on every exit path except a repack failure, where it is kept
// (and named in the returned error) for diagnosis.
func AssignMetadata(pkgPath, commitHash, releaseTag string) error {
	scratch, err := os.MkdirTemp("", "xlci-unpack-*")
	if err != nil {
		return &FilesystemError{Path: pkgPath, Err: err}
	}

	records, err := Unpack(pkgPath, scratch)
	if err != nil {
		_ = os.RemoveAll(scratch)

		return err
	}

	if err := InfuseMetadata(scratch, commitHash, releaseTag); err != nil {
		_ = os.RemoveAll(scratch)

		return err
	}

	if err := Repack(pkgPath, scratch, records); err != nil {
		return fmt.Errorf("repack %s (scratch kept at %s): %w", pkgPath, scratch, err)
	}

	return nil
}
