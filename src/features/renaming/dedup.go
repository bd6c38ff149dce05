package renaming

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// PrimaryCandidate reconstructs the destination name a file would have
// received without a collision suffix. The external renamer inserts a
// literal '-' marker (its collision counter) when two inputs map to the
// same timestamp-derived name; stripping from the marker onward and
// re-appending the extension yields the "first" file for that timestamp.
// Returns false when the base name carries no marker.
func PrimaryCandidate(destination string) (string, bool) {
	base := filepath.Base(destination)
	idx := strings.Index(base, "-")
	if idx < 0 {
		return "", false
	}
	ext := filepath.Ext(base)
	return filepath.Join(filepath.Dir(destination), base[:idx]+ext), true
}

// sameContents reports whether two files are byte-for-byte identical.
// A size or metadata comparison is not enough here: distinct shots taken
// within the same second produce equal-length files.
func sameContents(a, b string) (bool, error) {
	infoA, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	if infoA.Size() != infoB.Size() {
		return false, nil
	}

	fa, err := os.Open(a)
	if err != nil {
		return false, err
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, err
	}
	defer fb.Close()

	bufA := make([]byte, 64*1024)
	bufB := make([]byte, 64*1024)
	for {
		nA, errA := io.ReadFull(fa, bufA)
		nB, errB := io.ReadFull(fb, bufB)
		if !bytes.Equal(bufA[:nA], bufB[:nB]) {
			return false, nil
		}
		if errA == io.EOF || errA == io.ErrUnexpectedEOF {
			return errB == io.EOF || errB == io.ErrUnexpectedEOF, nil
		}
		if errA != nil {
			return false, errA
		}
		if errB != nil {
			return false, errB
		}
	}
}
