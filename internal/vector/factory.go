package vector

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies an on-disk embedding matrix format.
type Format string

const (
	// FormatNPY is a NumPy .npy matrix, one row per segment.
	FormatNPY Format = "npy"
	// FormatBinary is the format written by MatrixIndex.Save.
	FormatBinary Format = "binary"
)

// DetectFormat picks a format from the file extension. ".npy" is NumPy, anything else binary.
func DetectFormat(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".npy") {
		return FormatNPY
	}
	return FormatBinary
}

// Open loads an embedding matrix. format may be empty to detect it from the extension.
func Open(path string, format string) (*MatrixIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("embedding matrix path is empty")
	}
	f := Format(format)
	if f == "" {
		f = DetectFormat(path)
	}
	switch f {
	case FormatNPY:
		return LoadNPY(path)
	case FormatBinary:
		return LoadMatrixIndex(path)
	default:
		return nil, fmt.Errorf("unknown matrix format: %s (supported: npy, binary)", format)
	}
}

// Convert loads the matrix at src and writes it to dst in the binary format, which loads
// without parsing a NumPy header. It returns the loaded matrix.
func Convert(src, srcFormat, dst string) (*MatrixIndex, error) {
	if dst == "" {
		return nil, fmt.Errorf("output path is empty")
	}
	m, err := Open(src, srcFormat)
	if err != nil {
		return nil, err
	}
	if err := m.Save(dst); err != nil {
		return nil, err
	}
	return m, nil
}
