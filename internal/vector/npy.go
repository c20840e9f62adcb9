package vector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	npyMagic  = []byte("\x93NUMPY")
	descrRe   = regexp.MustCompile(`'descr':\s*'([<>|=]?)([fi])(\d)'`)
	fortranRe = regexp.MustCompile(`'fortran_order':\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape':\s*\((\d+),\s*(\d+),?\s*\)`)
)

// ReadNPY reads a 2-D float32 or float64 C-order NumPy array (as written by numpy.save)
// and returns its rows as float32.
func ReadNPY(r io.Reader) ([][]float32, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(npyMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("read npy magic: %w", err)
	}
	if string(magic) != string(npyMagic) {
		return nil, fmt.Errorf("not a npy file")
	}
	version := make([]byte, 2)
	if _, err := io.ReadFull(br, version); err != nil {
		return nil, fmt.Errorf("read npy version: %w", err)
	}
	var headerLen int
	switch version[0] {
	case 1:
		var l uint16
		if err := binary.Read(br, binary.LittleEndian, &l); err != nil {
			return nil, fmt.Errorf("read npy header length: %w", err)
		}
		headerLen = int(l)
	case 2, 3:
		var l uint32
		if err := binary.Read(br, binary.LittleEndian, &l); err != nil {
			return nil, fmt.Errorf("read npy header length: %w", err)
		}
		headerLen = int(l)
	default:
		return nil, fmt.Errorf("unsupported npy version %d.%d", version[0], version[1])
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("read npy header: %w", err)
	}
	h := string(header)

	descr := descrRe.FindStringSubmatch(h)
	if descr == nil || descr[2] != "f" || (descr[3] != "4" && descr[3] != "8") {
		return nil, fmt.Errorf("unsupported npy dtype in header %q", strings.TrimSpace(h))
	}
	var order binary.ByteOrder = binary.LittleEndian
	if descr[1] == ">" {
		order = binary.BigEndian
	}
	if m := fortranRe.FindStringSubmatch(h); m == nil || m[1] != "False" {
		return nil, fmt.Errorf("fortran-ordered npy arrays are not supported")
	}
	shape := shapeRe.FindStringSubmatch(h)
	if shape == nil {
		return nil, fmt.Errorf("npy array must be 2-D, header %q", strings.TrimSpace(h))
	}
	rows, _ := strconv.Atoi(shape[1])
	cols, _ := strconv.Atoi(shape[2])

	width := 4
	if descr[3] == "8" {
		width = 8
	}
	buf := make([]byte, cols*width)
	out := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read npy row %d: %w", i, err)
		}
		row := make([]float32, cols)
		for j := range row {
			if width == 4 {
				row[j] = math.Float32frombits(order.Uint32(buf[j*4:]))
			} else {
				row[j] = float32(math.Float64frombits(order.Uint64(buf[j*8:])))
			}
		}
		out[i] = row
	}
	return out, nil
}

// LoadNPY reads a .npy embedding matrix from path; row i belongs to segment i.
func LoadNPY(path string) (*MatrixIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open embedding matrix: %w", err)
	}
	defer f.Close()
	rows, err := ReadNPY(f)
	if err != nil {
		return nil, fmt.Errorf("parse embedding matrix %s: %w", path, err)
	}
	return NewMatrixIndexFromRows(rows)
}
