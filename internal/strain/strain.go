// Package strain reads and writes extracted gravitational-wave strain
// artifacts: plain-text files of 9 whitespace-delimited columns with a
// fixed header line, named after the l=2, m=2 mode and the extraction
// radius (Rh_l2_m2_rNNNNN.txt).
package strain

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Header is the fixed column annotation written as the first line of every
// artifact (prefixed with "# "). Byte-stable: cached artifacts from older
// tooling carry exactly this line.
const Header = "u/M:0 Reh/M:1 Imh/M:2 Redh/M:3 Imdh/M:4 Momega:5 A/M:6 phi:7 t:8"

// Column indices of a strain sample row.
const (
	ColRetardedTime = iota // u/M
	ColRealStrain          // Reh/M
	ColImagStrain          // Imh/M
	ColRealStrainRate      // Redh/M
	ColImagStrainRate      // Imdh/M
	ColAngularFreq         // Momega
	ColAmplitude           // A/M
	ColPhase               // phi
	ColCoordTime           // t

	NumColumns = 9
)

// filePrefix and fileExt bound the artifact naming pattern Rh*.txt.
const (
	filePrefix = "Rh_l2_m2_r"
	fileExt    = ".txt"
)

// eccentricityTag marks the metadata line carrying the orbital eccentricity.
const eccentricityTag = "id_eccentricity"

// Series is a strain time series: one row per sample, NumColumns columns
// in the fixed semantic order above.
type Series [][]float64

// MissingAnnotationError signals a metadata file with no eccentricity line,
// i.e. a corrupted or incomplete cache entry. It is fatal: the value is
// never silently defaulted.
type MissingAnnotationError struct {
	Path string
}

func (e *MissingAnnotationError) Error() string {
	return fmt.Sprintf("strain: no %s line in %s", eccentricityTag, e.Path)
}

// FileName returns the artifact file name for an extraction radius,
// zero-padded to the fixed 5-digit field (99999 encodes infinite radius).
func FileName(radius int) string {
	return fmt.Sprintf("%s%05d%s", filePrefix, radius, fileExt)
}

// RadiusFromName parses the radius from the trailing 5 characters of an
// artifact file name's stem.
func RadiusFromName(name string) (int, error) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if len(stem) < 5 {
		return 0, fmt.Errorf("strain: %q: stem too short for a radius field", name)
	}
	r, err := strconv.Atoi(stem[len(stem)-5:])
	if err != nil {
		return 0, fmt.Errorf("strain: %q: radius field is not numeric", name)
	}
	return r, nil
}

// Write serializes a series to path: one "# Header" line, then one
// whitespace-delimited row per sample in %.18e notation.
func Write(path string, s Series) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("strain: write %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# %s\n", Header)
	for _, row := range s {
		for i, v := range row {
			if i > 0 {
				w.WriteByte(' ')
			}
			fmt.Fprintf(w, "%.18e", v)
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("strain: write %s: %w", path, err)
	}
	return nil
}

// Read parses a series from path. Lines starting with '#' are comments;
// every data line must carry the same number of columns as the first.
func Read(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("strain: read %s: %w", path, err)
	}
	defer f.Close()

	var s Series
	width := -1
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if width == -1 {
			width = len(fields)
		} else if len(fields) != width {
			return nil, fmt.Errorf("strain: read %s: ragged row with %d columns, want %d", path, len(fields), width)
		}
		row := make([]float64, len(fields))
		for i, fld := range fields {
			v, err := strconv.ParseFloat(fld, 64)
			if err != nil {
				return nil, fmt.Errorf("strain: read %s: bad value %q", path, fld)
			}
			row[i] = v
		}
		s = append(s, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("strain: read %s: %w", path, err)
	}
	return s, nil
}

// ReadEccentricity scans a metadata file for the eccentricity line and
// parses its last whitespace-delimited token. An unparsable token maps to
// NaN (the value exists but was never measured); a file without the tagged
// line fails with a *MissingAnnotationError.
func ReadEccentricity(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("strain: read eccentricity: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, eccentricityTag) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			break
		}
		v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			return math.NaN(), nil
		}
		return v, nil
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("strain: read eccentricity: %w", err)
	}
	return 0, &MissingAnnotationError{Path: path}
}
