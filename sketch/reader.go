package sketch

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Record is a single sequence read from a FASTA or FASTQ file.
type Record struct {
	ID  string
	Seq []byte
}

// ReadFile parses the FASTA or FASTQ file at path, transparently
// decompressing a .gz suffix. The format is sniffed from the first byte.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sketch: could not open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("sketch: could not decompress %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	records, err := parse(r)
	if err != nil {
		return nil, fmt.Errorf("sketch: %s: %w", path, err)
	}
	return records, nil
}

func parse(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(1)
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty file")
		}
		return nil, err
	}
	switch first[0] {
	case '>':
		return parseFasta(br)
	case '@':
		return parseFastq(br)
	default:
		return nil, fmt.Errorf("unrecognised sequence format (leading %q)", first[0])
	}
}

func parseFasta(br *bufio.Reader) ([]Record, error) {
	var (
		records []Record
		current *Record
	)
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			records = append(records, Record{ID: headerID(line[1:])})
			current = &records[len(records)-1]
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("sequence data before first header")
		}
		current.Seq = append(current.Seq, line...)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func parseFastq(br *bufio.Reader) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		header := bytes.TrimSpace(sc.Bytes())
		if len(header) == 0 {
			continue
		}
		if header[0] != '@' {
			return nil, fmt.Errorf("malformed fastq header %q", header)
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("truncated fastq record %q", header)
		}
		seq := make([]byte, len(sc.Bytes()))
		copy(seq, bytes.TrimSpace(sc.Bytes()))

		// Separator and quality lines.
		if !sc.Scan() || !sc.Scan() {
			return nil, fmt.Errorf("truncated fastq record %q", header)
		}
		records = append(records, Record{ID: headerID(header[1:]), Seq: seq})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// headerID truncates a header line at the first whitespace.
func headerID(header []byte) string {
	if i := bytes.IndexAny(header, " \t"); i >= 0 {
		header = header[:i]
	}
	return string(header)
}
