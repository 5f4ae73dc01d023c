package fragments

import (
	"bufio"
	"context"
	"io"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/hts/bgzf"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// minColumns is the fragments BED column count: chrom, start, end, cell
// barcode, and the read count collapsed into the fragment. Extra columns are
// ignored.
const minColumns = 5

// ReadTable reads a fragments BED file into memory. The input may be plain
// text, gzip, or BGZF compressed (the usual fragments.tsv.gz encoding).
// Blank lines and lines starting with '#' are skipped; any other line with
// fewer than five columns, a malformed coordinate, or a read count below one
// is an error.
func ReadTable(ctx context.Context, path string) (t *Table, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	r, err := maybeDecompress(path, in.Reader(ctx))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	if t, err = scanTable(r); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return t, nil
}

// maybeDecompress wraps r when path carries a gzip extension. BGZF members
// get the block-parallel bgzf reader; any other gzip variant goes through the
// streaming reader, which also accepts multi-member files.
func maybeDecompress(path string, r io.Reader) (io.Reader, error) {
	if fileio.DetermineType(path) != fileio.Gzip {
		return r, nil
	}
	br := bufio.NewReaderSize(r, 1<<16)
	blocked, err := isBGZF(br)
	if err != nil {
		return nil, err
	}
	if blocked {
		return bgzf.NewReader(br, 0)
	}
	return gzip.NewReader(br)
}

// isBGZF peeks at the first gzip member header. BGZF writers emit the
// two-byte "BC" subfield first in the extra field, so the fixed offsets
// suffice.
func isBGZF(br *bufio.Reader) (bool, error) {
	hdr, err := br.Peek(14)
	if err != nil {
		if err == io.EOF {
			// Too short for a BGZF header; let gzip report the real problem.
			return false, nil
		}
		return false, err
	}
	const flagExtra = 0x4
	return hdr[0] == 0x1f && hdr[1] == 0x8b && hdr[2] == 8 &&
		hdr[3]&flagExtra != 0 && hdr[12] == 'B' && hdr[13] == 'C', nil
}

// splitTokens fills tokens with up to len(tokens) fields of line, returning
// the number found. Any run of characters <= ' ' is a delimiter, the BED
// convention.
func splitTokens(tokens [][]byte, line []byte) int {
	n := 0
	pos := 0
	for n < len(tokens) {
		for pos < len(line) && line[pos] <= ' ' {
			pos++
		}
		if pos == len(line) {
			break
		}
		start := pos
		for pos < len(line) && line[pos] > ' ' {
			pos++
		}
		tokens[n] = line[start:pos]
		n++
	}
	return n
}

func scanTable(r io.Reader) (*Table, error) {
	t := &Table{}
	var tokens [minColumns][]byte
	scanner := bufio.NewScanner(r)
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		line := scanner.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		n := splitTokens(tokens[:], line)
		if n == 0 {
			continue
		}
		if n < minColumns {
			return nil, errors.Errorf("fragments: line %d has %d columns, need at least %d", lineIdx, n, minColumns)
		}
		start, err := strconv.ParseInt(gunsafe.BytesToString(tokens[1]), 10, 32)
		if err != nil || start < 0 {
			return nil, errors.Errorf("fragments: bad start coordinate %q on line %d", tokens[1], lineIdx)
		}
		end, err := strconv.ParseInt(gunsafe.BytesToString(tokens[2]), 10, 32)
		if err != nil || end < 0 {
			return nil, errors.Errorf("fragments: bad end coordinate %q on line %d", tokens[2], lineIdx)
		}
		count, err := strconv.ParseInt(gunsafe.BytesToString(tokens[4]), 10, 32)
		if err != nil {
			return nil, errors.Errorf("fragments: bad read count %q on line %d", tokens[4], lineIdx)
		}
		if count < 1 {
			return nil, errors.Errorf("fragments: read count %d < 1 on line %d", count, lineIdx)
		}
		t.Recs = append(t.Recs, Record{
			Chrom:   ChromID(t.Chroms.InternBytes(tokens[0])),
			Start:   int32(start),
			End:     int32(end),
			Barcode: BarcodeID(t.Barcodes.InternBytes(tokens[3])),
			Count:   int32(count),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}
