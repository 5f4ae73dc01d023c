package fragments

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
)

// ReadWhitelist reads a barcode whitelist, one barcode per line; when a line
// has several columns the first is taken, so 10x-style lists work unchanged.
// Blank lines and '#' comments are skipped, and gzip inputs are handled by
// extension.
func ReadWhitelist(ctx context.Context, path string) (wl map[string]struct{}, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	r := io.Reader(in.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if r, err = gzip.NewReader(r); err != nil {
			return nil, err
		}
	}
	wl = make(map[string]struct{})
	var tokens [1][]byte
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if splitTokens(tokens[:], line) == 0 {
			continue
		}
		wl[string(tokens[0])] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return wl, nil
}
