package parser

import (
	"bufio"
	"bytes"
	"io"
)

const maxLineBytes = 1 << 20

// ScanLines is a bufio.SplitFunc that ends a line at '\n' or '\r'. Progress
// bars redraw themselves with bare carriage returns, so each redraw becomes
// its own line. A line longer than maxLineBytes comes back in pieces rather
// than failing the scan.
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if len(data) >= maxLineBytes {
		return maxLineBytes, data[:maxLineBytes], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Scan reads r until EOF, parsing every non-empty line in order and handing
// it to fn together with the raw text.
func (p *Parser) Scan(r io.Reader, fn func(raw string, l Line)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	sc.Split(ScanLines)
	for sc.Scan() {
		raw := sc.Text()
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		fn(raw, p.Parse(raw))
	}
	return sc.Err()
}
