package offline

import "io"

// Progress is a cumulative transfer notification.
type Progress struct {
	// Written is the number of bytes received so far.
	Written int64
	// Total is the expected total from Content-Length, or -1 when unknown.
	Total int64
}

// ProgressFunc receives transfer progress for the content blob.
type ProgressFunc func(Progress)

// progressReader notifies fn whenever the cumulative byte count changes.
// Zero-byte reads produce no notification, so callers see at most one
// callback per observed count.
type progressReader struct {
	r       io.Reader
	total   int64
	written int64
	fn      ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.written += int64(n)
		p.fn(Progress{Written: p.written, Total: p.total})
	}
	return n, err
}
