package publisher

import "sync"

// linePool reuses the []byte buffer used to assemble one publish batch's
// worth of position lines, avoiding a fresh allocation every batch period.
// This is the same pointer-to-slice sync.Pool idiom the teacher uses for
// its I/O buffer pool (internal/queue/pool.go), collapsed to a single
// bucket since batch buffers here are all close to the same size.
var linePool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, 4096)
		return &buf
	},
}

func getLineBuf() []byte {
	p := linePool.Get().(*[]byte)
	return (*p)[:0]
}

func putLineBuf(buf []byte) {
	linePool.Put(&buf)
}
