package shell

import (
	"bytes"
	"sync"

	"github.com/Cyclone1070/mini/internal/tool/contentutil"
)

const (
	binarySampleSize  = 8000
	binaryPlaceholder = "[Binary Content]"
)

// collector captures command output with a size limit and binary detection.
// It is safe for concurrent use.
type collector struct {
	mu           sync.Mutex
	buffer       bytes.Buffer
	maxBytes     int
	truncated    bool
	isBinary     bool
	bytesChecked int
}

func newCollector(maxBytes int) *collector {
	return &collector{maxBytes: maxBytes}
}

// Write always reports the full length so the child never sees a short write.
func (c *collector) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isBinary {
		return len(p), nil
	}

	if c.bytesChecked < binarySampleSize {
		toCheck := p[:min(len(p), binarySampleSize-c.bytesChecked)]
		if contentutil.IsBinary(toCheck) {
			c.isBinary = true
			c.truncated = true
			c.buffer.Reset()
			return len(p), nil
		}
		c.bytesChecked += len(toCheck)
	}

	remaining := c.maxBytes - c.buffer.Len()
	if remaining <= 0 {
		c.truncated = true
		return len(p), nil
	}

	toWrite := p
	if len(toWrite) > remaining {
		toWrite = toWrite[:remaining]
		c.truncated = true
	}
	c.buffer.Write(toWrite)
	return len(p), nil
}

func (c *collector) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isBinary {
		return binaryPlaceholder
	}
	return c.buffer.String()
}

func (c *collector) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.truncated
}
