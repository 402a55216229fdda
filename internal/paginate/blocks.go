package paginate

// Chunk is an inclusive block range.
type Chunk struct {
	From uint64
	To   uint64
}

// BlockCursor walks [Current, End] in chunks of Size blocks.
type BlockCursor struct {
	Current uint64
	End     uint64
	Size    uint64
}

func NewBlockCursor(start, end, size uint64) *BlockCursor {
	if size == 0 {
		size = 1
	}
	return &BlockCursor{Current: start, End: end, Size: size}
}

func (c *BlockCursor) Done() bool {
	return c.Current > c.End
}

// Chunk is the range the next request should cover.
func (c *BlockCursor) Chunk() Chunk {
	to := c.Current + c.Size - 1
	if to > c.End || to < c.Current {
		to = c.End
	}
	return Chunk{From: c.Current, To: to}
}

// Advance moves to the next chunk whether or not the current one succeeded.
func (c *BlockCursor) Advance() {
	next := c.Current + c.Size
	if next < c.Current { // overflow
		next = c.End + 1
	}
	c.Current = next
}

// Chunks lists every chunk between start and end.
func Chunks(start, end, size uint64) []Chunk {
	var out []Chunk
	for c := NewBlockCursor(start, end, size); !c.Done(); c.Advance() {
		out = append(out, c.Chunk())
		if c.Chunk().To == c.End {
			break
		}
	}
	return out
}
