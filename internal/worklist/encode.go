package worklist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var ErrCorrupt = errors.New("worklist: corrupt encoding")

// recordSize is the encoded size of one Item: eight big-endian int32 fields.
const recordSize = 8 * 4

// EncodedLen returns the length of MarshalBinary's output for the queue.
func (q *Queue) EncodedLen() int { return 8 + q.capacity*recordSize }

// MarshalBinary writes the item count, the capacity and a fixed-size table of
// capacity records; unused slots are zero.
func (q *Queue) MarshalBinary() ([]byte, error) {
	buf := make([]byte, q.EncodedLen())
	binary.BigEndian.PutUint32(buf[0:], uint32(len(q.items)))
	binary.BigEndian.PutUint32(buf[4:], uint32(q.capacity))
	off := 8
	for _, it := range q.items {
		for _, v := range [...]int{it.XStart, it.XStop, it.XBegin, it.YStart, it.YStop, it.YBegin, it.Pass, it.Sym} {
			if v < math.MinInt32 || v > math.MaxInt32 {
				return nil, fmt.Errorf("worklist: item %v does not fit the record layout", it)
			}
			binary.BigEndian.PutUint32(buf[off:], uint32(int32(v)))
			off += 4
		}
	}
	return buf, nil
}

// UnmarshalBinary replaces the queue with the encoded one. The input must be
// exactly EncodedLen bytes long for the encoded capacity.
func (q *Queue) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("%w: short header (%d bytes)", ErrCorrupt, len(data))
	}
	n := int(binary.BigEndian.Uint32(data[0:]))
	capacity := int(binary.BigEndian.Uint32(data[4:]))
	if capacity <= 0 || capacity > 1<<16 {
		return fmt.Errorf("%w: capacity %d", ErrCorrupt, capacity)
	}
	if n > capacity {
		return fmt.Errorf("%w: %d items exceed capacity %d", ErrCorrupt, n, capacity)
	}
	if len(data) != 8+capacity*recordSize {
		return fmt.Errorf("%w: length %d, want %d", ErrCorrupt, len(data), 8+capacity*recordSize)
	}

	items := make([]Item, 0, capacity)
	off := 8
	for range n {
		var f [8]int
		for k := range f {
			f[k] = int(int32(binary.BigEndian.Uint32(data[off:])))
			off += 4
		}
		it := Item{XStart: f[0], XStop: f[1], XBegin: f[2], YStart: f[3], YStop: f[4], YBegin: f[5], Pass: f[6], Sym: f[7]}
		if it.XStart > it.XBegin || it.XBegin > it.XStop || it.YStart > it.YBegin || it.YBegin > it.YStop {
			return fmt.Errorf("%w: item %v has its cursor outside its bounds", ErrCorrupt, it)
		}
		items = append(items, it)
	}
	for _, b := range data[off:] {
		if b != 0 {
			return fmt.Errorf("%w: non-zero padding", ErrCorrupt)
		}
	}

	q.items = items
	q.capacity = capacity
	return nil
}
