// Package galleryindex navigates the remotely hosted galleries search
// index.
//
// The index is a B-tree-like structure stored as a flat file on the
// origin. The client never downloads it whole: each node is read on demand
// with a fixed-size byte-range request and decoded from a compact binary
// layout. Decoded nodes are immutable and cached per (address, version).
package galleryindex

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// NodeWindow is the byte-range size fetched per node. It matches the
	// maximum serialized size of a node in the on-disk format.
	NodeWindow = 464

	// childCount is fixed by the on-disk format regardless of how many
	// keys a node carries.
	childCount = 17

	// maxKeySize bounds a key's declared length (exclusive).
	maxKeySize = 32
)

// ErrTruncatedNode is returned when a node buffer ends before its declared
// contents.
var ErrTruncatedNode = errors.New("galleryindex: truncated node buffer")

// KeySizeError reports a key length outside the valid (0, 32) range.
type KeySizeError struct {
	Size uint32
}

func (e *KeySizeError) Error() string {
	return fmt.Sprintf("galleryindex: key size %d must be between 1 and 31", e.Size)
}

// Locator addresses a postings region inside the data artifact.
type Locator struct {
	Address uint64
	Length  int32
}

// Node is one decoded index node. Keys and Locators are parallel;
// Children always has 17 slots, address 0 meaning "no child".
type Node struct {
	Keys     [][]byte
	Locators []Locator
	Children [childCount]uint64
}

// Leaf reports whether every child slot is empty.
func (n *Node) Leaf() bool {
	for _, address := range n.Children {
		if address != 0 {
			return false
		}
	}
	return true
}

// DecodeNode parses the fixed node layout:
//
//	u32 key count
//	per key: u32 length (0 < length < 32), raw bytes
//	u32 locator count
//	per locator: u64 address, i32 length
//	17 x u64 child address
//
// All integers are big-endian. A buffer too short for any declared count
// fails with ErrTruncatedNode.
func DecodeNode(buf []byte) (*Node, error) {
	r := nodeReader{buf: buf}

	keyCount, err := r.uint32()
	if err != nil {
		return nil, err
	}

	node := &Node{}
	for i := uint32(0); i < keyCount; i++ {
		keySize, err := r.uint32()
		if err != nil {
			return nil, err
		}
		if keySize == 0 || keySize >= maxKeySize {
			return nil, &KeySizeError{Size: keySize}
		}
		key, err := r.bytes(int(keySize))
		if err != nil {
			return nil, err
		}
		node.Keys = append(node.Keys, key)
	}

	locatorCount, err := r.uint32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < locatorCount; i++ {
		address, err := r.uint64()
		if err != nil {
			return nil, err
		}
		length, err := r.uint32()
		if err != nil {
			return nil, err
		}
		node.Locators = append(node.Locators, Locator{
			Address: address,
			Length:  int32(length),
		})
	}

	for i := 0; i < childCount; i++ {
		address, err := r.uint64()
		if err != nil {
			return nil, err
		}
		node.Children[i] = address
	}

	return node, nil
}

// nodeReader walks a node buffer, reporting truncation instead of
// panicking on short reads.
type nodeReader struct {
	buf []byte
	off int
}

func (r *nodeReader) bytes(n int) ([]byte, error) {
	if r.off+n > len(r.buf) {
		return nil, ErrTruncatedNode
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *nodeReader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *nodeReader) uint64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}
