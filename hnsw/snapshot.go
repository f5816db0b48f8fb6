package hnsw

import (
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/graphvec/distance"
	"github.com/hupe1980/graphvec/internal/level"
)

// Compression selects the snapshot frame compression.
type Compression uint8

const (
	// CompressionZstd frames the snapshot with zstd (default).
	CompressionZstd Compression = iota

	// CompressionLZ4 frames the snapshot with lz4.
	CompressionLZ4
)

// snapshotMagic identifies graphvec snapshot files.
var snapshotMagic = [4]byte{'G', 'V', 'S', '1'}

type snapshot struct {
	Dimension      int
	M              int
	EFConstruction int
	DistanceName   string
	EntryPoint     uint32
	MaxLevel       int
	Nodes          []*Node
}

// WriteSnapshot serializes the graph as a compressed gob stream. The
// distance function is stored by its registered name; unregistered
// functions cannot be snapshotted.
func (h *HNSW) WriteSnapshot(w io.Writer, compression Compression) error {
	name := distance.Name(h.opts.DistanceFunc)
	if name == "" {
		return fmt.Errorf("hnsw: distance function is not registered, cannot snapshot")
	}

	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(compression)); err != nil {
		return err
	}

	var (
		cw  io.Writer
		fin func() error
	)
	switch compression {
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		cw, fin = zw, zw.Close
	case CompressionLZ4:
		lw := lz4.NewWriter(w)
		cw, fin = lw, lw.Close
	default:
		return fmt.Errorf("hnsw: unknown compression %d", compression)
	}

	h.mutex.RLock()
	snap := snapshot{
		Dimension:      h.dimension,
		M:              h.opts.M,
		EFConstruction: h.opts.EFConstruction,
		DistanceName:   name,
		EntryPoint:     h.ep,
		MaxLevel:       h.maxLevel,
		Nodes:          h.nodes,
	}
	err := gob.NewEncoder(cw).Encode(&snap)
	h.mutex.RUnlock()
	if err != nil {
		return err
	}

	return fin()
}

// ReadSnapshot rebuilds a graph from a snapshot stream. The distance
// function is resolved through the registry.
func ReadSnapshot(r io.Reader) (*HNSW, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != snapshotMagic {
		return nil, fmt.Errorf("hnsw: bad snapshot magic %q", magic)
	}

	var compression uint8
	if err := binary.Read(r, binary.LittleEndian, &compression); err != nil {
		return nil, err
	}

	var cr io.Reader
	switch Compression(compression) {
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		cr = zr
	case CompressionLZ4:
		cr = lz4.NewReader(r)
	default:
		return nil, fmt.Errorf("hnsw: unknown compression %d", compression)
	}

	var snap snapshot
	if err := gob.NewDecoder(cr).Decode(&snap); err != nil {
		return nil, err
	}

	fn, ok := distance.Lookup(snap.DistanceName)
	if !ok {
		return nil, fmt.Errorf("hnsw: unknown distance function %q", snap.DistanceName)
	}

	h := New(snap.Dimension, func(o *Options) {
		o.M = snap.M
		o.EFConstruction = snap.EFConstruction
		o.DistanceFunc = fn
	})
	h.ml = level.Lambda(h.opts.M)
	h.ep = snap.EntryPoint
	h.maxLevel = snap.MaxLevel
	h.nodes = snap.Nodes
	for _, n := range snap.Nodes {
		h.keys[n.Key] = n.ID
	}

	return h, nil
}
