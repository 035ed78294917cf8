package embeddings

import (
	"encoding/binary"
	"math"

	"github.com/basharArif/prompt-architect-demo/errors"
)

// Serialize converts an embedding to a little-endian FLOAT32_BLOB for
// storage in a BLOB column.
func Serialize(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, val := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(val))
	}
	return buf
}

// Deserialize converts a FLOAT32_BLOB back to []float32.
func Deserialize(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, errors.Newf("invalid embedding data length: %d", len(data))
	}

	embedding := make([]float32, len(data)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return embedding, nil
}
