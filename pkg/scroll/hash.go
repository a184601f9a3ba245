package scroll

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"strconv"
)

// digest hashes the scroll identity. Every field is length-prefixed so that
// adjacent values cannot be confused; parent order is significant.
func digest(key string, canonicalData []byte, meta Meta) string {
	h := sha256.New()

	writeField(h, []byte(key))
	writeField(h, canonicalData)
	writeField(h, []byte(meta.Schema))
	writeField(h, []byte(strconv.Itoa(meta.Version)))
	writeField(h, []byte(strconv.FormatInt(meta.Time, 10)))
	writeField(h, []byte(meta.Op))

	writeField(h, []byte(strconv.Itoa(len(meta.Prev))))
	for _, p := range meta.Prev {
		writeField(h, []byte(p))
	}

	if meta.Influence != nil {
		writeField(h, []byte(strconv.FormatFloat(*meta.Influence, 'g', -1, 64)))
	} else {
		writeField(h, nil)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, data []byte) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(data)))
	h.Write(length[:])
	h.Write(data)
}
