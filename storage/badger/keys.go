package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/lectern/core"
)

// Key prefixes for different data types
const (
	textbookPrefix         = "tbk"
	textbookFileNamePrefix = "tbkf"
	textbookDatePrefix     = "tbkd"
	textbookIDSeq          = "tbkseq"
	chapterPrefix          = "chp"
	chapterParentPrefix    = "chpp"
	chapterDatePrefix      = "chpd"
	chapterIDSeq           = "chpseq"
	chunkPrefix            = "chk"
	chunkIndexPrefix       = "chki"
	chunkDatePrefix        = "chkd"
	chunkIDSeq             = "chkseq"
	runPrefix              = "run"
	runDatePrefix          = "rund"
)

// makeTextbookKey generates a key for a textbook by ID.
func makeTextbookKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", textbookPrefix, id))
}

// makeTextbookFileNameKey generates the unique natural key index entry.
func makeTextbookFileNameKey(fileName string) []byte {
	return []byte(textbookFileNamePrefix + ":" + fileName)
}

// makeChapterKey generates a key for a chapter by ID.
func makeChapterKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chapterPrefix, id))
}

// makeChunkKey generates a key for a content chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkPrefix, id))
}

// makeRunKey generates a key for a run report by ID.
func makeRunKey(id string) []byte {
	return []byte(runPrefix + ":" + id)
}

// makeCompositeKey builds prefix:uint64:uint64... with every number written
// BigEndian so lexicographic order matches numeric order.
func makeCompositeKey(prefix string, parts ...uint64) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+8*len(parts))
	offset := copy(buf, prefixBytes)
	for _, p := range parts {
		binary.BigEndian.PutUint64(buf[offset:], p)
		offset += 8
	}
	return buf
}

// makeDateKey generates a composite key for a creation date index.
// Format: prefix:timestamp:id
func makeDateKey(prefix string, timestamp time.Time, id core.ID) []byte {
	return makeCompositeKey(prefix, timestampPart(timestamp), uint64(id))
}

// makePartialDateKey generates a partial key for date range scans.
// Format: prefix:timestamp
func makePartialDateKey(prefix string, timestamp time.Time) []byte {
	return makeCompositeKey(prefix, timestampPart(timestamp))
}

// makeChapterParentKey links a chapter to its textbook.
// Format: prefix:textbookID:chapterID
func makeChapterParentKey(textbookID, chapterID core.ID) []byte {
	return makeCompositeKey(chapterParentPrefix, uint64(textbookID), uint64(chapterID))
}

// makePartialChapterParentKey generates a partial key for listing a textbook's chapters.
func makePartialChapterParentKey(textbookID core.ID) []byte {
	return makeCompositeKey(chapterParentPrefix, uint64(textbookID))
}

// makeChunkIndexKey enforces (chapterID, chunkIndex) uniqueness.
// Format: prefix:chapterID:chunkIndex
func makeChunkIndexKey(chapterID core.ID, chunkIndex int) []byte {
	return makeCompositeKey(chunkIndexPrefix, uint64(chapterID), uint64(chunkIndex))
}

// makePartialChunkIndexKey generates a partial key for listing a chapter's chunks.
func makePartialChunkIndexKey(chapterID core.ID) []byte {
	return makeCompositeKey(chunkIndexPrefix, uint64(chapterID))
}

// makeRunDateKey orders run reports by start time.
// Format: prefix:timestamp:runID
func makeRunDateKey(startedAt time.Time, runID string) []byte {
	return append(makeCompositeKey(runDatePrefix, timestampPart(startedAt)), runID...)
}

// timestampPart clamps times before the epoch to zero.
func timestampPart(t time.Time) uint64 {
	micros := t.UnixMicro()
	if micros < 0 {
		return 0
	}
	return uint64(micros)
}

// idFromCompositeKey reads the trailing uint64 of a composite key.
func idFromCompositeKey(key []byte) core.ID {
	if len(key) < 8 {
		return 0
	}
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}
