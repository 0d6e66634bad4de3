// Package ingestion writes textbook documents into the content store.
//
// Three writers own every mutation of the hierarchy:
//   - TextbookWriter upserts the textbook root keyed on its file name
//   - ChapterWriter inserts chapters under an explicit textbook ID
//   - ChunkWriter inserts content chunks under an explicit chapter ID
//
// The Ingestor drives them over a batch of documents. Each document is
// validated up front and then written in one transaction, so a failing
// document leaves no rows behind and never stops the rest of the batch.
// Documents may be processed concurrently on a worker pool; documents sharing
// a file name are serialized.
package ingestion
