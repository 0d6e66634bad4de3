// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/lectern/core"
)

// encoder appends MUS encoded fields to a growing buffer.
type encoder struct {
	buf []byte
}

func (e *encoder) grow(n int) []byte {
	l := len(e.buf)
	e.buf = append(e.buf, make([]byte, n)...)
	return e.buf[l:]
}

func (e *encoder) int64(v int64) {
	varint.Int64.Marshal(v, e.grow(varint.Int64.Size(v)))
}

func (e *encoder) uint64(v uint64) {
	varint.Uint64.Marshal(v, e.grow(varint.Uint64.Size(v)))
}

func (e *encoder) int(v int) {
	varint.Int.Marshal(v, e.grow(varint.Int.Size(v)))
}

func (e *encoder) float64(v float64) {
	e.uint64(math.Float64bits(v))
}

func (e *encoder) string(s string) {
	ord.String.Marshal(s, e.grow(ord.String.Size(s)))
}

func (e *encoder) strings(ss []string) {
	e.int(len(ss))
	for _, s := range ss {
		e.string(s)
	}
}

// time stores microseconds since the epoch; the zero time is stored as 0.
func (e *encoder) time(t time.Time) {
	if t.IsZero() {
		e.int64(0)
		return
	}
	e.int64(t.UnixMicro())
}

// decoder reads fields written by encoder. The first error sticks and
// every later read returns a zero value.
type decoder struct {
	bs  []byte
	err error
}

func (d *decoder) int64() int64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(d.bs)
	if err != nil {
		d.err = err
		return 0
	}
	d.bs = d.bs[n:]
	return v
}

func (d *decoder) uint64() uint64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(d.bs)
	if err != nil {
		d.err = err
		return 0
	}
	d.bs = d.bs[n:]
	return v
}

func (d *decoder) int() int {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(d.bs)
	if err != nil {
		d.err = err
		return 0
	}
	d.bs = d.bs[n:]
	return v
}

func (d *decoder) float64() float64 {
	return math.Float64frombits(d.uint64())
}

func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.bs)
	if err != nil {
		d.err = err
		return ""
	}
	d.bs = d.bs[n:]
	return v
}

func (d *decoder) strings() []string {
	count := d.int()
	if d.err != nil {
		return nil
	}
	// Every string takes at least one byte, so a larger count is corrupt.
	if count < 0 || count > len(d.bs) {
		d.err = fmt.Errorf("invalid slice length %d", count)
		return nil
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, d.string())
	}
	return out
}

func (d *decoder) time() time.Time {
	v := d.int64()
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

func (d *decoder) finish() error {
	if d.err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, d.err)
	}
	return nil
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	var e encoder
	e.int64(int64(id))
	return e.buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	d := decoder{bs: data}
	id := core.ID(d.int64())
	return id, d.finish()
}

// MarshalTextbook serializes a Textbook to bytes.
func MarshalTextbook(tb *core.Textbook) []byte {
	var e encoder
	e.int64(int64(tb.Id))
	e.string(tb.FileName)
	e.string(tb.Title)
	e.int(tb.Grade)
	e.string(tb.Subject)
	e.int(tb.TotalPages)
	e.float64(tb.FileSizeMB)
	e.string(string(tb.Status))
	e.time(tb.ProcessedAt)
	return e.buf
}

// UnmarshalTextbook deserializes a Textbook from bytes.
func UnmarshalTextbook(data []byte) (*core.Textbook, error) {
	d := decoder{bs: data}
	tb := &core.Textbook{
		Id:          core.ID(d.int64()),
		FileName:    d.string(),
		Title:       d.string(),
		Grade:       d.int(),
		Subject:     d.string(),
		TotalPages:  d.int(),
		FileSizeMB:  d.float64(),
		Status:      core.TextbookStatus(d.string()),
		ProcessedAt: d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return tb, nil
}

// MarshalChapter serializes a Chapter to bytes.
func MarshalChapter(ch *core.Chapter) []byte {
	var e encoder
	e.int64(int64(ch.Id))
	e.int64(int64(ch.TextbookId))
	e.int(ch.Number)
	e.string(ch.Title)
	e.strings(ch.Topics)
	e.int(ch.StartPage)
	e.int(ch.EndPage)
	e.time(ch.CreatedAt)
	return e.buf
}

// UnmarshalChapter deserializes a Chapter from bytes.
func UnmarshalChapter(data []byte) (*core.Chapter, error) {
	d := decoder{bs: data}
	ch := &core.Chapter{
		Id:         core.ID(d.int64()),
		TextbookId: core.ID(d.int64()),
		Number:     d.int(),
		Title:      d.string(),
		Topics:     d.strings(),
		StartPage:  d.int(),
		EndPage:    d.int(),
		CreatedAt:  d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return ch, nil
}

// MarshalChunk serializes a ContentChunk to bytes.
func MarshalChunk(ck *core.ContentChunk) []byte {
	var e encoder
	e.int64(int64(ck.Id))
	e.int64(int64(ck.ChapterId))
	e.int(ck.ChunkIndex)
	e.string(ck.Content)
	e.string(ck.ContentType)
	e.int(ck.TokenCount)
	e.int(ck.PageNumber)
	e.string(ck.ContentHash)
	e.time(ck.CreatedAt)
	return e.buf
}

// UnmarshalChunk deserializes a ContentChunk from bytes.
func UnmarshalChunk(data []byte) (*core.ContentChunk, error) {
	d := decoder{bs: data}
	ck := &core.ContentChunk{
		Id:          core.ID(d.int64()),
		ChapterId:   core.ID(d.int64()),
		ChunkIndex:  d.int(),
		Content:     d.string(),
		ContentType: d.string(),
		TokenCount:  d.int(),
		PageNumber:  d.int(),
		ContentHash: d.string(),
		CreatedAt:   d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return ck, nil
}

// MarshalRun serializes an IngestionRun to bytes.
func MarshalRun(run *core.IngestionRun) []byte {
	var e encoder
	e.string(run.ID)
	e.time(run.StartedAt)
	e.time(run.FinishedAt)
	e.int(len(run.Outcomes))
	for _, o := range run.Outcomes {
		e.string(o.FileName)
		e.int(int(o.State))
		e.int(int(o.FailedAt))
		e.string(o.Error)
		e.int64(int64(o.TextbookId))
		e.int(o.Chapters)
		e.int(o.Chunks)
		e.time(o.CommittedAt)
	}
	return e.buf
}

// UnmarshalRun deserializes an IngestionRun from bytes.
func UnmarshalRun(data []byte) (*core.IngestionRun, error) {
	d := decoder{bs: data}
	run := &core.IngestionRun{
		ID:         d.string(),
		StartedAt:  d.time(),
		FinishedAt: d.time(),
	}
	count := d.int()
	if d.err == nil && (count < 0 || count > len(d.bs)) {
		d.err = fmt.Errorf("invalid outcome count %d", count)
	}
	if d.err == nil {
		run.Outcomes = make([]core.DocumentOutcome, 0, count)
		for i := 0; i < count; i++ {
			run.Outcomes = append(run.Outcomes, core.DocumentOutcome{
				FileName:   d.string(),
				State:      core.DocumentState(d.int()),
				FailedAt:   core.DocumentState(d.int()),
				Error:      d.string(),
				TextbookId: core.ID(d.int64()),
				Chapters:   d.int(),
				Chunks:     d.int(),
			})
		}
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return run, nil
}
