package storage

import (
	"testing"
	"time"

	"github.com/poiesic/lectern/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(9223372036854775807)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalTextbook(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name     string
		textbook *core.Textbook
	}{
		{
			name:     "minimal textbook",
			textbook: &core.Textbook{Id: 1, FileName: "a.pdf", Title: "A"},
		},
		{
			name: "full textbook",
			textbook: &core.Textbook{
				Id:          77,
				FileName:    "química-10.pdf",
				Title:       "Química 10",
				Grade:       10,
				Subject:     "chemistry",
				TotalPages:  320,
				FileSizeMB:  14.75,
				Status:      core.StatusReady,
				ProcessedAt: now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalTextbook(tt.textbook)
			decoded, err := UnmarshalTextbook(data)
			require.NoError(t, err)
			assert.Equal(t, tt.textbook, decoded)
		})
	}
}

func TestMarshalUnmarshalChapter(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	chapter := &core.Chapter{
		Id:         5,
		TextbookId: 2,
		Number:     3,
		Title:      "Ecosystems",
		Topics:     []string{"food chains", "energy flow", ""},
		StartPage:  40,
		EndPage:    61,
		CreatedAt:  now,
	}

	decoded, err := UnmarshalChapter(MarshalChapter(chapter))
	require.NoError(t, err)
	assert.Equal(t, chapter, decoded)
}

func TestMarshalUnmarshalChapter_NoTopics(t *testing.T) {
	chapter := &core.Chapter{Id: 1, TextbookId: 1, Title: "Intro"}

	decoded, err := UnmarshalChapter(MarshalChapter(chapter))
	require.NoError(t, err)
	assert.Empty(t, decoded.Topics)
	assert.True(t, decoded.CreatedAt.IsZero())
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	chunk := &core.ContentChunk{
		Id:          9,
		ChapterId:   5,
		ChunkIndex:  0,
		Content:     "Producers make their own food.",
		ContentType: "text",
		TokenCount:  8,
		PageNumber:  41,
		ContentHash: core.ContentHash("Producers make their own food."),
		CreatedAt:   now,
	}

	decoded, err := UnmarshalChunk(MarshalChunk(chunk))
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)
}

func TestMarshalUnmarshalRun(t *testing.T) {
	start := time.Now().UTC().Truncate(time.Microsecond)
	run := &core.IngestionRun{
		ID:         "3f8a1c2e-run",
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Outcomes: []core.DocumentOutcome{
			{FileName: "a.pdf", State: core.DocumentDone, TextbookId: 1, Chapters: 2, Chunks: 9, CommittedAt: start.Add(time.Second)},
			{FileName: "b.pdf", State: core.DocumentFailed, FailedAt: core.DocumentChaptersWritten, Error: "duplicate key"},
			{FileName: "c.pdf", State: core.DocumentSkipped},
		},
	}

	decoded, err := UnmarshalRun(MarshalRun(run))
	require.NoError(t, err)
	assert.Equal(t, run, decoded)
}

func TestUnmarshal_Truncated(t *testing.T) {
	data := MarshalChunk(&core.ContentChunk{Id: 1, ChapterId: 2, Content: "some content here"})

	_, err := UnmarshalChunk(data[:len(data)/2])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	runData := MarshalRun(&core.IngestionRun{ID: "r", Outcomes: []core.DocumentOutcome{{FileName: "x.pdf"}}})
	_, err = UnmarshalRun(runData[:len(runData)-3])
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
