package caption

import (
	"errors"
	"strings"
	"testing"
)

func TestReassembleShiftsOffsets(t *testing.T) {
	chunks := []ChunkTranscript{
		{
			Index:       0,
			StartOffset: 0,
			Words:       []Word{{Text: "first", Start: 10.0, End: 10.4}},
			Text:        "first",
			Duration:    600,
		},
		{
			Index:       1,
			StartOffset: 600,
			Words:       []Word{{Text: "second", Start: 5.0, End: 5.4}},
			Text:        "second",
			Duration:    300,
		},
	}
	timeline := Reassemble(chunks)
	if len(timeline.Words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(timeline.Words))
	}
	if timeline.Words[0].Start != 10.0 {
		t.Errorf("chunk 0 word start = %v, want 10.0", timeline.Words[0].Start)
	}
	if timeline.Words[1].Start != 605.0 {
		t.Errorf("chunk 1 word start = %v, want 605.0", timeline.Words[1].Start)
	}
	if timeline.TotalDuration != 900 {
		t.Errorf("total duration = %v, want 900", timeline.TotalDuration)
	}
	if timeline.TotalWords != 2 {
		t.Errorf("total words = %d, want 2", timeline.TotalWords)
	}
	if timeline.ChunksOK != 2 {
		t.Errorf("chunks ok = %d, want 2", timeline.ChunksOK)
	}
}

func TestReassemblePartialFailure(t *testing.T) {
	chunks := []ChunkTranscript{
		{Index: 0, StartOffset: 0, Words: []Word{{Text: "kept", Start: 0, End: 0.5}}, Text: "kept", Duration: 600},
		{Index: 1, StartOffset: 600, Err: errors.New("upstream timeout")},
		{Index: 2, StartOffset: 1200, Words: []Word{{Text: "also", Start: 1, End: 1.5}}, Text: "also", Duration: 600},
	}
	timeline := Reassemble(chunks)
	if len(timeline.Words) != 2 {
		t.Fatalf("expected failed chunk to contribute zero words, got %d", len(timeline.Words))
	}
	if !strings.Contains(timeline.Text, "[chunk 1 failed: upstream timeout]") {
		t.Errorf("failure marker missing from text: %q", timeline.Text)
	}
	if !strings.Contains(timeline.Text, "kept") || !strings.Contains(timeline.Text, "also") {
		t.Errorf("surviving chunk text missing: %q", timeline.Text)
	}
	if len(timeline.FailedChunks) != 1 || timeline.FailedChunks[0] != 1 {
		t.Errorf("failed chunks = %v, want [1]", timeline.FailedChunks)
	}
	if timeline.ChunksOK != 2 {
		t.Errorf("chunks ok = %d, want 2", timeline.ChunksOK)
	}
	if timeline.AllFailed() {
		t.Error("AllFailed must be false when any chunk succeeded")
	}
}

func TestReassembleAllFailed(t *testing.T) {
	chunks := []ChunkTranscript{
		{Index: 0, Err: errors.New("boom")},
		{Index: 1, StartOffset: 600, Err: errors.New("boom")},
	}
	timeline := Reassemble(chunks)
	if !timeline.AllFailed() {
		t.Error("AllFailed must be true when every chunk failed")
	}
	if len(timeline.Words) != 0 {
		t.Errorf("expected no words, got %d", len(timeline.Words))
	}
}

func TestReassembleLanguageFromFirstSuccess(t *testing.T) {
	chunks := []ChunkTranscript{
		{Index: 0, Err: errors.New("bad chunk")},
		{Index: 1, StartOffset: 600, Words: []Word{{Text: "hola", Start: 0, End: 0.3}}, Text: "hola", Duration: 300, Language: "es"},
	}
	timeline := Reassemble(chunks)
	if timeline.Language != "es" {
		t.Errorf("language = %q, want %q", timeline.Language, "es")
	}
}
