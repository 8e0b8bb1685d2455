package lrc

import (
	"testing"
)

const sampleRichsync = `[
	{"ts":1.0,"te":3.0,"x":"Hello world","l":[{"c":"Hello ","o":0},{"c":"world","o":1.2}]},
	{"ts":3.5,"te":6.0,"x":"Second line","l":[{"c":"Second ","o":0},{"c":"line","o":0.8}]}
]`

func TestParseRichsync(t *testing.T) {
	lines, err := ParseRichsync(sampleRichsync)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	first := lines[0]
	if first.Time != 1.0 || first.EndTime != 3.0 || first.Text != "Hello world" {
		t.Errorf("unexpected first line: %+v", first)
	}
	if len(first.Words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(first.Words))
	}
	if first.Words[1].Time != 2.2 {
		t.Errorf("expected second word at 2.2, got %v", first.Words[1].Time)
	}
	if first.Words[0].Approximate || first.Words[1].Approximate {
		t.Error("richsync word timing is real, must not be flagged approximate")
	}

	// 音节不变量：每个音节的结束不晚于下一个音节的开始
	if len(first.Syllables) != 2 {
		t.Fatalf("expected 2 syllables, got %d", len(first.Syllables))
	}
	for i := 0; i+1 < len(first.Syllables); i++ {
		if first.Syllables[i].EndTime > first.Syllables[i+1].Time {
			t.Errorf("syllable %d end %v exceeds next start %v", i, first.Syllables[i].EndTime, first.Syllables[i+1].Time)
		}
	}
	if first.Syllables[1].EndTime != 3.0 {
		t.Errorf("last syllable should end at line end, got %v", first.Syllables[1].EndTime)
	}
}

func TestParseRichsyncInvalid(t *testing.T) {
	if _, err := ParseRichsync("not json"); err == nil {
		t.Error("expected error for invalid richsync body")
	}
}

func TestParseAuto(t *testing.T) {
	t.Run("DetectsRichsync", func(t *testing.T) {
		lines := ParseAuto(sampleRichsync)
		if len(lines) != 2 || len(lines[0].Syllables) == 0 {
			t.Errorf("expected richsync parsing, got %+v", lines)
		}
	})

	t.Run("DetectsLRC", func(t *testing.T) {
		lines := ParseAuto("[00:01.00]Hello\n[00:03.50]World")
		if len(lines) != 2 || lines[0].Text != "Hello" {
			t.Errorf("expected LRC parsing, got %+v", lines)
		}
	})
}
