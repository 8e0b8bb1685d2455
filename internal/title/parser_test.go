package title

import (
	"strings"
	"testing"
)

func TestParseTitle(t *testing.T) {
	t.Run("DashWithChannelMatch", func(t *testing.T) {
		got := ParseTitle("Artist - Song (Official Video)", "Artist")
		if got.Song != "Song" || got.Artist != "Artist" {
			t.Errorf("expected Song/Artist, got %+v", got)
		}
		if got.Confidence != 0.9 {
			t.Errorf("expected confidence 0.9, got %v", got.Confidence)
		}
	})

	t.Run("DashChannelMatchReversed", func(t *testing.T) {
		// 频道名匹配第二段时，第二段为歌手
		got := ParseTitle("Song Name - Artist", "Artist")
		if got.Song != "Song Name" || got.Artist != "Artist" || got.Confidence != 0.9 {
			t.Errorf("unexpected result: %+v", got)
		}
	})

	t.Run("DashShortArtist", func(t *testing.T) {
		got := ParseTitle("Adele - Someone Like You", "")
		if got.Artist != "Adele" || got.Song != "Someone Like You" {
			t.Errorf("unexpected result: %+v", got)
		}
		if got.Confidence != 0.8 {
			t.Errorf("expected confidence 0.8, got %v", got.Confidence)
		}
	})

	t.Run("DashFillerWordFallback", func(t *testing.T) {
		// 第一段含填充词时退回默认：第一段为歌名
		got := ParseTitle("The Final Countdown - Greatest Hits Collection Volume One", "")
		if got.Song != "The Final Countdown" {
			t.Errorf("expected first part as song, got %+v", got)
		}
		if got.Confidence != 0.75 {
			t.Errorf("expected confidence 0.75, got %v", got.Confidence)
		}
	})

	t.Run("Feat", func(t *testing.T) {
		got := ParseTitle("Senorita (feat. Camila Cabello)", "")
		if got.Song != "Senorita" || got.Artist != "Camila Cabello" {
			t.Errorf("unexpected result: %+v", got)
		}
		if got.Confidence != 0.7 {
			t.Errorf("expected confidence 0.7, got %v", got.Confidence)
		}
	})

	t.Run("FeatWithChannel", func(t *testing.T) {
		got := ParseTitle("Senorita (ft. Camila Cabello)", "Shawn Mendes")
		if got.Artist != "Shawn Mendes" {
			t.Errorf("channel should win over featured name, got %+v", got)
		}
	})

	t.Run("PipeSeparator", func(t *testing.T) {
		got := ParseTitle("Some Song | Some Label", "")
		if got.Song != "Some Song" || got.Artist != "Some Label" || got.Confidence != 0.6 {
			t.Errorf("unexpected result: %+v", got)
		}
	})

	t.Run("BareTitleWithChannel", func(t *testing.T) {
		got := ParseTitle("Bohemian Rhapsody", "Queen")
		if got.Song != "Bohemian Rhapsody" || got.Artist != "Queen" || got.Confidence != 0.8 {
			t.Errorf("unexpected result: %+v", got)
		}
	})

	t.Run("BareTitleNoChannel", func(t *testing.T) {
		got := ParseTitle("Bohemian Rhapsody", "")
		if got.Artist != "" || got.Confidence != 0.4 {
			t.Errorf("unexpected result: %+v", got)
		}
	})
}

func TestCleanTitle(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Song (Official Video)", "Song"},
		{"Song [Official Audio]", "Song"},
		{"Song (Lyrics)", "Song"},
		{"Song [MV]", "Song"},
		{"Song (Acoustic)", "Song (Acoustic)"}, // 非标记括号保留
	}
	for _, c := range cases {
		if got := CleanTitle(c.input); got != c.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", c.input, got, c.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if similarity("", "abc") != 0 {
		t.Error("empty string should score 0")
	}
	if similarity("Queen", "queen") != 1 {
		t.Error("equal after normalization should score 1")
	}
	if s := similarity("abc", "xyz"); s != 0 {
		t.Errorf("disjoint sets should score 0, got %v", s)
	}
	if s := similarity("abcd", "abce"); s <= 0.5 {
		t.Errorf("mostly overlapping sets should score high, got %v", s)
	}
}

func TestGenerateStrategies(t *testing.T) {
	parsed := ParseTitle("Artist - Song (Official Video)", "Artist")
	strategies := GenerateStrategies("Artist - Song (Official Video)", "Artist", parsed)

	if len(strategies) == 0 {
		t.Fatal("expected at least one strategy")
	}
	if strategies[0].Name != "parsed-song-artist" {
		t.Errorf("high confidence parse should rank first, got %s", strategies[0].Name)
	}
	if strategies[0].Query != "Song Artist" {
		t.Errorf("unexpected first query: %q", strategies[0].Query)
	}

	// 查询词不应有重复
	seen := make(map[string]bool)
	for _, s := range strategies {
		key := strings.ToLower(s.Query)
		if seen[key] {
			t.Errorf("duplicate query %q", s.Query)
		}
		seen[key] = true
	}
}

func TestGenerateStrategiesSkipsShortAndLowConfidence(t *testing.T) {
	parsed := ParsedTitle{Song: "x", Artist: "", Confidence: 0.4}
	strategies := GenerateStrategies("x", "", parsed)
	for _, s := range strategies {
		if s.Name == "parsed-song-artist" || s.Name == "parsed-song" {
			t.Errorf("low confidence strategy %s should be skipped", s.Name)
		}
		if len([]rune(s.Query)) < minQueryLen {
			t.Errorf("query %q shorter than minimum", s.Query)
		}
	}
}
