package match

import (
	"math"
	"testing"
)

func TestBest(t *testing.T) {
	t.Run("PicksClosestMatch", func(t *testing.T) {
		candidates := []Candidate{
			{TrackName: "Completely Different", ArtistName: "Nobody"},
			{TrackName: "Someone Like You", ArtistName: "Adele", HasSynced: true},
			{TrackName: "Someone Like You (Live)", ArtistName: "Adele Tribute Band"},
		}
		if got := Best(candidates, "Someone Like You", "Adele"); got != 1 {
			t.Errorf("expected index 1, got %d", got)
		}
	})

	t.Run("ExactArtistBonus", func(t *testing.T) {
		exact := Candidate{TrackName: "Song", ArtistName: "Queen"}
		inexact := Candidate{TrackName: "Song", ArtistName: "Queens"}
		if Score(exact, "Song", "Queen") <= Score(inexact, "Song", "Queen") {
			t.Error("exact artist match should score higher")
		}
	})

	t.Run("SyncedBonus", func(t *testing.T) {
		synced := Candidate{TrackName: "Song", ArtistName: "Queen", HasSynced: true}
		plain := Candidate{TrackName: "Song", ArtistName: "Queen"}
		if diff := Score(synced, "Song", "Queen") - Score(plain, "Song", "Queen"); math.Abs(diff-syncedBonus) > 1e-9 {
			t.Error("synced lyrics should add the synced bonus")
		}
	})

	t.Run("LowScoreFallsBackToFirst", func(t *testing.T) {
		// 所有候选都不相关时，信任提供商的原始排序
		candidates := []Candidate{
			{TrackName: "xy", ArtistName: "zq"},
			{TrackName: "qz", ArtistName: "yx"},
		}
		if got := Best(candidates, "完全不同的歌", "另一位歌手"); got != 0 {
			t.Errorf("expected fallback to first candidate, got %d", got)
		}
	})

	t.Run("StableTie", func(t *testing.T) {
		candidates := []Candidate{
			{TrackName: "Same Song", ArtistName: "Same Artist"},
			{TrackName: "Same Song", ArtistName: "Same Artist"},
		}
		if got := Best(candidates, "Same Song", "Same Artist"); got != 0 {
			t.Errorf("tie should keep original order, got %d", got)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if got := Best(nil, "a", "b"); got != -1 {
			t.Errorf("expected -1 for empty candidates, got %d", got)
		}
	})
}
