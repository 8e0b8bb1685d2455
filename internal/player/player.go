package player

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Track 本地播放器当前曲目，歌手和歌名分开返回，
// 解析流水线可以直接把歌手当作频道提示使用
type Track struct {
	Artist string
	Title  string
}

// ID 曲目标识，用于检测切歌
func (t Track) ID() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

// NowPlaying 通过playerctl读取当前播放曲目。
// 没有播放器或没有播放时返回错误
func NowPlaying() (Track, error) {
	artist, err := metadata("artist")
	if err != nil {
		return Track{}, err
	}
	title, err := metadata("title")
	if err != nil {
		return Track{}, err
	}
	if title == "" {
		return Track{}, errors.New("no track playing")
	}
	return Track{Artist: artist, Title: title}, nil
}

// Position 当前播放位置（秒）
func Position() (float64, error) {
	out, err := exec.Command("playerctl", "position").Output()
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected playerctl position output: %w", err)
	}
	return seconds, nil
}

func metadata(field string) (string, error) {
	out, err := exec.Command("playerctl", "metadata", field).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
