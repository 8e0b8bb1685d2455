package main

import (
	"lyricsync/internal/app"
	"lyricsync/internal/config"
)

func main() {
	cfg := config.Load()
	app := app.New(cfg)
	app.Run()
}
