package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/gonewx/dicefidget/pkg/app"
	"github.com/gonewx/dicefidget/pkg/config"
	"github.com/gonewx/dicefidget/pkg/embedded"
)

func main() {
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	die := flag.Int("die", 0, "Initial die size (4, 6, 8, 10, 12, 20); 0 uses the saved preference")
	seed := flag.Uint64("seed", 0, "Random seed; 0 uses the current time")
	flag.Parse()

	// 初始化嵌入资源（dataFS 在 embed.go 中声明）
	embedded.Init(dataFS)

	gameApp, err := app.NewApp(app.Config{
		Verbose: *verbose,
		Seed:    *seed,
		Die:     *die,
	})
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	ebiten.SetWindowSize(config.GameWindowWidth, config.GameWindowHeight)
	ebiten.SetWindowTitle("Dice Fidget")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowClosingHandled(true)

	if err := ebiten.RunGame(gameApp); err != nil {
		log.Fatal(err)
	}
}
