// fidget-term 在终端里运行骰子玩具
//
// 使用方法：
//
//	go run ./cmd/fidget-term [--die 20] [--seed 42] [--verbose]
//
// 操作：鼠标点击脉冲，Space 掷骰，1-6 选骰子，g 告别，e 特效，q/Esc 退出
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/gonewx/dicefidget/pkg/config"
	"github.com/gonewx/dicefidget/pkg/systems"
)

// frameInterval ~60 FPS
const frameInterval = 16 * time.Millisecond

type termApp struct {
	screen  tcell.Screen
	host    *termHost
	session *systems.Session

	dieSizes []int
	die      int
	status   string
	messages []string

	buttons tcell.ButtonMask // 上一个鼠标事件的按键状态
	pulses  int
}

// Announce 实现 systems.Announcer
func (a *termApp) Announce(message string) {
	log.Printf("[Announce] %s", message)
	a.messages = append(a.messages, message)
	if len(a.messages) > 3 {
		a.messages = a.messages[1:]
	}
}

func newTermApp(screen tcell.Screen, cfg *config.FidgetConfig, seed uint64, die int) *termApp {
	cols, rows := screen.Size()
	a := &termApp{
		screen: screen,
		host:   &termHost{cols: cols, rows: rows},
		die:    die,
	}
	a.session = systems.NewSession(systems.SessionOptions{
		Config:    cfg,
		Seed:      seed,
		Host:      a.host,
		Announcer: a,
	})
	a.dieSizes = a.session.Config().DieSizes()
	if _, ok := cfg.DropTables[a.die]; !ok {
		a.die = config.FallbackDieSize
	}

	if !a.session.InitPhysics() {
		log.Printf("[FidgetTerm] 终端太小，物理已禁用")
	}
	a.session.InitLoot()
	a.session.InitParticles()
	return a
}

// handleEvent 返回 false 表示退出
func (a *termApp) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		switch r := ev.Rune(); {
		case r == 'q':
			return false
		case r == ' ':
			a.roll()
		case r >= '1' && r <= '6':
			if i := int(r - '1'); i < len(a.dieSizes) {
				a.die = a.dieSizes[i]
			}
		case r == 'g':
			a.session.TriggerGoodbye()
		case r == 'e':
			a.session.SetEffectsEnabled(!a.session.EffectsEnabled())
		}

	case *tcell.EventMouse:
		// 按住拖动时 tcell 会持续上报 Button1，只在按下的那一刻触发脉冲
		pressed := ev.Buttons()&tcell.Button1 != 0 && a.buttons&tcell.Button1 == 0
		a.buttons = ev.Buttons()
		if pressed {
			col, row := ev.Position()
			x, y := pixelAt(col, row)
			a.session.Pulse(x, y)
			a.pulses++
		}

	case *tcell.EventResize:
		a.screen.Sync()
		a.host.cols, a.host.rows = a.screen.Size()
		if !a.session.PhysicsEnabled() {
			a.session.InitPhysics()
		} else {
			a.session.Resize()
		}
	}
	return true
}

func (a *termApp) roll() {
	w, h := a.host.ViewportSize()
	out := a.session.RollDie(a.die, w/2, h*config.DropHeightRatio)
	a.status = fmt.Sprintf("d%d -> %d", out.Die, out.Result)
	if !out.Qualified {
		a.status += " (consolation)"
	}
}

func (a *termApp) draw() {
	a.screen.Clear()
	drawSession(a.screen, a.host, a.session)

	lines := []string{
		fmt.Sprintf("d%d  cubes:%d  goodbye:%s  %s", a.die, a.session.GetCubeCount(), a.session.GoodbyeState(), a.status),
		"[space] roll [1-6] die [g] goodbye [e] effects [q] quit",
	}
	lines = append(lines, a.messages...)
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	for row, line := range lines {
		for col, r := range []rune(line) {
			if col >= a.host.cols {
				break
			}
			a.screen.SetContent(col, row, r, nil, style)
		}
	}
	a.screen.Show()
}

func (a *termApp) run() {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				close(eventChan)
				return
			}
			eventChan <- ev
		}
	}()

	last := time.Now()
	for {
		select {
		case ev, ok := <-eventChan:
			if !ok || !a.handleEvent(ev) {
				return
			}

		case now := <-ticker.C:
			a.session.Update(now.Sub(last).Seconds())
			last = now
			a.draw()
			a.session.EndFrame()
		}
	}
}

func main() {
	verbose := flag.Bool("verbose", false, "Enable verbose logging (to stderr)")
	die := flag.Int("die", config.FallbackDieSize, "Die size (4, 6, 8, 10, 12, 20)")
	seed := flag.Uint64("seed", 0, "Random seed; 0 uses the current time")
	configPath := flag.String("config", "data/fidget.yaml", "Tuning file; the built-in defaults are used if it cannot be loaded")
	flag.Parse()

	if !*verbose {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.LoadFidgetConfig(*configPath)
	if err != nil {
		log.Printf("[FidgetTerm] %v，使用内置默认配置", err)
		cfg = config.DefaultFidgetConfig()
	}
	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	screen.EnableMouse()
	defer screen.Fini()

	newTermApp(screen, cfg, *seed, *die).run()
}
