package main

import (
	"flag"
	"os"
	"runtime"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"github.com/xlab/catcher"

	"github.com/perlw/vkmodel/frame"
	"github.com/perlw/vkmodel/hud"
	"github.com/perlw/vkmodel/logger"
	"github.com/perlw/vkmodel/myr"
)

func init() {
	// glfw and the Vulkan surface must stay on the main thread.
	runtime.LockOSThread()
}

func validationFromEnv(def bool) bool {
	switch os.Getenv("VK_VALIDATION") {
	case "":
		return def
	case "0", "false", "False", "FALSE":
		return false
	default:
		return true
	}
}

func parseConfig(args []string) (myr.Config, error) {
	cfg := myr.DefaultConfig()

	fs := flag.NewFlagSet("vkmodel", flag.ContinueOnError)
	fs.IntVar(&cfg.Width, "width", cfg.Width, "window width")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "window height")
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "OBJ model to draw")
	fs.StringVar(&cfg.TexturePath, "texture", cfg.TexturePath, "texture image")
	fs.StringVar(&cfg.VertexPath, "vert", cfg.VertexPath, "vertex shader SPIR-V")
	fs.StringVar(&cfg.FragmentPath, "frag", cfg.FragmentPath, "fragment shader SPIR-V")
	fs.IntVar(&cfg.FramesInFlight, "frames", cfg.FramesInFlight, "frames in flight")
	samples := fs.Uint("samples", uint(cfg.MaxSamples), "MSAA sample cap, 1 disables")
	fs.BoolVar(&cfg.HUD, "hud", cfg.HUD, "show stats in the terminal")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "log file used while the hud is shown")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "trace logging")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.MaxSamples = vk.SampleCountFlagBits(*samples)
	cfg.Validation = validationFromEnv(cfg.Validation)

	return cfg, cfg.Validate()
}

func main() {
	defer catcher.Catch(
		catcher.RecvLog(true),
		catcher.RecvDie(-1),
	)

	log := logger.New("main")
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		log.Err(err, "bad arguments")
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		log.Err(err, "exited")
		os.Exit(1)
	}
}

func run(cfg myr.Config) error {
	log := logger.New("myr")
	var display *hud.Display
	if cfg.HUD {
		f, err := os.Create(cfg.LogFile)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}
		defer f.Close()
		log = logger.NewTo("myr", f, f)

		display, err = hud.New(cfg.AppName)
		if err != nil {
			return errors.Wrap(err, "start hud")
		}
		defer display.Close()
	}
	log = log.WithDebug(cfg.Debug)

	m, err := myr.New(cfg, log)
	if err != nil {
		return err
	}
	defer m.Destroy()

	engine, err := frame.New(cfg.FrameConfig(), log, m.Device(), m.Window(), m.Sync(), m.Target())
	if err != nil {
		return err
	}

	var after func(frame.Stats)
	if display != nil {
		after = display.Update
	}
	runErr := engine.Run(after)
	closeErr := engine.Close()
	if runErr != nil {
		return runErr
	}
	stats := engine.Stats()
	log.Log("drew %d frames with %d rebuilds on %s", stats.Frames, stats.Rebuilds, m.GPUName())
	return closeErr
}
