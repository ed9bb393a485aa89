package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"

	"github.com/richinsley/godistortion/effect"
	"github.com/richinsley/godistortion/engine"
	"github.com/richinsley/godistortion/glfwcontext"
	"github.com/richinsley/godistortion/logger"
	"github.com/richinsley/godistortion/options"
	"github.com/richinsley/godistortion/params"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	opts := options.Default()
	var help = flag.Bool("help", false, "Show help message")
	opts.Bind(flag.CommandLine)
	flag.Parse()

	if *help {
		fmt.Println("Pointer-reactive video distortion viewer")
		flag.PrintDefaults()
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "godistortion: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Environment: opts.Environment,
		LogLevel:    opts.LogLevel,
		ServiceName: "godistortion",
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := glfwcontext.InitGraphics(log); err != nil {
		return err
	}
	defer glfwcontext.TerminateGraphics(log)

	win, err := glfwcontext.New(glfwcontext.Config{
		Width:  opts.Width,
		Height: opts.Height,
		Title:  "godistortion - " + string(opts.Variant),
		GLES:   opts.GLES,
		Logger: log,
	})
	if err != nil {
		return err
	}
	defer win.Shutdown()

	store := params.NewStore(effect.Defs(opts.Variant))
	if opts.ParamsFile != "" {
		watcher, err := params.NewWatcher(log, store, opts.ParamsFile)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := watcher.Stop(); err != nil {
				log.Warn("Params watcher stop failed", zap.Error(err))
			}
		}()
	}

	mount := engine.NewMount(engine.Config{
		Options:   opts,
		Host:      win,
		NewDevice: win.NewDevice,
		Params:    store,
		Logger:    log,
	})
	if _, err := mount.Engine(opts.Video); err != nil {
		return err
	}
	defer mount.Unmount()

	win.RegisterKeyCallback(glfw.KeyR, func() {
		store.Reset()
		log.Info("Parameters reset")
	})
	win.RegisterKeyCallback(glfw.KeyS, func() {
		v, _ := store.Get(params.ShowStats)
		on, _ := v.(bool)
		if err := store.Set(params.ShowStats, !on); err != nil {
			log.Warn("Toggle stats failed", zap.Error(err))
		}
	})

	log.Info("Starting interactive render loop")
	win.Run(func() bool { return ctx.Err() != nil })
	if e := mount.Current(); e != nil {
		log.Info("Render loop stopped", zap.Float64("fps", e.FPS()))
	}
	return nil
}
