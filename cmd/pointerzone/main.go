// Command pointerzone runs the zone-based pointer engine with its HTTP
// control surface and, optionally, a system tray menu.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/pointerzone/internal/app"
	"github.com/ayusman/pointerzone/internal/capture"
	"github.com/ayusman/pointerzone/internal/config"
	"github.com/ayusman/pointerzone/internal/hover"
	"github.com/ayusman/pointerzone/internal/log"
	"github.com/ayusman/pointerzone/internal/server"
	"github.com/ayusman/pointerzone/internal/store"
	"github.com/ayusman/pointerzone/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	listen := flag.String("listen", "", "HTTP listen address (overrides the config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	withTray := flag.Bool("tray", false, "show the system tray menu")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("[MAIN] %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal("[MAIN] %v", err)
	}
	log.SetLevel(level)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatal("[MAIN] create data directory: %v", err)
	}
	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatal("[MAIN] initialize store: %v", err)
	}
	defer st.Close()

	a := app.New(app.Config{
		Store:    st,
		CameraID: cfg.Camera.Device,
		CameraOptions: capture.Options{
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
			FPS:    cfg.Camera.FPS,
		},
		VideoFile:     cfg.Camera.File,
		LoopVideo:     cfg.Camera.Loop,
		PluginDir:     cfg.PluginDir,
		PluginTimeout: time.Duration(cfg.PluginTimeoutSec) * time.Second,
		IconTimeout:   time.Duration(cfg.IconTimeoutSec) * time.Second,
		Settings:      cfg.EngineSettings(),
		Layout:        cfg.Zones(),
	})
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Restore(ctx); err != nil {
		log.Warn("[MAIN] restore: %v", err)
	}
	if err := a.DiscoverPlugins(); err != nil {
		log.Warn("[MAIN] discover plugins: %v", err)
	}

	hub := server.NewEventHub()
	a.OnEvent(hub.Publish)

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.DataDir)
	}
	if staticDir != "" {
		log.Info("[MAIN] serving static files from %s", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir:  staticDir,
		Store:      st,
		Controller: a,
		Frames:     a,
		Events:     hub,
	})

	if err := a.Start(); err != nil {
		log.Error("[MAIN] start pipeline: %v", err)
	}

	go func() {
		log.Info("[MAIN] listening on %s", cfg.Listen)
		if err := srv.ListenAndServe(cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("[MAIN] server: %v", err)
		}
		stop()
	}()

	if *withTray {
		runTray(ctx, a, cfg.Listen, stop)
	}
	<-ctx.Done()

	log.Info("[MAIN] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("[MAIN] server shutdown: %v", err)
	}
}

// runTray blocks on the tray menu until it quits or ctx ends.
func runTray(ctx context.Context, a *app.App, listen string, stop func()) {
	settings := a.Settings()
	t := tray.New(tray.State{
		Enabled:    a.IsEnabled(),
		ShowLayout: settings.ShowLayout,
		EmitEvents: settings.EmitEvents,
	}, tray.Handlers{
		Toggle: a.SetEnabled,
		ShowLayout: func(v bool) {
			if err := a.SetShowLayout(v); err != nil {
				log.Warn("[TRAY] show zones: %v", err)
			}
		},
		EmitEvents: func(v bool) {
			if err := a.SetEmitEvents(v); err != nil {
				log.Warn("[TRAY] emit events: %v", err)
			}
		},
		Settings: func() { openBrowser(settingsURL(listen)) },
		Quit:     stop,
	})

	a.OnEvent(func(ev hover.Event) {
		if ev.Type == hover.Enter {
			t.SetLastZone(ev.ZoneID)
		}
	})

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func settingsURL(listen string) string {
	if strings.HasPrefix(listen, ":") {
		listen = "localhost" + listen
	}
	return "http://" + listen + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("[TRAY] open %s: %v", url, err)
		fmt.Println("Settings:", url)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
