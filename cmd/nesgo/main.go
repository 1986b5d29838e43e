// Package main implements the nesgo NES emulator executable.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"nesgo/internal/app"
	"nesgo/internal/version"
)

func main() {
	var (
		romFile    = flag.String("rom", "", "Path to NES ROM file (optional for GUI mode)")
		configFile = flag.String("config", "", "Path to configuration file")
		nogui      = flag.Bool("nogui", false, "Run without GUI (headless mode)")
		help       = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}
	if *showVer {
		version.PrintBuildInfo()
		os.Exit(0)
	}

	setupGracefulShutdown()

	fmt.Println("nesgo - Go NES Emulator starting...")

	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}

	application, err := app.NewApplicationWithMode(configPath, *nogui)
	if err != nil {
		log.Fatalf("failed to create application: %v", err)
	}

	if *nogui {
		application.GetConfig().Video.Backend = "headless"
		fmt.Println("headless mode requested")
	}
	defer func() {
		if err := application.Cleanup(); err != nil {
			log.Printf("application cleanup error: %v", err)
		}
	}()

	if *romFile != "" {
		fmt.Printf("loading ROM: %s\n", *romFile)
		if err := application.LoadROM(*romFile); err != nil {
			log.Fatalf("failed to load ROM: %v", err)
		}
		fmt.Println("ROM loaded")
	}

	if *nogui {
		if *romFile == "" {
			log.Fatal("ROM file required for headless mode")
		}
		runHeadlessMode(application)
	} else {
		if err := runGUIMode(application); err != nil {
			log.Fatalf("GUI mode failed: %v", err)
		}
	}

	fmt.Println("emulator shutting down")
}

// runGUIMode starts the full GUI application and blocks until it exits.
func runGUIMode(application *app.Application) error {
	config := application.GetConfig()
	windowWidth, windowHeight := config.GetWindowResolution()
	fmt.Printf("  window: %dx%d (scale %dx)\n", windowWidth, windowHeight, config.Window.Scale)
	fmt.Printf("  audio:  %s (%d Hz, %.0f%% volume)\n",
		enabledString(config.Audio.Enabled), config.Audio.SampleRate, config.Audio.Volume*100)
	fmt.Printf("  video:  %s, %s, vsync %s\n",
		config.Video.Filter, config.Video.AspectRatio, enabledString(config.Video.VSync))

	if err := application.Run(); err != nil {
		return fmt.Errorf("application run failed: %w", err)
	}

	fmt.Printf("session stats: %d frames in %v\n", application.GetFrameCount(), application.GetUptime())
	return nil
}

// runHeadlessMode runs the emulator without presenting frames, for
// automation and smoke testing. It reports the frames handed to the
// headless backend's window rather than dumping images to disk.
func runHeadlessMode(application *app.Application) {
	fmt.Println("running headless; Ctrl+C to stop")
	if err := application.Run(); err != nil {
		log.Fatalf("headless run failed: %v", err)
	}
	fmt.Printf("session stats: %d frames in %v\n", application.GetFrameCount(), application.GetUptime())
}

func setupGracefulShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\ninterrupt received, shutting down")
		os.Exit(0)
	}()
}

func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func printUsage() {
	fmt.Println("nesgo - Go NES Emulator")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  An NES (Nintendo Entertainment System) emulator written in Go,")
	fmt.Println("  covering NROM/MMC1/UxROM/CNROM cartridges with Ebitengine graphics and audio.")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  nesgo [options]                    # Start GUI mode without ROM")
	fmt.Println("  nesgo -rom <file> [options]        # Start with ROM loaded")
	fmt.Println("  nesgo -nogui -rom <file> [options] # Run headless mode")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("CONTROLS (Default, Player 1 only):")
	fmt.Println("    Arrow Keys / WASD - D-Pad")
	fmt.Println("    J                 - A Button")
	fmt.Println("    K                 - B Button")
	fmt.Println("    Enter             - Start")
	fmt.Println("    Space             - Select")
	fmt.Println("    Escape            - Quit")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Println("  Config file: ./config/nesgo.json")
	fmt.Println("  ROMs:        ./roms/")
	fmt.Println()
	fmt.Println("SUPPORTED FORMATS:")
	fmt.Println("  - iNES (.nes)")
	fmt.Println("  - Mappers: NROM, MMC1, UxROM, CNROM")
}
