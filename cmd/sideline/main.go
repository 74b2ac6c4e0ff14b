// Command sideline is a terminal review tool for tagging non-verbal
// communication in game video. mpv plays the video; sideline drives it over
// JSON IPC and keeps the annotation list.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/jwulff/sideline/internal/app"
	"github.com/jwulff/sideline/internal/clock"
	"github.com/jwulff/sideline/internal/config"
	"github.com/jwulff/sideline/internal/mpv"
	"github.com/jwulff/sideline/internal/session"
)

const socketWait = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to sideline.yaml (default $SIDELINE_CONFIG or ./sideline.yaml)")
	noLaunch := flag.Bool("attach", false, "attach to an mpv already listening on the configured socket")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: sideline [flags] [video file or folder]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*configPath, flag.Arg(0), !*noLaunch); err != nil {
		fmt.Fprintf(os.Stderr, "sideline: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, open string, launch bool) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logFile, err := tea.LogToFile(cfg.LogFile, "sideline")
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()
	if p := cfg.Path(); p != "" {
		log.Printf("[INFO] main: config %s", p)
	}

	socket := cfg.Socket
	if socket == "" {
		socket = mpv.SocketPath()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if launch {
		cmd, err := mpv.Launch(ctx, cfg.Binaries.MPV, socket)
		if err != nil {
			return err
		}
		defer func() {
			cancel()
			cmd.Wait()
			os.Remove(socket)
		}()

		waitCtx, waitCancel := context.WithTimeout(ctx, socketWait)
		err = mpv.WaitForSocket(waitCtx, socket)
		waitCancel()
		if err != nil {
			return err
		}
		log.Printf("[INFO] main: mpv started (pid %d)", cmd.Process.Pid)
	}

	var reader *clock.Reader
	if cfg.Features.ClockRecognition {
		reader = clock.NewReader(
			clock.FFmpegGrabber{Binary: cfg.Binaries.FFmpeg},
			clock.Tesseract{Binary: cfg.Binaries.Tesseract},
			clock.Options{Language: cfg.Language, Interval: cfg.AutoReadInterval},
		)
	}

	player := mpv.NewPlayer(nil)
	sess := session.New(player, reader, session.OptionsFromConfig(cfg))
	defer sess.Close()

	model := app.New(sess, player, app.Options{
		Socket:   socket,
		SeekStep: cfg.SeekStep,
		Open:     open,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
