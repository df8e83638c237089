package main

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"quicklaunch/internal/config"
	"quicklaunch/internal/ipc"
	"quicklaunch/internal/launcher"
	"quicklaunch/internal/sessionlog"
	"quicklaunch/internal/singleinstance"
	"quicklaunch/internal/window"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

// Test seams.
var (
	wailsRunFn    = wails.Run
	tryLockFn     = singleinstance.TryLock
	openJournalFn = sessionlog.Open
)

func main() {
	loadEnvFile()
	root, err := newRootCmd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "quicklaunch:", err)
		os.Exit(2)
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "quicklaunch:", err)
		os.Exit(1)
	}
}

// setupLogging installs the default slog handler: text on stderr, with
// warnings and errors also recorded in the session journal.
func setupLogging(verbose bool) *sessionlog.Journal {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	journal, err := openJournalFn(filepath.Join(config.Dir(), "logs"))
	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if err != nil {
		journal = sessionlog.NewMemory()
	}
	slog.SetDefault(slog.New(sessionlog.NewTeeHandler(base, slog.LevelWarn, journal.Record)))
	if err != nil {
		slog.Warn("[DEBUG-LIFECYCLE] session log file unavailable, keeping entries in memory", "error", err)
	}
	return journal
}

// runApp runs the Wails application until it quits. A startup failure that
// stopped the runtime is returned so the process exits non-zero.
func runApp(opts cliOptions, settings launcher.Settings) error {
	journal := setupLogging(opts.verbose)
	defer func() {
		if err := journal.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "quicklaunch: session log close:", err)
		}
	}()

	store, err := config.NewStore(opts.storePath())
	if err != nil {
		return err
	}

	// The single-popup mode is meant to be launched repeatedly, possibly next
	// to a background instance, so it never takes the lock.
	if !settings.SingleShot {
		lock, err := tryLockFn(singleinstance.DefaultName())
		if errors.Is(err, singleinstance.ErrAlreadyRunning) {
			slog.Info("[DEBUG-LIFECYCLE] another instance is already running, signaling activation")
			if _, sendErr := sendIPCFn(ipc.DefaultEndpoint(), ipc.CommandShowPopup); sendErr != nil {
				slog.Warn("[DEBUG-LIFECYCLE] failed to signal existing instance", "error", sendErr)
			}
			return nil
		}
		if err != nil {
			slog.Warn("[DEBUG-LIFECYCLE] instance lock failed, proceeding without single-instance guard", "error", err)
		}
		if lock != nil {
			defer func() {
				if releaseErr := lock.Release(); releaseErr != nil {
					slog.Warn("[DEBUG-LIFECYCLE] instance lock release failed", "error", releaseErr)
				}
			}()
		}
	}

	app, err := NewApp(settings, store, journal)
	if err != nil {
		return err
	}

	err = wailsRunFn(&options.App{
		Title:         appName,
		Width:         viewSizes[window.Main].width,
		Height:        viewSizes[window.Main].height,
		DisableResize: true,
		// Views are shown by the window controller once the runtime is up.
		StartHidden: true,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 18, G: 20, B: 24, A: 1},
		OnStartup:        app.startup,
		OnDomReady:       app.domReady,
		OnBeforeClose:    app.beforeClose,
		OnShutdown:       app.shutdown,
		Menu:             app.menu(),
		Bind: []any{
			app,
		},
	})
	if err != nil {
		slog.Error("[DEBUG-LIFECYCLE] wails run failed", "error", err)
		return err
	}
	return app.fatalError()
}
