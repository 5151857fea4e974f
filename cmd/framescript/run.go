package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/reglet-dev/framescript"
	"github.com/reglet-dev/framescript/bridge"
	"github.com/reglet-dev/framescript/host"
	"github.com/reglet-dev/framescript/render"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// runConfig is the validated form of the run command's settings.
type runConfig struct {
	Frames     int     `json:"frames" validate:"gte=0"`
	FPS        float64 `json:"fps" validate:"gt=0"`
	DT         float64 `json:"dt" validate:"gte=0"`
	Realtime   bool    `json:"realtime"`
	Out        string  `json:"out"`
	Format     string  `json:"format" validate:"oneof=png json none"`
	Width      int     `json:"width" validate:"gt=0,lte=8192"`
	Height     int     `json:"height" validate:"gt=0,lte=8192"`
	Scale      int     `json:"scale" validate:"gte=1,lte=16"`
	SkipErrors bool    `json:"skip_errors"`
	Modules    string  `json:"modules"`
	Lang       string  `json:"lang" validate:"omitempty,oneof=js ts"`
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script.js|script.ts|scene.yaml>",
		Short: "Run a script for a number of frames",
		Long: `Run compiles a script module and calls its exported main(t) once per frame.

Frames are written as PNG images, as JSON lines on stdout, or discarded.
A .yaml or .yml argument is read as a scene file naming the script and its
render settings; flags given explicitly override the scene.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(v)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			vars, _ := cmd.Flags().GetStringToString("var")
			return runScript(ctx, v, args[0], runInputs{
				changed: cmd.Flags().Changed,
				vars:    vars,
				stdout:  cmd.OutOrStdout(),
				logger:  logger,
			})
		},
	}

	f := cmd.Flags()
	f.IntP("frames", "n", 60, "number of frames; 0 with --realtime runs until interrupted")
	f.Float64("fps", 30, "frames per second")
	f.Float64("dt", 0, "seconds of script time per frame (default 1/fps)")
	f.Bool("realtime", false, "pace frames with the wall clock")
	f.StringP("format", "f", "json", "frame output: png, json or none")
	f.StringP("out", "o", "frames", "output directory for png frames")
	f.Int("width", 320, "frame width in pixels")
	f.Int("height", 240, "frame height in pixels")
	f.Int("scale", 1, "upscale factor for png frames")
	f.Bool("skip-errors", false, "log failed frames and keep going")
	f.String("modules", "", "directory served to script imports (imports are disabled without it)")
	f.String("lang", "", "source language: js or ts (default from the file extension)")
	f.StringToString("var", nil, "scene template variables (key=value)")
	_ = v.BindPFlags(f)

	return cmd
}

type runInputs struct {
	changed func(name string) bool
	vars    map[string]string
	stdout  io.Writer
	logger  *zap.Logger
}

func loadRunConfig(v *viper.Viper) (runConfig, error) {
	settings := framescript.Config{
		"frames":      v.GetInt("frames"),
		"fps":         v.GetFloat64("fps"),
		"dt":          v.GetFloat64("dt"),
		"realtime":    v.GetBool("realtime"),
		"out":         v.GetString("out"),
		"format":      strings.ToLower(v.GetString("format")),
		"width":       v.GetInt("width"),
		"height":      v.GetInt("height"),
		"scale":       v.GetInt("scale"),
		"skip_errors": v.GetBool("skip-errors"),
		"modules":     v.GetString("modules"),
		"lang":        v.GetString("lang"),
	}
	var cfg runConfig
	if err := framescript.ValidateConfig(settings, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runScript(ctx context.Context, v *viper.Viper, path string, in runInputs) error {
	cfg, err := loadRunConfig(v)
	if err != nil {
		return err
	}

	scriptPath := path
	if isSceneFile(path) {
		scriptPath, err = applySceneFile(&cfg, path, in.vars, in.changed)
		if err != nil {
			return err
		}
	}

	src, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	session, err := host.NewSession(sessionOptions(cfg, scriptPath, in)...)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Load(ctx, string(src)); err != nil {
		return err
	}

	if cfg.Realtime {
		err = session.Play(ctx, cfg.FPS, cfg.Frames)
	} else {
		dt := cfg.DT
		if dt == 0 {
			dt = 1 / cfg.FPS
		}
		err = session.RunFrames(ctx, cfg.Frames, dt)
	}

	stats := session.Stats()
	in.logger.Info("session finished",
		zap.Stringer("session", session.ID()),
		zap.Int("frames", stats.Frames),
		zap.Int("failed", stats.Failed),
		zap.Int("commands", stats.Commands))
	return err
}

func sessionOptions(cfg runConfig, scriptPath string, in runInputs) []host.Option {
	lang := bridge.Language(cfg.Lang)
	if lang == "" {
		lang = bridge.LanguageJS
		if strings.HasSuffix(scriptPath, ".ts") {
			lang = bridge.LanguageTS
		}
	}

	rtOpts := []bridge.Option{
		bridge.WithModulePath("/" + filepath.Base(scriptPath)),
		bridge.WithLanguage(lang),
	}
	if cfg.Modules != "" {
		rtOpts = append(rtOpts, bridge.WithModuleLoader(bridge.FSLoader(os.DirFS(cfg.Modules))))
	}

	policy := host.AbortOnError
	if cfg.SkipErrors {
		policy = host.SkipOnError
	}

	return []host.Option{
		host.WithLogger(in.logger),
		host.WithRuntimeOptions(rtOpts...),
		host.WithErrorPolicy(policy),
		host.WithSink(newSink(cfg, in.stdout)),
	}
}

func newSink(cfg runConfig, stdout io.Writer) render.Sink {
	switch cfg.Format {
	case "png":
		sink := render.NewPNGSink(cfg.Out, cfg.Width, cfg.Height)
		sink.Scale = cfg.Scale
		return sink
	case "json":
		return render.NewJSONSink(stdout)
	default:
		return render.DiscardSink{}
	}
}

func isSceneFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// applySceneFile loads a scene and copies its settings into cfg, except
// for flags set on the command line. It returns the scene's script path.
func applySceneFile(cfg *runConfig, path string, vars map[string]string, changed func(string) bool) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read scene: %w", err)
	}

	templateVars := make(map[string]interface{}, len(vars))
	for k, val := range vars {
		templateVars[k] = val
	}
	scene, err := host.NewSceneLoader().Load(raw, templateVars)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	set := func(name string, apply func()) {
		if changed == nil || !changed(name) {
			apply()
		}
	}
	set("frames", func() { cfg.Frames = scene.Frames })
	set("fps", func() { cfg.FPS = scene.FPS })
	set("width", func() { cfg.Width = scene.Width })
	set("height", func() { cfg.Height = scene.Height })
	set("scale", func() { cfg.Scale = scene.Scale })
	set("skip-errors", func() { cfg.SkipErrors = scene.OnError == host.SkipOnError })
	set("lang", func() { cfg.Lang = string(scene.Language) })
	if scene.Modules != "" {
		set("modules", func() { cfg.Modules = filepath.Join(dir, scene.Modules) })
	}

	if err := framescript.ValidateStruct(cfg); err != nil {
		return "", err
	}
	return filepath.Join(dir, scene.Script), nil
}
