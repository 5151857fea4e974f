package host

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/reglet-dev/framescript"
	"github.com/reglet-dev/framescript/bridge"
	"gopkg.in/yaml.v3"
)

// Scene describes a complete run: which script to play and how to render it.
type Scene struct {
	Name     string          `yaml:"name" json:"name" validate:"required"`
	Script   string          `yaml:"script" json:"script" validate:"required"`
	Language bridge.Language `yaml:"language" json:"language" validate:"omitempty,oneof=js ts"`
	// Modules is the directory imports are served from, relative to the
	// scene file.
	Modules string      `yaml:"modules" json:"modules"`
	Frames  int         `yaml:"frames" json:"frames" validate:"gte=0"`
	FPS     float64     `yaml:"fps" json:"fps" validate:"gt=0"`
	Width   int         `yaml:"width" json:"width" validate:"gt=0,lte=8192"`
	Height  int         `yaml:"height" json:"height" validate:"gt=0,lte=8192"`
	Scale   int         `yaml:"scale" json:"scale" validate:"gte=1,lte=16"`
	OnError ErrorPolicy `yaml:"on_error" json:"on_error" validate:"omitempty,oneof=abort skip"`
}

// DefaultScene returns the values used for fields a scene file leaves out.
func DefaultScene() Scene {
	return Scene{
		Frames:  60,
		FPS:     30,
		Width:   320,
		Height:  240,
		Scale:   1,
		OnError: AbortOnError,
	}
}

// SceneParser turns manifest bytes into a Scene.
type SceneParser interface {
	Parse(data []byte) (*Scene, error)
}

// YAMLSceneParser parses YAML scene files over DefaultScene.
type YAMLSceneParser struct{}

func (YAMLSceneParser) Parse(data []byte) (*Scene, error) {
	scene := DefaultScene()
	if err := yaml.Unmarshal(data, &scene); err != nil {
		return nil, err
	}
	return &scene, nil
}

type sceneLoaderConfig struct {
	parser          SceneParser
	templates       bool
	strictTemplates bool
}

// SceneLoaderOption configures a SceneLoader.
type SceneLoaderOption func(*sceneLoaderConfig)

// WithSceneParser sets a custom scene parser.
func WithSceneParser(p SceneParser) SceneLoaderOption {
	return func(c *sceneLoaderConfig) {
		c.parser = p
	}
}

// WithTemplates enables or disables template rendering of the raw manifest.
func WithTemplates(enabled bool) SceneLoaderOption {
	return func(c *sceneLoaderConfig) {
		c.templates = enabled
	}
}

// WithStrictTemplates makes rendering fail when a referenced key is missing.
// It is on by default.
func WithStrictTemplates(enabled bool) SceneLoaderOption {
	return func(c *sceneLoaderConfig) {
		c.strictTemplates = enabled
	}
}

// SceneLoader renders, parses and validates scene manifests.
type SceneLoader struct {
	config sceneLoaderConfig
}

// NewSceneLoader creates a SceneLoader with defaults.
func NewSceneLoader(opts ...SceneLoaderOption) *SceneLoader {
	cfg := sceneLoaderConfig{
		parser:          YAMLSceneParser{},
		templates:       true,
		strictTemplates: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &SceneLoader{config: cfg}
}

// Load renders raw with vars available as {{.vars.key}}, parses the result
// and validates it.
func (l *SceneLoader) Load(raw []byte, vars map[string]interface{}) (*Scene, error) {
	data := raw
	if l.config.templates {
		var err error
		data, err = l.render(raw, vars)
		if err != nil {
			return nil, fmt.Errorf("failed to render scene: %w", err)
		}
	}

	scene, err := l.config.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scene: %w", err)
	}
	if scene.OnError == "" {
		scene.OnError = AbortOnError
	}
	if err := framescript.ValidateStruct(scene); err != nil {
		return nil, fmt.Errorf("invalid scene: %w", err)
	}
	return scene, nil
}

func (l *SceneLoader) render(raw []byte, vars map[string]interface{}) ([]byte, error) {
	tmpl := template.New("scene")
	if l.config.strictTemplates {
		tmpl = tmpl.Option("missingkey=error")
	}
	tmpl, err := tmpl.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse scene template: %w", err)
	}

	if vars == nil {
		vars = map[string]interface{}{}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]interface{}{"vars": vars}); err != nil {
		return nil, fmt.Errorf("failed to execute scene template: %w", err)
	}
	return buf.Bytes(), nil
}

// FrameInterval is the virtual time between frames, in seconds.
func (s *Scene) FrameInterval() float64 {
	return 1 / s.FPS
}

// RuntimeOptions returns the bridge options implied by the scene.
func (s *Scene) RuntimeOptions() []bridge.Option {
	var opts []bridge.Option
	if s.Language != "" {
		opts = append(opts, bridge.WithLanguage(s.Language))
	}
	return opts
}
