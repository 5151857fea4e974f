package host_test

import (
	"testing"

	"github.com/reglet-dev/framescript/bridge"
	"github.com/reglet-dev/framescript/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// SceneLoaderSuite tests rendering, parsing and validation together.
type SceneLoaderSuite struct {
	suite.Suite
	loader *host.SceneLoader
}

func (s *SceneLoaderSuite) SetupTest() {
	s.loader = host.NewSceneLoader()
}

func (s *SceneLoaderSuite) TestFullScene() {
	raw := `
name: orbit
script: scenes/orbit.ts
language: ts
modules: lib
frames: 120
fps: 60
width: 640
height: 480
scale: 2
on_error: skip
`
	scene, err := s.loader.Load([]byte(raw), nil)
	s.Require().NoError(err)
	s.Equal("orbit", scene.Name)
	s.Equal("scenes/orbit.ts", scene.Script)
	s.Equal(bridge.LanguageTS, scene.Language)
	s.Equal("lib", scene.Modules)
	s.Equal(120, scene.Frames)
	s.Equal(640, scene.Width)
	s.Equal(2, scene.Scale)
	s.Equal(host.SkipOnError, scene.OnError)
	s.InDelta(1.0/60, scene.FrameInterval(), 1e-9)
	s.Len(scene.RuntimeOptions(), 1)
}

func (s *SceneLoaderSuite) TestDefaults() {
	scene, err := s.loader.Load([]byte("name: minimal\nscript: main.js\n"), nil)
	s.Require().NoError(err)

	want := host.DefaultScene()
	want.Name = "minimal"
	want.Script = "main.js"
	s.Equal(want, *scene)
	s.Empty(scene.RuntimeOptions())
}

func (s *SceneLoaderSuite) TestTemplateVars() {
	raw := `
name: "{{.vars.name}}"
script: main.js
frames: {{.vars.frames}}
`
	scene, err := s.loader.Load([]byte(raw), map[string]interface{}{
		"name":   "templated",
		"frames": 12,
	})
	s.Require().NoError(err)
	s.Equal("templated", scene.Name)
	s.Equal(12, scene.Frames)
}

func (s *SceneLoaderSuite) TestStrictTemplatesRejectMissingKeys() {
	_, err := s.loader.Load([]byte("name: {{.vars.name}}\nscript: main.js\n"), nil)
	s.Require().Error(err)
	s.Contains(err.Error(), "failed to render scene")
}

func (s *SceneLoaderSuite) TestLenientTemplates() {
	loader := host.NewSceneLoader(host.WithStrictTemplates(false))
	scene, err := loader.Load([]byte("name: \"{{.vars.name}}\"\nscript: main.js\n"), nil)
	s.Require().NoError(err)
	s.Equal("<no value>", scene.Name)
}

func (s *SceneLoaderSuite) TestTemplatesDisabled() {
	loader := host.NewSceneLoader(host.WithTemplates(false))
	scene, err := loader.Load([]byte("name: \"{{ literal\"\nscript: main.js\n"), nil)
	s.Require().NoError(err)
	s.Equal("{{ literal", scene.Name)
}

func (s *SceneLoaderSuite) TestInvalidScenes() {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "bad yaml", raw: "name: [unterminated\n", want: "failed to parse scene"},
		{name: "missing script", raw: "name: x\n", want: "invalid scene"},
		{name: "zero fps", raw: "name: x\nscript: a.js\nfps: 0\n", want: "invalid scene"},
		{name: "negative frames", raw: "name: x\nscript: a.js\nframes: -1\n", want: "invalid scene"},
		{name: "unknown language", raw: "name: x\nscript: a.js\nlanguage: lua\n", want: "invalid scene"},
		{name: "unknown policy", raw: "name: x\nscript: a.js\non_error: retry\n", want: "invalid scene"},
		{name: "huge frame", raw: "name: x\nscript: a.js\nwidth: 100000\n", want: "invalid scene"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.loader.Load([]byte(tt.raw), nil)
			s.Require().Error(err)
			s.Contains(err.Error(), tt.want)
		})
	}
}

func TestSceneLoaderSuite(t *testing.T) {
	suite.Run(t, new(SceneLoaderSuite))
}

type staticParser struct {
	scene host.Scene
}

func (p staticParser) Parse([]byte) (*host.Scene, error) {
	s := p.scene
	return &s, nil
}

func TestSceneLoader_CustomParser(t *testing.T) {
	want := host.DefaultScene()
	want.Name = "fixed"
	want.Script = "fixed.js"

	loader := host.NewSceneLoader(host.WithSceneParser(staticParser{scene: want}), host.WithTemplates(false))
	scene, err := loader.Load(nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, want, *scene)
}
