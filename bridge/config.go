package bridge

import (
	"path"

	"github.com/evanw/esbuild/pkg/api"
)

// Language selects how module source is transformed before evaluation.
type Language string

const (
	LanguageJS Language = "js"
	LanguageTS Language = "ts"
)

// DefaultModulePath is the synthetic location of the compiled module.
const DefaultModulePath = "/main.js"

// EntryPoint is the export invoked once per frame.
const EntryPoint = "main"

// Config holds the Runtime settings that can come from configuration files.
type Config struct {
	// ModulePath is the synthetic, absolute location of the main module.
	// Relative imports resolve against its directory.
	ModulePath string `json:"module_path" validate:"required,startswith=/"`

	// Language of the main module source.
	Language Language `json:"language" validate:"oneof=js ts"`

	// EnableConsole installs a console object routed to the logger.
	EnableConsole bool `json:"enable_console"`
}

// DefaultConfig returns the settings used when no option overrides them.
func DefaultConfig() Config {
	return Config{
		ModulePath:    DefaultModulePath,
		Language:      LanguageJS,
		EnableConsole: true,
	}
}

// Specifier is the module URL used in diagnostics, e.g. file:///main.js.
func (c Config) Specifier() string {
	return "file://" + c.ModulePath
}

func (l Language) loader() api.Loader {
	if l == LanguageTS {
		return api.LoaderTS
	}
	return api.LoaderJS
}

// languageFor picks the language of an imported module from its extension,
// falling back to the configured language.
func languageFor(p string, fallback Language) Language {
	switch path.Ext(p) {
	case ".ts", ".mts", ".cts":
		return LanguageTS
	case ".js", ".mjs", ".cjs":
		return LanguageJS
	default:
		return fallback
	}
}
