// Package template expands the small template language accepted in
// configured transfer paths, for example:
//
//	backups/{{ env "BUILDKITE_BRANCH" }}/{{ os }}-{{ arch }}/
package template

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"text/template"
)

// Expand renders text using the OS environment.
func Expand(id, text string) (string, error) {
	return ExpandWithEnv(id, text, nil)
}

// ExpandWithEnv renders text, resolving env lookups from env when it is not nil.
// Text without template actions is returned unchanged. Rendered templates have
// leading and trailing whitespace removed, slashes are kept as written so a
// trailing "/" survives expansion.
func ExpandWithEnv(id, text string, env map[string]string) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tpl, err := template.New("path").Option("missingkey=zero").Funcs(template.FuncMap{
		"id":   getID(id),
		"env":  getEnvWithMap(env),
		"os":   getOS,
		"arch": getArch,
		"home": getHome,
	}).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %q: %w", text, err)
	}

	var sb strings.Builder
	if err := tpl.Execute(&sb, nil); err != nil {
		return "", fmt.Errorf("failed to execute template %q: %w", text, err)
	}

	return strings.TrimSpace(sb.String()), nil
}

func getID(id string) func() string {
	return func() string {
		return strings.TrimSpace(id)
	}
}

func getEnvWithMap(envMap map[string]string) func(string) string {
	return func(key string) string {
		var value string
		if envMap != nil {
			value = envMap[key]
		} else {
			value = os.Getenv(key)
		}

		return strings.TrimSpace(value)
	}
}

func getOS() string {
	return runtime.GOOS
}

func getArch() string {
	return runtime.GOARCH
}

func getHome() (string, error) {
	return os.UserHomeDir()
}
