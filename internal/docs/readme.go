// Package docs renders the command reference for README.md.
package docs

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/template"

	"bot2296/internal/command"
	"bot2296/pkg/cmd"

	"github.com/rs/zerolog/log"
)

//go:embed readme.md.tmpl
var readmeTemplate string

// unknownWeight sorts categories missing from the weights last.
const unknownWeight = 1000

type entry struct {
	category string
	name     string
	desc     string
}

// CommandSections lists the registry grouped by category, ordered by weight
// and then by name.
func CommandSections(registry *cmd.Registry, categoryWeights map[string]int) string {
	var entries []entry
	for _, c := range registry.All() {
		e := entry{name: c.Name(), desc: c.Description()}
		if meta, ok := command.Meta(c); ok {
			e.category = meta.Category()
		}
		entries = append(entries, e)
	}

	weight := func(cat string) int {
		if w, ok := categoryWeights[cat]; ok {
			return w
		}
		return unknownWeight
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		if wa, wb := weight(a.category), weight(b.category); wa != wb {
			return wa - wb
		}
		if a.category != b.category {
			return strings.Compare(a.category, b.category)
		}
		return strings.Compare(a.name, b.name)
	})

	var buf bytes.Buffer
	current := ""
	for i, e := range entries {
		if i == 0 || e.category != current {
			if i > 0 {
				buf.WriteString("\n")
			}
			current = e.category
			fmt.Fprintf(&buf, "### %s\n\n", displayCategory(current))
		}
		fmt.Fprintf(&buf, "- **/%s**: %s\n", e.name, e.desc)
	}
	return buf.String()
}

func displayCategory(c string) string {
	if c == "" {
		return "Other"
	}
	return c
}

// Render executes the README template with the command sections.
func Render(registry *cmd.Registry, categoryWeights map[string]int) ([]byte, error) {
	tmpl, err := template.New("readme").Parse(readmeTemplate)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	data := struct{ CommandSections string }{CommandSections(registry, categoryWeights)}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UpdateReadme writes the rendered README to path.
func UpdateReadme(path string, registry *cmd.Registry, categoryWeights map[string]int) error {
	out, err := Render(registry, categoryWeights)
	if err != nil {
		return fmt.Errorf("render readme: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("README updated with current commands")
	return nil
}
