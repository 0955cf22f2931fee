package docs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bot2296/internal/command"
	"bot2296/pkg/cmd"
)

type stub struct {
	name, desc, category string
}

func (s stub) Name() string             { return s.name }
func (s stub) Description() string      { return s.desc }
func (s stub) Category() string         { return s.category }
func (s stub) UserPermissions() []int64 { return nil }

func (s stub) Run(context.Context, *command.SlashInteractionContext) error { return nil }

func testRegistry() *cmd.Registry {
	r := cmd.NewRegistry()
	for _, s := range []stub{
		{"sync", "Sync commands", "Maintenance"},
		{"music-setup", "Create the music channel", "Music"},
		{"help", "Show help", "Information"},
		{"commands-log", "Recent commands", "Maintenance"},
		{"mystery", "No category", "Elsewhere"},
	} {
		r.MustRegister(&command.DiscordAdapter{Cmd: s})
	}
	return r
}

func TestCommandSections(t *testing.T) {
	weights := map[string]int{"Information": 0, "Music": 10, "Maintenance": 60}
	got := CommandSections(testRegistry(), weights)

	order := []string{"### Information", "/help", "### Music", "/music-setup", "### Maintenance", "/commands-log", "/sync", "### Elsewhere", "/mystery"}
	last := -1
	for _, want := range order {
		i := strings.Index(got, want)
		if i < 0 {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
		if i < last {
			t.Fatalf("%q out of order in:\n%s", want, got)
		}
		last = i
	}
}

func TestUpdateReadme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "README.md")
	if err := UpdateReadme(path, testRegistry(), nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw), "# bot2296") || !strings.Contains(string(raw), "- **/music-setup**: Create the music channel") {
		t.Errorf("unexpected README:\n%s", raw)
	}
}
