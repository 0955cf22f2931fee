package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"bot2296/internal/command"
	"bot2296/internal/storage"
	"bot2296/pkg/cmd"
)

type fakeSyncer struct {
	synced  []string
	cleared []string
	err     error
}

func (f *fakeSyncer) SyncCommands(guildID string) (int, error) {
	f.synced = append(f.synced, guildID)
	return 3, f.err
}

func (f *fakeSyncer) ClearCommands(guildID string) error {
	f.cleared = append(f.cleared, guildID)
	return f.err
}

func TestRunSync(t *testing.T) {
	tests := []struct {
		scope   string
		want    string
		synced  []string
		cleared []string
	}{
		{"current", "Synced 3 command(s) to this server.", []string{"guild-1"}, nil},
		{"global", "Synced 3 global command(s).", []string{""}, nil},
		{"clear_local", "Cleared all commands from this server.", nil, []string{"guild-1"}},
		{"clear_global", "Cleared all global commands.", nil, []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.scope, func(t *testing.T) {
			s := &fakeSyncer{}
			got, err := runSync(s, tt.scope, "guild-1")
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
			if strings.Join(s.synced, ",") != strings.Join(tt.synced, ",") ||
				strings.Join(s.cleared, ",") != strings.Join(tt.cleared, ",") {
				t.Errorf("synced %v cleared %v", s.synced, s.cleared)
			}
		})
	}

	t.Run("Errors", func(t *testing.T) {
		if _, err := runSync(&fakeSyncer{}, "bogus", "g"); err == nil {
			t.Error("invalid scope accepted")
		}
		if _, err := runSync(nil, "current", "g"); err == nil {
			t.Error("nil syncer accepted")
		}
		boom := errors.New("boom")
		if _, err := runSync(&fakeSyncer{err: boom}, "current", "g"); !errors.Is(err, boom) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestBuildHelpByCategory(t *testing.T) {
	r := cmd.NewRegistry()
	for _, c := range []command.DiscordCommand{&SyncCommand{}, &HelpCommand{}, &CommandsLogCommand{}} {
		r.MustRegister(&command.DiscordAdapter{Cmd: c})
	}

	out := buildHelpByCategory(r.All())
	info := strings.Index(out, "🕯️ Information")
	maint := strings.Index(out, "🛠️ Maintenance")
	if info < 0 || maint < 0 || info > maint {
		t.Fatalf("categories out of order:\n%s", out)
	}
	if !strings.Contains(out, "`/sync` - Sync slash commands with Discord") {
		t.Errorf("missing sync line:\n%s", out)
	}
}

func TestCommandHelp(t *testing.T) {
	e := commandHelp(&command.DiscordAdapter{Cmd: &SyncCommand{}}, 1)
	if e.Title != "/sync" {
		t.Errorf("title = %q", e.Title)
	}
	if len(e.Fields) != 1 || e.Fields[0].Value != "/sync <scope>" {
		t.Errorf("fields = %+v", e.Fields)
	}
	if e.Footer == nil || e.Footer.Text != "Bot owner only" {
		t.Errorf("footer = %+v", e.Footer)
	}

	e = commandHelp(&command.DiscordAdapter{Cmd: &CommandsLogCommand{}}, 1)
	if e.Footer == nil || e.Footer.Text != "Requires: Manage Server" {
		t.Errorf("footer = %+v", e.Footer)
	}
}

func TestFormatHistory(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []storage.CommandHistoryRecord{
		{Username: "alice", Command: "sync", Param: "scope=current", Datetime: at},
		{Username: "bob", Command: "help", Datetime: at.Add(-time.Minute)},
	}
	out := formatHistory(records)
	if !strings.HasPrefix(out, "```md\n") || !strings.HasSuffix(out, "```") {
		t.Fatalf("not a code block: %q", out)
	}
	if strings.Index(out, "/sync scope=current") > strings.Index(out, "/help") {
		t.Error("records not kept newest first")
	}

	many := make([]storage.CommandHistoryRecord, 200)
	for i := range many {
		many[i] = storage.CommandHistoryRecord{Username: "user", Command: "help", Datetime: at}
	}
	if got := len(formatHistory(many)); got > discordMaxMessageLength {
		t.Errorf("output length %d exceeds %d", got, discordMaxMessageLength)
	}
}
