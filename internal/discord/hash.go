package discord

import (
	"cmp"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"slices"

	"github.com/bwmarrin/discordgo"
)

// hashCommand fingerprints the fields of a definition Discord stores, so an
// unchanged command is not pushed again. Ids and versions are ignored.
func hashCommand(c *discordgo.ApplicationCommand) string {
	stable := map[string]any{
		"name":        c.Name,
		"description": c.Description,
		"type":        c.Type,
	}
	if c.DefaultMemberPermissions != nil {
		stable["permissions"] = *c.DefaultMemberPermissions
	}
	if len(c.Options) > 0 {
		stable["options"] = normalizeOptions(c.Options)
	}
	raw, _ := json.Marshal(stable)
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:])
}

type optionShape struct {
	Name        string                                 `json:"name"`
	Description string                                 `json:"description"`
	Type        discordgo.ApplicationCommandOptionType `json:"type"`
	Required    bool                                   `json:"required"`
	Choices     []choiceShape                          `json:"choices,omitempty"`
	Options     []optionShape                          `json:"options,omitempty"`
}

type choiceShape struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// normalizeOptions orders options by name so declaration order does not
// change the hash.
func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []optionShape {
	out := make([]optionShape, 0, len(opts))
	for _, o := range opts {
		shape := optionShape{
			Name:        o.Name,
			Description: o.Description,
			Type:        o.Type,
			Required:    o.Required,
		}
		for _, ch := range o.Choices {
			shape.Choices = append(shape.Choices, choiceShape{Name: ch.Name, Value: ch.Value})
		}
		if len(o.Options) > 0 {
			shape.Options = normalizeOptions(o.Options)
		}
		out = append(out, shape)
	}
	slices.SortFunc(out, func(a, b optionShape) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
