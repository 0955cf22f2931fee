package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bot2296/internal/discord"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
)

// TypeDiscordForum is the only delivery type the submit endpoint accepts.
const TypeDiscordForum = "DISCORD_FORUM"

const (
	colorEasy   = 0x2ecc71
	colorMedium = 0xe67e22
	colorHard   = 0xe74c3c
)

var languageExt = map[string]string{
	"C++":        "cpp",
	"Java":       "java",
	"Python":     "py",
	"Python3":    "py",
	"JavaScript": "js",
	"TypeScript": "ts",
	"C":          "c",
	"C#":         "cs",
	"Go":         "go",
	"Rust":       "rs",
}

// Submission is the body of POST /api/leetcode/submit.
type Submission struct {
	Type       string `json:"type" binding:"required"`
	Title      string `json:"title" binding:"required"`
	User       string `json:"user" binding:"required"`
	Language   string `json:"language"`
	Code       string `json:"code"`
	URLSlug    string `json:"url_slug" binding:"required"`
	Difficulty string `json:"difficulty"`
	TimeTaken  string `json:"time_taken"`
	ForumID    string `json:"forum_id" binding:"required"`
}

// Forum is where accepted submissions are posted.
type Forum interface {
	FindThread(ctx context.Context, forumID, title string) (string, error)
	CreateThread(ctx context.Context, forumID, title string, post discord.ForumPost) (string, error)
	Reply(ctx context.Context, threadID string, post discord.ForumPost) error
}

// ErrForumNotFound means the submission named a channel that is not a forum.
var ErrForumNotFound = errors.New("forum not found")

// FileName is the attachment name for the submitted code.
func (s Submission) FileName() string {
	ext, ok := languageExt[s.Language]
	if !ok {
		ext = "txt"
	}
	return s.URLSlug + "." + ext
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func difficultyColor(difficulty string) int {
	switch capitalize(difficulty) {
	case "Easy":
		return colorEasy
	case "Medium":
		return colorMedium
	default:
		return colorHard
	}
}

func submissionEmbed(s Submission) *discordgo.MessageEmbed {
	e := embed.NewEmbed().
		SetTitle(s.Title).
		SetURL("https://leetcode.com/problems/" + s.URLSlug).
		SetDescription(fmt.Sprintf("**Difficulty**: %s\n**Language**: %s\n**Time Taken**: %s",
			capitalize(s.Difficulty), capitalize(s.Language), s.TimeTaken)).
		SetColor(difficultyColor(s.Difficulty)).
		SetFooter("LeetCode submission").
		MessageEmbed
	e.Author = &discordgo.MessageEmbedAuthor{Name: "Code by " + s.User}
	return e
}

// deliver posts s into the thread titled like the problem, creating it when
// none exists.
func deliver(ctx context.Context, forum Forum, s Submission) error {
	threadID, err := forum.FindThread(ctx, s.ForumID, s.Title)
	if errors.Is(err, discord.ErrNotForum) {
		return ErrForumNotFound
	}
	if err != nil {
		return err
	}

	post := discord.ForumPost{
		Embed:    submissionEmbed(s),
		FileName: s.FileName(),
		Content:  s.Code,
	}
	if threadID == "" {
		_, err = forum.CreateThread(ctx, s.ForumID, s.Title, post)
		return err
	}
	return forum.Reply(ctx, threadID, post)
}
