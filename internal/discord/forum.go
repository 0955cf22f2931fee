package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrNotForum is returned when a channel id does not name a forum channel.
var ErrNotForum = errors.New("channel is not a forum")

const archivedPageSize = 50

// ForumPost is one message posted into a forum thread.
type ForumPost struct {
	Embed    *discordgo.MessageEmbed
	FileName string
	Content  string
}

func (p ForumPost) message() *discordgo.MessageSend {
	msg := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{p.Embed}}
	if p.FileName != "" {
		msg.Files = []*discordgo.File{{
			Name:        p.FileName,
			ContentType: "text/plain",
			Reader:      strings.NewReader(p.Content),
		}}
	}
	return msg
}

// Forum finds and creates forum threads over the REST API.
type Forum struct {
	dg *discordgo.Session
}

func NewForum(dg *discordgo.Session) *Forum {
	return &Forum{dg: dg}
}

// FindThread looks for a thread of forumID named title, ignoring case and
// surrounding space. Active threads are searched before archived ones. An
// empty id with a nil error means no thread matched.
func (f *Forum) FindThread(ctx context.Context, forumID, title string) (string, error) {
	forum, err := f.dg.Channel(forumID, discordgo.WithContext(ctx))
	if err != nil {
		var rest *discordgo.RESTError
		if errors.As(err, &rest) && gone(rest) {
			return "", ErrNotForum
		}
		return "", fmt.Errorf("failed to fetch forum %s: %w", forumID, err)
	}
	if forum.Type != discordgo.ChannelTypeGuildForum {
		return "", ErrNotForum
	}

	active, err := f.dg.GuildThreadsActive(forum.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to list active threads: %w", err)
	}
	if id := threadByTitle(active.Threads, forumID, title); id != "" {
		return id, nil
	}

	var before *discordgo.Channel
	for {
		page, err := f.dg.ThreadsArchived(forumID, beforeTimestamp(before), archivedPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return "", fmt.Errorf("failed to list archived threads: %w", err)
		}
		if id := threadByTitle(page.Threads, forumID, title); id != "" {
			return id, nil
		}
		if !page.HasMore || len(page.Threads) == 0 {
			return "", nil
		}
		before = page.Threads[len(page.Threads)-1]
	}
}

// CreateThread opens a new thread in forumID with post as its first message.
func (f *Forum) CreateThread(ctx context.Context, forumID, title string, post ForumPost) (string, error) {
	th, err := f.dg.ForumThreadStartComplex(forumID, &discordgo.ThreadStart{Name: title}, post.message(), discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return th.ID, nil
}

// Reply appends post to an existing thread.
func (f *Forum) Reply(ctx context.Context, threadID string, post ForumPost) error {
	if _, err := f.dg.ChannelMessageSendComplex(threadID, post.message(), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to post in thread: %w", err)
	}
	return nil
}

func threadByTitle(threads []*discordgo.Channel, parentID, title string) string {
	want := strings.ToLower(strings.TrimSpace(title))
	for _, th := range threads {
		if th.ParentID != parentID {
			continue
		}
		if strings.ToLower(strings.TrimSpace(th.Name)) == want {
			return th.ID
		}
	}
	return ""
}

func beforeTimestamp(last *discordgo.Channel) *time.Time {
	if last == nil || last.ThreadMetadata == nil {
		return nil
	}
	t := last.ThreadMetadata.ArchiveTimestamp
	return &t
}
