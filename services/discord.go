package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"atomrouter/models"

	"github.com/bwmarrin/discordgo"
)

const discordMessageLimit = 2000

// DiscordService handles Discord bot interactions, routing prefixed messages
// through the same Router as the HTTP API
type DiscordService struct {
	session       *discordgo.Session
	router        *Router
	store         *ArtifactStore
	commandPrefix string
	useHosted     bool
	enabled       bool
	startTime     time.Time
}

// discordReply is what gets posted back for one envelope
type discordReply struct {
	Content    string
	Attachment string
}

// NewDiscordService creates a new Discord service instance. Without a bot token
// the service is returned disabled.
func NewDiscordService(cfg models.DiscordConfig, router *Router, store *ArtifactStore) *DiscordService {
	commandPrefix := cfg.CommandPrefix
	if commandPrefix == "" {
		commandPrefix = "!atom "
	}

	service := &DiscordService{
		router:        router,
		store:         store,
		commandPrefix: commandPrefix,
		useHosted:     cfg.UseHosted,
		startTime:     time.Now(),
	}

	if cfg.Token == "" {
		slog.Info("discord bot disabled: DISCORD_BOT_TOKEN not set")
		return service
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		slog.Error("error creating discord session", "error", err)
		return service
	}

	service.session = session

	session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) {
		slog.Info("discord bot online", "user", event.User.Username, "guilds", len(event.Guilds))
	})
	session.AddHandler(service.messageCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	service.enabled = true
	slog.Info("discord service initialized", "prefix", commandPrefix, "hosted", cfg.UseHosted)

	return service
}

// Start opens the gateway connection
func (d *DiscordService) Start() error {
	if !d.enabled {
		return fmt.Errorf("discord service not enabled (missing bot token)")
	}

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("error opening discord connection: %w", err)
	}

	slog.Info("discord bot started", "usage", d.commandPrefix+"<message>")
	return nil
}

// Stop closes the Discord bot connection
func (d *DiscordService) Stop() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

// commandMessage returns the chat message following the command prefix
func (d *DiscordService) commandMessage(content string) (string, bool) {
	if !strings.HasPrefix(content, d.commandPrefix) {
		return "", false
	}
	return strings.TrimSpace(content[len(d.commandPrefix):]), true
}

func (d *DiscordService) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	chatMessage, ok := d.commandMessage(m.Content)
	if !ok {
		return
	}
	if chatMessage == "" {
		d.sendMessage(s, m.ChannelID, fmt.Sprintf("Please provide a message after `%s`", strings.TrimSpace(d.commandPrefix)))
		return
	}

	s.ChannelTyping(m.ChannelID)

	envelope := d.router.Route(context.Background(), chatMessage, d.useHosted)
	d.sendReply(s, m.ChannelID, replyFor(envelope))

	slog.Info("discord chat", "user", m.Author.Username, "channel", m.ChannelID, "type", envelope.Type)
}

// replyFor maps an envelope onto a Discord reply
func replyFor(envelope models.Envelope) discordReply {
	switch envelope.Type {
	case models.EnvelopeFile, models.EnvelopeImage:
		return discordReply{Content: envelope.Message, Attachment: envelope.Filename}
	case models.EnvelopeError:
		return discordReply{Content: "Error: " + envelope.Response}
	default:
		content := envelope.Response
		if strings.TrimSpace(content) == "" {
			content = "(empty response)"
		}
		return discordReply{Content: content}
	}
}

func (d *DiscordService) sendReply(s *discordgo.Session, channelID string, reply discordReply) {
	if reply.Attachment == "" {
		d.sendMessage(s, channelID, reply.Content)
		return
	}

	f, _, err := d.store.Open(reply.Attachment)
	if err != nil {
		slog.Error("error opening artifact for discord", "filename", reply.Attachment, "error", err)
		d.sendMessage(s, channelID, reply.Content)
		return
	}
	defer f.Close()

	_, err = s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: reply.Content,
		Files: []*discordgo.File{{
			Name:        reply.Attachment,
			ContentType: ContentTypeFor(reply.Attachment),
			Reader:      f,
		}},
	})
	if err != nil {
		slog.Error("error uploading discord attachment", "filename", reply.Attachment, "error", err)
	}
}

// sendMessage sends a message to Discord, handling length limits
func (d *DiscordService) sendMessage(s *discordgo.Session, channelID, message string) {
	if len(message) <= discordMessageLimit {
		if _, err := s.ChannelMessageSend(channelID, message); err != nil {
			slog.Error("error sending discord message", "error", err)
		}
		return
	}

	chunks := splitMessage(message, 1900)
	for i, chunk := range chunks {
		if i > 0 {
			chunk = fmt.Sprintf("...continued:\n%s", chunk)
		}
		if i < len(chunks)-1 {
			chunk = chunk + "\n..."
		}

		if _, err := s.ChannelMessageSend(channelID, chunk); err != nil {
			slog.Error("error sending discord message chunk", "chunk", i, "error", err)
		}

		// Small delay between messages to avoid rate limiting
		time.Sleep(200 * time.Millisecond)
	}
}

// splitMessage splits a message into chunks of at most maxLength bytes,
// preferring word boundaries and never cutting a UTF-8 sequence
func splitMessage(message string, maxLength int) []string {
	if len(message) <= maxLength {
		return []string{message}
	}

	var chunks []string
	for len(message) > maxLength {
		splitIndex := maxLength
		for splitIndex > 0 && !isRuneStart(message[splitIndex]) {
			splitIndex--
		}
		if spaceIndex := strings.LastIndex(message[:splitIndex], " "); spaceIndex > maxLength/2 {
			splitIndex = spaceIndex
		}

		chunks = append(chunks, message[:splitIndex])
		message = strings.TrimPrefix(message[splitIndex:], " ")
	}

	if len(message) > 0 {
		chunks = append(chunks, message)
	}

	return chunks
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// IsEnabled returns whether the Discord service is enabled
func (d *DiscordService) IsEnabled() bool {
	return d.enabled
}

// GetStatus returns the current status of the Discord service
func (d *DiscordService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"enabled":        d.enabled,
		"command_prefix": d.commandPrefix,
		"hosted":         d.useHosted,
		"uptime":         time.Since(d.startTime).String(),
	}

	switch {
	case d.enabled && d.session != nil && d.session.State != nil && d.session.State.User != nil:
		status["status"] = "connected"
		status["user"] = map[string]interface{}{
			"id":       d.session.State.User.ID,
			"username": d.session.State.User.Username,
		}
		status["guilds"] = len(d.session.State.Guilds)
	case d.enabled:
		status["status"] = "initialized_not_started"
	default:
		status["status"] = "disabled"
		status["note"] = "Set DISCORD_BOT_TOKEN environment variable to enable"
	}

	return status
}
