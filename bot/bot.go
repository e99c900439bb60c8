// Package bot is the Discord front end: it gates and routes incoming
// messages, serves local slash commands, and hands everything else to the
// agent loop with the channel's conversation history.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/opsclaw/opsclaw/agent"
	"github.com/opsclaw/opsclaw/config"
	"github.com/opsclaw/opsclaw/errors"
	"github.com/opsclaw/opsclaw/session"
)

// discordMessageLimit is Discord's hard cap on message content length.
const discordMessageLimit = 2000

// Bot wires the agent, session store and tracker behind a discordgo session.
type Bot struct {
	cfg     *config.Config
	agent   *agent.Agent
	catalog agent.ToolCatalog
	store   *session.Store
	tracker *Tracker
	logger  *slog.Logger

	dg         *discordgo.Session
	botUserID  string
	channelIDs map[string]bool

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a bot. The tracker may be nil, which disables /track.
func New(cfg *config.Config, ag *agent.Agent, catalog agent.ToolCatalog, store *session.Store, tracker *Tracker, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	channels := make(map[string]bool, len(cfg.Discord.ChannelIDs))
	for _, id := range cfg.Discord.ChannelIDs {
		channels[id] = true
	}
	return &Bot{
		cfg:        cfg,
		agent:      ag,
		catalog:    catalog,
		store:      store,
		tracker:    tracker,
		logger:     logger,
		channelIDs: channels,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Start opens the Discord gateway connection and registers handlers. It
// returns once the connection is up; message handling runs on discordgo's
// own goroutines until Stop.
func (b *Bot) Start(ctx context.Context) error {
	if b.cfg.Discord.Token == "" {
		return errors.New("discord token is not configured")
	}

	dg, err := discordgo.New("Bot " + b.cfg.Discord.Token)
	if err != nil {
		return errors.Wrapf(err, "could not create discord session")
	}
	b.dg = dg
	b.dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages

	b.dg.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.onMessageCreate(ctx, s, m)
	})

	if err := b.dg.Open(); err != nil {
		return errors.Wrapf(err, "could not open discord connection")
	}

	b.botUserID = b.dg.State.User.ID
	b.logger.Info("discord bot started",
		"user_id", b.botUserID,
		"mention_only", b.cfg.Discord.MentionOnly,
		"channels", len(b.channelIDs),
	)
	return nil
}

// Stop closes the gateway connection and the tracker store.
func (b *Bot) Stop() error {
	var err error
	if b.dg != nil {
		err = b.dg.Close()
	}
	if b.tracker != nil {
		if cerr := b.tracker.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (b *Bot) onMessageCreate(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == b.botUserID || m.Author.Bot {
		return
	}
	if b.cfg.Discord.GuildID != "" && m.GuildID != b.cfg.Discord.GuildID {
		return
	}
	if len(b.channelIDs) > 0 && !b.channelIDs[m.ChannelID] {
		return
	}

	isMention := false
	for _, u := range m.Mentions {
		if u.ID == b.botUserID {
			isMention = true
			break
		}
	}
	// Direct messages always get through; guild messages may require a
	// mention.
	if b.cfg.Discord.MentionOnly && m.GuildID != "" && !isMention {
		return
	}

	content := m.Content
	if isMention {
		content = strings.ReplaceAll(content, "<@"+b.botUserID+">", "")
		content = strings.ReplaceAll(content, "<@!"+b.botUserID+">", "")
	}
	content = strings.TrimSpace(content)
	if content == "" && len(m.Attachments) == 0 {
		return
	}

	if reply, handled := b.handleCommand(ctx, m.Author.ID, m.ChannelID, content); handled {
		b.reply(s, m.ChannelID, reply)
		return
	}

	if !b.limiter(m.Author.ID).Allow() {
		b.logger.Warn("rate limited", "user", m.Author.ID)
		b.reply(s, m.ChannelID, "You're asking too fast, give me a minute.")
		return
	}

	b.answer(ctx, s, m, content)
}

func (b *Bot) answer(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	// Best effort; a failed typing indicator is not worth logging.
	_ = s.ChannelTyping(m.ChannelID)

	history, err := b.store.History(m.ChannelID)
	if err != nil {
		b.logger.Error("could not load history", "channel", m.ChannelID, "error", err)
		history = nil
	}

	var opts agent.Options
	for _, a := range m.Attachments {
		opts.Attachments = append(opts.Attachments, a.URL)
	}

	start := time.Now()
	res, err := b.agent.Ask(ctx, content, history, b.cfg.UserFor(m.Author.ID), opts)
	if err != nil {
		b.logger.Error("ask failed",
			"channel", m.ChannelID,
			"user", m.Author.ID,
			"error", err,
		)
		b.reply(s, m.ChannelID, "Something went wrong talking to the model backend. Please try again.")
		return
	}
	b.logger.Info("question answered",
		"channel", m.ChannelID,
		"user", m.Author.ID,
		"tool_calls", len(res.ToolCalls),
		"duration", time.Since(start),
	)

	if err := b.store.Append(m.ChannelID,
		session.Message{Role: session.RoleUser, Content: content},
		session.Message{Role: session.RoleAssistant, Content: res.Response},
	); err != nil {
		b.logger.Error("could not persist turn", "channel", m.ChannelID, "error", err)
	}

	b.reply(s, m.ChannelID, res.Response)
}

func (b *Bot) reply(s *discordgo.Session, channelID, text string) {
	for _, chunk := range splitMessage(text, discordMessageLimit) {
		if _, err := s.ChannelMessageSend(channelID, chunk); err != nil {
			b.logger.Error("could not send message", "channel", channelID, "error", err)
			return
		}
	}
}

// limiter returns the per-user rate limiter, creating it on first use. The
// budget refills continuously at rate_per_minute with a full-minute burst.
func (b *Bot) limiter(userID string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.limiters[userID]
	if !ok {
		perMinute := b.cfg.Discord.RatePerMinute
		l = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
		b.limiters[userID] = l
	}
	return l
}

// splitMessage breaks text into chunks that fit Discord's length cap,
// preferring newline boundaries so fenced blocks and lists stay readable.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
