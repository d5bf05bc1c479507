// Package meow adapts a whatsmeow client to the channel.Conn interface. The
// adapter keeps an event-fed per-chat cache of recent messages so the gap
// synchronizer can compare what the device saw against what the database
// holds without re-fetching history from the network.
package meow

import (
	"context"
	"log/slog"
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"atendo.app/desk/internal/channel"
)

// DefaultCacheSize is how many messages are retained per chat.
const DefaultCacheSize = 500

// Adapter wraps a *whatsmeow.Client as a channel.Conn.
type Adapter struct {
	client    *whatsmeow.Client
	onMessage func(channel.ChatMessage)

	mu       sync.RWMutex
	cache    map[string][]channel.ChatMessage
	cacheMax int

	handlerID uint32
}

// New wires the adapter into the client's event stream. onMessage, when not
// nil, is invoked for every text-bearing message after it enters the cache.
// Call Close to detach.
func New(client *whatsmeow.Client, onMessage func(channel.ChatMessage)) *Adapter {
	a := &Adapter{
		client:    client,
		onMessage: onMessage,
		cache:     make(map[string][]channel.ChatMessage),
		cacheMax:  DefaultCacheSize,
	}
	a.handlerID = client.AddEventHandler(a.handleEvent)
	return a
}

// Close detaches the event handler. The underlying client is owned by the
// caller and is not disconnected here.
func (a *Adapter) Close() {
	a.client.RemoveEventHandler(a.handlerID)
}

func (a *Adapter) IsConnected() bool {
	return a.client.IsConnected()
}

// SendText sends a plain text message and returns the wire view of it.
func (a *Adapter) SendText(ctx context.Context, jid string, body string) (channel.ChatMessage, error) {
	if !a.client.IsConnected() {
		return channel.ChatMessage{}, channel.ErrDisconnected
	}

	target, err := types.ParseJID(jid)
	if err != nil {
		return channel.ChatMessage{}, err
	}

	msg := &waE2E.Message{Conversation: proto.String(body)}
	resp, err := a.client.SendMessage(ctx, target, msg)
	if err != nil {
		return channel.ChatMessage{}, err
	}

	raw, _ := proto.Marshal(msg)
	out := channel.ChatMessage{
		ID:        string(resp.ID),
		ChatJID:   target.String(),
		Sender:    a.selfJID(),
		FromMe:    true,
		Body:      body,
		Timestamp: resp.Timestamp,
		Raw:       raw,
	}
	a.append(out)
	return out, nil
}

// CachedMessages returns up to limit cached messages for the chat, oldest
// first.
func (a *Adapter) CachedMessages(ctx context.Context, jid string, limit int) ([]channel.ChatMessage, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	msgs := a.cache[jid]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]channel.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (a *Adapter) ClearCache(jid string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.cache, jid)
}

func (a *Adapter) handleEvent(evt any) {
	msg, ok := evt.(*events.Message)
	if !ok {
		return
	}

	body := textContent(msg.Message)
	media := mediaType(msg.Message)
	if body == "" && media == "" {
		return
	}

	raw, err := proto.Marshal(msg.Message)
	if err != nil {
		slog.Warn("failed to marshal incoming message payload",
			"message_id", msg.Info.ID, "error", err)
	}

	out := channel.ChatMessage{
		ID:        string(msg.Info.ID),
		ChatJID:   msg.Info.Chat.String(),
		Sender:    msg.Info.Sender.User,
		FromMe:    msg.Info.IsFromMe,
		Body:      body,
		MediaType: media,
		Timestamp: msg.Info.Timestamp,
		Raw:       raw,
	}
	a.append(out)
	if a.onMessage != nil {
		a.onMessage(out)
	}
}

func (a *Adapter) append(msg channel.ChatMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	msgs := a.cache[msg.ChatJID]
	for _, existing := range msgs {
		if existing.ID == msg.ID {
			return
		}
	}
	msgs = append(msgs, msg)
	if len(msgs) > a.cacheMax {
		msgs = msgs[len(msgs)-a.cacheMax:]
	}
	a.cache[msg.ChatJID] = msgs
}

func (a *Adapter) selfJID() string {
	store := a.client.Store
	if store == nil || store.ID == nil {
		return ""
	}
	return store.ID.User
}

// textContent extracts the displayable text from the possible message shapes.
func textContent(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if text := msg.GetConversation(); text != "" {
		return text
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	if img := msg.GetImageMessage(); img != nil {
		return img.GetCaption()
	}
	if vid := msg.GetVideoMessage(); vid != nil {
		return vid.GetCaption()
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		return doc.GetCaption()
	}
	return ""
}

func mediaType(msg *waE2E.Message) string {
	switch {
	case msg == nil:
		return ""
	case msg.GetImageMessage() != nil:
		return "image"
	case msg.GetVideoMessage() != nil:
		return "video"
	case msg.GetAudioMessage() != nil:
		return "audio"
	case msg.GetDocumentMessage() != nil:
		return "document"
	case msg.GetStickerMessage() != nil:
		return "sticker"
	default:
		return ""
	}
}

var _ channel.Conn = (*Adapter)(nil)
