package chathub

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"livechat/backend/internal/config"
	"livechat/backend/internal/knowledge"
	"livechat/backend/internal/localization"
	"livechat/backend/internal/models"
	"livechat/backend/internal/presence"
	"livechat/backend/internal/responder"
	"livechat/backend/internal/storage"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotAdmin        = errors.New("admin access required")
	ErrNotJoined       = errors.New("join_chat first")
)

// TextResponder is the generative backend used when no knowledge base is configured.
type TextResponder interface {
	Generate(ctx context.Context, text string, history []responder.Turn) (string, error)
	ShouldHandoff(text string) bool
	FAQAnswer(text string) (string, bool)
	Fallback() string
}

// KnowledgeResponder answers from the knowledge base; it takes precedence over TextResponder.
type KnowledgeResponder interface {
	Answer(ctx context.Context, text string) (*knowledge.Answer, error)
	Fallback() string
}

// Notifier is told about every handoff, out of band.
type Notifier interface {
	NotifyHandoff(ctx context.Context, conversationID, visitorName, reason string) error
}

type Options struct {
	AI        TextResponder
	Knowledge KnowledgeResponder
	Notifier  Notifier
	Texts     localization.Texts

	// HistoryLimit is the number of prior messages passed to TextResponder.
	HistoryLimit     int
	ResponderTimeout time.Duration
}

// Relay is the conversation relay: it persists messages, fans them out and
// drives the automated responders.
type Relay struct {
	store    storage.Storage
	presence *presence.Store
	hub      *Hub

	ai       TextResponder
	kb       KnowledgeResponder
	notifier Notifier
	texts    localization.Texts

	historyLimit int
	timeout      time.Duration

	locks    *keyedMutex
	pending  sync.WaitGroup
	reserved sync.Map // ids of reserved senders known to exist
}

func NewRelay(store storage.Storage, p *presence.Store, hub *Hub, opts Options) *Relay {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = config.DefaultHistoryLimit
	}
	if opts.ResponderTimeout <= 0 {
		opts.ResponderTimeout = config.DefaultResponderTimeout
	}
	return &Relay{
		store:        store,
		presence:     p,
		hub:          hub,
		ai:           opts.AI,
		kb:           opts.Knowledge,
		notifier:     opts.Notifier,
		texts:        opts.Texts,
		historyLimit: opts.HistoryLimit,
		timeout:      opts.ResponderTimeout,
		locks:        newKeyedMutex(),
	}
}

func (r *Relay) Hub() *Hub { return r.hub }

// Register makes a freshly accepted connection reachable by the hub.
func (r *Relay) Register(c Client) {
	r.hub.Add(c)
	log.Printf("INFO: Connection %s registered", c.GetConnID())
}

// Unregister queues a connection for disconnect handling by Run.
func (r *Relay) Unregister(c Client) {
	r.hub.UnregisterCh <- c
}

// Run processes unregistrations until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	log.Println("INFO: Relay started")
	for {
		select {
		case c := <-r.hub.UnregisterCh:
			r.Disconnect(c.GetConnID())
		case <-ctx.Done():
			log.Println("INFO: Relay stopped")
			return
		}
	}
}

// Wait blocks until every in-flight responder pipeline has finished.
func (r *Relay) Wait() {
	r.pending.Wait()
}

// Participant is the identity presented by join_chat.
type Participant struct {
	UserID         string
	ConversationID string
	IsAdmin        bool
	Name           string
	Email          string
}

// Join registers the connection as a visitor of a conversation or as an admin.
// Joining twice with the same identity is harmless.
func (r *Relay) Join(connID string, p Participant) error {
	p.UserID = strings.TrimSpace(p.UserID)
	if p.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidArgument)
	}
	if p.IsAdmin {
		return r.joinAdmin(connID, p)
	}
	return r.joinVisitor(connID, p)
}

func (r *Relay) joinVisitor(connID string, p Participant) error {
	p.ConversationID = strings.TrimSpace(p.ConversationID)
	if p.ConversationID == "" {
		return fmt.Errorf("%w: conversation_id is required", ErrInvalidArgument)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = r.texts.Get("visitor_default_name")
	}

	if _, err := r.store.CreateUserIfNotExists(&models.User{
		ID:    p.UserID,
		Name:  name,
		Email: strings.TrimSpace(p.Email),
		Role:  models.RoleVisitor,
	}); err != nil {
		return err
	}
	if _, err := r.store.CreateConversationWithID(p.ConversationID, p.UserID, models.StatusActive, models.ModeAutomated); err != nil {
		return err
	}

	if prev, ok := r.presence.Visitor(connID); ok && prev.ConversationID != p.ConversationID {
		r.hub.Unsubscribe(connID, config.ConversationRoom(prev.ConversationID))
	}
	r.presence.AddVisitor(presence.Visitor{
		ConnID:         connID,
		UserID:         p.UserID,
		ConversationID: p.ConversationID,
		JoinedAt:       time.Now(),
	})
	r.hub.Subscribe(connID, config.ConversationRoom(p.ConversationID))
	r.touchSession(connID, p.UserID, true)

	r.hub.SendTo(Event{Name: EventUserOnline, Data: PresencePayload{
		UserID:         p.UserID,
		ConversationID: p.ConversationID,
	}}, r.presence.AdminConnIDs()...)
	log.Printf("INFO: Visitor %s joined conversation %s (conn %s)", p.UserID, p.ConversationID, connID)
	return nil
}

func (r *Relay) joinAdmin(connID string, p Participant) error {
	if prev, ok := r.presence.Visitor(connID); ok {
		r.hub.Unsubscribe(connID, config.ConversationRoom(prev.ConversationID))
	}
	r.presence.AddAdmin(presence.Admin{ConnID: connID, UserID: p.UserID, JoinedAt: time.Now()})
	r.hub.Subscribe(connID, config.AdminRoom)
	r.touchSession(connID, p.UserID, true)

	r.hub.SendTo(Event{Name: EventOnlineUsers, Data: r.presence.Visitors()}, connID)
	log.Printf("INFO: Admin %s joined (conn %s)", p.UserID, connID)
	return nil
}

// Disconnect forgets the connection and tells admins when a visitor leaves.
func (r *Relay) Disconnect(connID string) {
	removed := r.presence.Remove(connID)
	if c, ok := r.hub.Remove(connID); ok {
		c.Close()
	}

	switch {
	case removed.Visitor != nil:
		v := removed.Visitor
		r.touchSession(connID, v.UserID, false)
		r.hub.SendTo(Event{Name: EventUserOffline, Data: PresencePayload{
			UserID:         v.UserID,
			ConversationID: v.ConversationID,
		}}, r.presence.AdminConnIDs()...)
		log.Printf("INFO: Visitor %s disconnected (conn %s)", v.UserID, connID)
	case removed.Admin != nil:
		r.touchSession(connID, removed.Admin.UserID, false)
		log.Printf("INFO: Admin %s disconnected (conn %s)", removed.Admin.UserID, connID)
	}
}

func (r *Relay) touchSession(connID, userID string, online bool) {
	err := r.store.UpsertSession(&models.Session{
		ID:           connID,
		UserID:       userID,
		IsOnline:     online,
		LastActivity: time.Now(),
	})
	if err != nil {
		log.Printf("WARNING: Failed to update session %s: %v", connID, err)
	}
}

type MessageInput struct {
	ConversationID string
	SenderID       string
	Body           string
}

// SendMessage persists a text message, fans it out, and for visitor messages
// in automated mode starts the responder pipeline in the background.
func (r *Relay) SendMessage(in MessageInput) (*MessagePayload, error) {
	in.ConversationID = strings.TrimSpace(in.ConversationID)
	in.SenderID = strings.TrimSpace(in.SenderID)
	if in.ConversationID == "" || in.SenderID == "" {
		return nil, fmt.Errorf("%w: conversation_id and sender_id are required", ErrInvalidArgument)
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("%w: message is empty", ErrInvalidArgument)
	}

	unlock := r.locks.Lock(in.ConversationID)
	msg := &models.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Body:           in.Body,
		Kind:           models.KindText,
		Status:         models.DeliverySent,
	}
	if err := r.store.CreateMessage(msg); err != nil {
		unlock()
		return nil, err
	}
	sender := r.lookupSender(in.SenderID)
	payload := newMessagePayload(msg, sender)
	if sender.Role == models.RoleAdmin {
		r.hub.Broadcast(config.ConversationRoom(in.ConversationID), Event{Name: EventNewMessage, Data: payload}, "")
	} else {
		r.publishMessage(in.ConversationID, payload)
	}
	unlock()

	if !sender.Role.IsStaff() {
		r.maybeRespond(msg)
	}
	return &payload, nil
}

func (r *Relay) lookupSender(id string) *models.User {
	u, err := r.store.GetUserByID(id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("WARNING: Sender lookup for %s failed: %v", id, err)
		}
		return &models.User{ID: id, Name: r.texts.Get("unknown_user"), Role: models.RoleVisitor}
	}
	return u
}

// publishMessage sends new_message to the conversation room and to every
// admin not subscribed to it. Callers hold the conversation lock.
func (r *Relay) publishMessage(conversationID string, payload MessagePayload) {
	ev := Event{Name: EventNewMessage, Data: payload}
	r.toRoomAndAdmins(conversationID, ev)
	r.hub.Broadcast(config.AdminRoom, Event{Name: EventConversationUpdated, Data: ConversationUpdatedPayload{
		ConversationID: conversationID,
	}}, "")
}

func (r *Relay) toRoomAndAdmins(conversationID string, ev Event) {
	room := config.ConversationRoom(conversationID)
	r.hub.Broadcast(room, ev, "")

	var outside []string
	for _, id := range r.presence.AdminConnIDs() {
		if !r.hub.IsMember(id, room) {
			outside = append(outside, id)
		}
	}
	r.hub.SendTo(ev, outside...)
}

// RequestHuman switches the conversation to human mode. A conversation that
// is already in human mode is left untouched.
func (r *Relay) RequestHuman(conversationID string) error {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return fmt.Errorf("%w: conversation_id is required", ErrInvalidArgument)
	}
	return r.handoff(conversationID, ReasonVisitorRequest)
}

// SetTyping relays a typing indicator to the rest of the conversation room.
func (r *Relay) SetTyping(connID, conversationID, userName string, typing bool) error {
	if strings.TrimSpace(conversationID) == "" {
		return fmt.Errorf("%w: conversation_id is required", ErrInvalidArgument)
	}
	name := EventUserStopTyping
	if typing {
		name = EventUserTyping
	}
	r.hub.Broadcast(config.ConversationRoom(conversationID), Event{Name: name, Data: TypingPayload{
		ConversationID: conversationID,
		UserName:       userName,
	}}, connID)
	return nil
}

func (r *Relay) JoinAdminConversation(connID, conversationID string) error {
	if !r.presence.IsAdmin(connID) {
		return ErrNotAdmin
	}
	if strings.TrimSpace(conversationID) == "" {
		return fmt.Errorf("%w: conversation_id is required", ErrInvalidArgument)
	}
	r.hub.Subscribe(connID, config.ConversationRoom(conversationID))
	return nil
}

func (r *Relay) LeaveAdminConversation(connID, conversationID string) error {
	if !r.presence.IsAdmin(connID) {
		return ErrNotAdmin
	}
	if strings.TrimSpace(conversationID) == "" {
		return fmt.Errorf("%w: conversation_id is required", ErrInvalidArgument)
	}
	r.hub.Unsubscribe(connID, config.ConversationRoom(conversationID))
	return nil
}

func (r *Relay) MarkRead(messageID uint) error {
	if messageID == 0 {
		return fmt.Errorf("%w: message_id is required", ErrInvalidArgument)
	}
	return r.store.UpdateMessageStatus(messageID, models.DeliveryRead)
}

// SetMode changes the response mode on behalf of an admin. Switching to human
// goes through the regular handoff; switching back only updates the mode.
func (r *Relay) SetMode(conversationID string, mode models.ResponseMode, reason string) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, mode)
	}
	if mode == models.ModeHuman {
		if reason == "" {
			reason = "admin took over"
		}
		return r.handoff(conversationID, reason)
	}

	unlock := r.locks.Lock(conversationID)
	defer unlock()

	if err := r.store.UpdateConversationMode(conversationID, mode); err != nil {
		return err
	}
	if reason == "" {
		reason = "admin restored automated replies"
	}
	r.toRoomAndAdmins(conversationID, Event{Name: EventModeChanged, Data: ModeChangedPayload{
		ConversationID: conversationID,
		Mode:           mode,
		Reason:         reason,
	}})
	log.Printf("INFO: Conversation %s switched to %s mode", conversationID, mode)
	return nil
}

func (r *Relay) UpdateStatus(conversationID string, status models.ConversationStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)
	}
	if err := r.store.UpdateConversationStatus(conversationID, status); err != nil {
		return err
	}
	r.hub.Broadcast(config.AdminRoom, Event{Name: EventConversationUpdated, Data: ConversationUpdatedPayload{
		ConversationID: conversationID,
		Status:         status,
	}}, "")
	return nil
}
