package chathub

import (
	"context"
	"errors"
	"log"

	"livechat/backend/internal/config"
	"livechat/backend/internal/models"
	"livechat/backend/internal/responder"
)

// maybeRespond starts the responder pipeline for a visitor message when the
// conversation is in automated mode and a responder is configured.
func (r *Relay) maybeRespond(msg *models.Message) {
	if r.kb == nil && r.ai == nil {
		return
	}
	conv, err := r.store.GetConversation(msg.ConversationID)
	if err != nil {
		log.Printf("ERROR: Cannot load conversation %s for responder: %v", msg.ConversationID, err)
		return
	}
	if conv.Mode != models.ModeAutomated {
		return
	}

	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.respond(ctx, *msg)
	}()
}

func (r *Relay) respond(ctx context.Context, msg models.Message) {
	if r.kb != nil {
		r.respondFromKnowledge(ctx, msg)
		return
	}
	r.respondWithAI(ctx, msg)
}

func (r *Relay) respondFromKnowledge(ctx context.Context, msg models.Message) {
	r.signalTyping(msg.ConversationID)

	ans, err := r.kb.Answer(ctx, msg.Body)
	if err != nil {
		log.Printf("ERROR: Knowledge responder failed for conversation %s: %v", msg.ConversationID, err)
		r.postAutomatedReply(msg.ConversationID, r.kb.Fallback())
		r.escalate(msg.ConversationID, ReasonKnowledgeError)
		return
	}
	r.postAutomatedReply(msg.ConversationID, ans.Text)
	if !ans.Confident {
		r.escalate(msg.ConversationID, ReasonNoKnowledgeMatch)
	}
}

func (r *Relay) respondWithAI(ctx context.Context, msg models.Message) {
	if r.ai.ShouldHandoff(msg.Body) {
		r.escalate(msg.ConversationID, ReasonVisitorRequest)
		return
	}
	if answer, ok := r.ai.FAQAnswer(msg.Body); ok {
		r.postAutomatedReply(msg.ConversationID, answer)
		return
	}

	r.signalTyping(msg.ConversationID)
	reply, err := r.ai.Generate(ctx, msg.Body, r.history(msg))
	if err != nil {
		log.Printf("ERROR: Automated responder failed for conversation %s: %v", msg.ConversationID, err)
		r.postAutomatedReply(msg.ConversationID, r.ai.Fallback())
		if responder.IsUnavailable(err) || errors.Is(err, context.DeadlineExceeded) {
			r.escalate(msg.ConversationID, ReasonResponderUnavailable)
		}
		return
	}
	r.postAutomatedReply(msg.ConversationID, reply)
}

func (r *Relay) signalTyping(conversationID string) {
	r.hub.Broadcast(config.ConversationRoom(conversationID), Event{
		Name: EventAITyping,
		Data: TypingPayload{ConversationID: conversationID},
	}, "")
}

// history returns up to historyLimit turns that precede msg. System notices
// are not part of the dialogue and are skipped.
func (r *Relay) history(msg models.Message) []responder.Turn {
	recent, err := r.store.ListRecentMessages(msg.ConversationID, r.historyLimit+1)
	if err != nil {
		log.Printf("WARNING: Cannot load history for conversation %s: %v", msg.ConversationID, err)
		return nil
	}

	turns := make([]responder.Turn, 0, len(recent))
	for _, m := range recent {
		if m.ID >= msg.ID || m.Kind == models.KindSystem {
			continue
		}
		role := responder.RoleUser
		if m.SenderRole.IsStaff() {
			role = responder.RoleAssistant
		}
		turns = append(turns, responder.Turn{Role: role, Content: m.Body})
	}
	if len(turns) > r.historyLimit {
		turns = turns[len(turns)-r.historyLimit:]
	}
	return turns
}

// postAutomatedReply persists and publishes a reply from the automated agent
// unless the conversation has been handed off in the meantime.
func (r *Relay) postAutomatedReply(conversationID, text string) {
	if text == "" {
		return
	}
	agent, err := r.reservedUser(config.AgentUserID, models.RoleAgent, "agent_name")
	if err != nil {
		log.Printf("ERROR: Cannot provision automated agent: %v", err)
		return
	}

	unlock := r.locks.Lock(conversationID)
	defer unlock()

	// a human may have taken over while the responder was busy
	conv, err := r.store.GetConversation(conversationID)
	if err != nil {
		log.Printf("ERROR: Cannot load conversation %s for automated reply: %v", conversationID, err)
		return
	}
	if conv.Mode == models.ModeHuman {
		log.Printf("INFO: Dropping automated reply for %s, conversation is in human mode", conversationID)
		return
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       agent.ID,
		Body:           text,
		Kind:           models.KindText,
		Status:         models.DeliverySent,
	}
	if err := r.store.CreateMessage(msg); err != nil {
		log.Printf("ERROR: Failed to save automated reply for conversation %s: %v", conversationID, err)
		return
	}
	r.publishMessage(conversationID, newMessagePayload(msg, agent))
}

func (r *Relay) escalate(conversationID, reason string) {
	if err := r.handoff(conversationID, reason); err != nil {
		log.Printf("ERROR: Handoff of conversation %s failed: %v", conversationID, err)
	}
}

// handoff switches a conversation to human mode. The system notice is
// published before mode_changed, and human_agent_needed reaches every admin.
func (r *Relay) handoff(conversationID, reason string) error {
	unlock := r.locks.Lock(conversationID)

	conv, err := r.store.GetConversation(conversationID)
	if err != nil {
		unlock()
		return err
	}
	if conv.Mode == models.ModeHuman {
		unlock()
		return nil
	}
	if err := r.store.UpdateConversationMode(conversationID, models.ModeHuman); err != nil {
		unlock()
		return err
	}

	if sys, err := r.reservedUser(config.SystemUserID, models.RoleSystem, "system_name"); err != nil {
		log.Printf("ERROR: Cannot provision system user: %v", err)
	} else {
		notice := &models.Message{
			ConversationID: conversationID,
			SenderID:       sys.ID,
			Body:           r.texts.Get("handoff_notice"),
			Kind:           models.KindSystem,
			Status:         models.DeliverySent,
		}
		if err := r.store.CreateMessage(notice); err != nil {
			log.Printf("ERROR: Failed to save handoff notice for conversation %s: %v", conversationID, err)
		} else {
			r.publishMessage(conversationID, newMessagePayload(notice, sys))
		}
	}

	r.toRoomAndAdmins(conversationID, Event{Name: EventModeChanged, Data: ModeChangedPayload{
		ConversationID: conversationID,
		Mode:           models.ModeHuman,
		Reason:         reason,
	}})
	r.hub.SendTo(Event{Name: EventHumanAgentNeeded, Data: HumanAgentNeededPayload{
		ConversationID: conversationID,
		Reason:         reason,
		Priority:       "high",
	}}, r.presence.AdminConnIDs()...)
	unlock()

	log.Printf("INFO: Conversation %s handed off to a human agent: %s", conversationID, reason)
	r.notifyHandoff(conversationID, conv.UserName, reason)
	return nil
}

func (r *Relay) notifyHandoff(conversationID, visitorName, reason string) {
	if r.notifier == nil {
		return
	}
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.notifier.NotifyHandoff(ctx, conversationID, visitorName, reason); err != nil {
			log.Printf("WARNING: Handoff notification for %s failed: %v", conversationID, err)
		}
	}()
}

// reservedUser returns the reserved sender, creating it on first use.
func (r *Relay) reservedUser(id string, role models.Role, nameKey string) (*models.User, error) {
	if u, ok := r.reserved.Load(id); ok {
		return u.(*models.User), nil
	}
	u := &models.User{ID: id, Name: r.texts.Get(nameKey), Role: role}
	if _, err := r.store.CreateUserIfNotExists(u); err != nil {
		return nil, err
	}
	stored, err := r.store.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	r.reserved.Store(id, stored)
	return stored, nil
}
