package chathub

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// Dispatch decodes one inbound frame and runs the matching operation.
// Failures are reported back to the sender as an error event.
func (r *Relay) Dispatch(c Client, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.reply(c, "", fmt.Errorf("%w: malformed frame", ErrInvalidArgument))
		return
	}
	if err := r.dispatch(c, env); err != nil {
		log.Printf("WARNING: %s from %s failed: %v", env.Name, c.GetConnID(), err)
		r.reply(c, env.Name, err)
	}
}

func (r *Relay) dispatch(c Client, env envelope) error {
	connID := c.GetConnID()

	switch env.Name {
	case EventJoinChat:
		var req joinRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		if req.IsAdmin {
			if c.GetAdminID() == "" {
				return ErrNotAdmin
			}
			// the authenticated identity wins over the claimed one
			req.UserID = c.GetAdminID()
		}
		return r.Join(connID, Participant{
			UserID:         req.UserID,
			ConversationID: req.ConversationID,
			IsAdmin:        req.IsAdmin,
			Name:           req.UserName,
			Email:          req.UserEmail,
		})

	case EventSendMessage:
		var req sendRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		if req.MessageType != "" && req.MessageType != "text" {
			return fmt.Errorf("%w: unsupported message_type %q", ErrInvalidArgument, req.MessageType)
		}
		if err := r.bindSender(connID, &req); err != nil {
			return err
		}
		_, err := r.SendMessage(MessageInput{
			ConversationID: req.ConversationID,
			SenderID:       req.SenderID,
			Body:           req.Message,
		})
		return err

	case EventTypingStart, EventTypingStop:
		var req typingRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return r.SetTyping(connID, req.ConversationID, req.UserName, env.Name == EventTypingStart)

	case EventRequestHuman:
		var req conversationRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return r.RequestHuman(req.ConversationID)

	case EventAdminJoinConversation, EventAdminLeaveConversation:
		var req conversationRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		if env.Name == EventAdminJoinConversation {
			return r.JoinAdminConversation(connID, req.ConversationID)
		}
		return r.LeaveAdminConversation(connID, req.ConversationID)

	case EventMessageRead:
		var req readRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return r.MarkRead(req.MessageID)
	}
	return fmt.Errorf("%w: unknown event %q", ErrInvalidArgument, env.Name)
}

// bindSender pins a message to the identity the connection joined with.
// Visitors may echo their own ids but never speak for anyone else.
func (r *Relay) bindSender(connID string, req *sendRequest) error {
	if a, ok := r.presence.Admin(connID); ok {
		req.SenderID = a.UserID
		return nil
	}
	v, ok := r.presence.Visitor(connID)
	if !ok {
		return ErrNotJoined
	}
	if id := strings.TrimSpace(req.SenderID); id != "" && id != v.UserID {
		return fmt.Errorf("%w: sender_id %q does not match the joined visitor", ErrInvalidArgument, id)
	}
	if id := strings.TrimSpace(req.ConversationID); id != "" && id != v.ConversationID {
		return fmt.Errorf("%w: conversation_id %q does not match the joined conversation", ErrInvalidArgument, id)
	}
	req.SenderID = v.UserID
	req.ConversationID = v.ConversationID
	return nil
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", ErrInvalidArgument)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}

func (r *Relay) reply(c Client, event string, err error) {
	r.hub.SendTo(Event{Name: EventError, Data: ErrorPayload{Event: event, Message: err.Error()}}, c.GetConnID())
}
