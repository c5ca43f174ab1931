package chathub_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"livechat/backend/internal/chathub"
	"livechat/backend/internal/config"
	"livechat/backend/internal/knowledge"
	"livechat/backend/internal/models"
	"livechat/backend/internal/presence"
	"livechat/backend/internal/responder"
	"livechat/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestJoin_VisitorCreatesUserAndConversation(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	a := f.admin(t, "conn-a", "admin_1")
	a.drain()

	f.visitor(t, "conn-v", "visitor_1", "conv_1")

	conv, err := f.store.GetConversation("conv_1")
	require.NoError(t, err)
	assert.Equal(t, "visitor_1", conv.UserID)
	assert.Equal(t, models.StatusActive, conv.Status)
	assert.Equal(t, models.ModeAutomated, conv.Mode)
	assert.Equal(t, "Visitor visitor_1", conv.UserName)

	assert.True(t, f.hub.IsMember("conn-v", config.ConversationRoom("conv_1")))

	evs := a.drain()
	require.Len(t, evs, 1)
	assert.Equal(t, chathub.EventUserOnline, evs[0].Name)
	assert.Equal(t, chathub.PresencePayload{UserID: "visitor_1", ConversationID: "conv_1"}, evs[0].Data)
}

func TestJoin_IsIdempotent(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	f.visitor(t, "conn-v", "visitor_1", "conv_1")
	require.NoError(t, f.relay.Join("conn-v", chathub.Participant{
		UserID:         "visitor_1",
		ConversationID: "conv_1",
		Name:           "Someone Else",
	}))

	list, err := f.store.ListConversations()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Visitor visitor_1", list[0].UserName, "existing user must not be overwritten")
	assert.Equal(t, []string{"conn-v"}, f.hub.Members(config.ConversationRoom("conv_1")))
}

func TestJoin_DefaultVisitorName(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	f.relay.Register(newMockClient("conn-v"))
	require.NoError(t, f.relay.Join("conn-v", chathub.Participant{UserID: "visitor_1", ConversationID: "conv_1"}))

	u, err := f.store.GetUserByID("visitor_1")
	require.NoError(t, err)
	assert.Equal(t, "Website Visitor", u.Name)
	assert.Equal(t, models.RoleVisitor, u.Role)
}

func TestJoin_Validation(t *testing.T) {
	f := newFixture(t, chathub.Options{})

	err := f.relay.Join("conn-v", chathub.Participant{UserID: "visitor_1"})
	assert.ErrorIs(t, err, chathub.ErrInvalidArgument)

	err = f.relay.Join("conn-v", chathub.Participant{ConversationID: "conv_1"})
	assert.ErrorIs(t, err, chathub.ErrInvalidArgument)
}

func TestJoin_AdminReceivesOnlineSnapshot(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	f.visitor(t, "conn-v1", "visitor_1", "conv_1")
	f.visitor(t, "conn-v2", "visitor_2", "conv_2")

	a := f.admin(t, "conn-a", "admin_1")

	evs := a.drain()
	require.Len(t, evs, 1)
	assert.Equal(t, chathub.EventOnlineUsers, evs[0].Name)
	visitors, ok := evs[0].Data.([]presence.Visitor)
	require.True(t, ok)
	require.Len(t, visitors, 2)
	assert.Equal(t, "visitor_1", visitors[0].UserID)
	assert.Equal(t, "conv_2", visitors[1].ConversationID)
}

func TestSendMessage_FanOut(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	outside := f.admin(t, "conn-a1", "admin_1")
	inside := f.admin(t, "conn-a2", "admin_2")
	v := f.visitor(t, "conn-v", "visitor_1", "conv_1")
	require.NoError(t, f.relay.JoinAdminConversation("conn-a2", "conv_1"))
	outside.drain()
	inside.drain()
	v.drain()

	payload, err := f.relay.SendMessage(chathub.MessageInput{
		ConversationID: "conv_1",
		SenderID:       "visitor_1",
		Body:           "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "Visitor visitor_1", payload.SenderName)
	assert.False(t, payload.IsAdmin)
	assert.False(t, payload.IsAI)

	assert.Equal(t, []string{chathub.EventNewMessage}, names(v.drain()))

	// the admin in the room gets the message exactly once
	insideEvs := inside.drain()
	assert.Len(t, only(insideEvs, chathub.EventNewMessage), 1)
	assert.Len(t, only(insideEvs, chathub.EventConversationUpdated), 1)

	outsideEvs := outside.drain()
	assert.Len(t, only(outsideEvs, chathub.EventNewMessage), 1)
	assert.Len(t, only(outsideEvs, chathub.EventConversationUpdated), 1)

	msgs, err := f.store.ListMessages("conv_1", 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Body)
}

func receivedIDs(evs []chathub.Event) []uint {
	var ids []uint
	for _, ev := range only(evs, chathub.EventNewMessage) {
		ids = append(ids, ev.Data.(chathub.MessagePayload).ID)
	}
	return ids
}

func assertIncreasing(t *testing.T, ids []uint, who string) {
	t.Helper()
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i], "%s saw message %d after %d", who, ids[i], ids[i-1])
	}
}

func TestSendMessage_ConcurrentSendersKeepPersistedOrder(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	require.NoError(t, f.store.CreateUser(&models.User{ID: "admin_2", Name: "Agent", Role: models.RoleAdmin}))
	outside := f.admin(t, "conn-a1", "admin_1")
	inside := f.admin(t, "conn-a2", "admin_2")
	v := f.visitor(t, "conn-v", "visitor_1", "conv_1")
	require.NoError(t, f.relay.JoinAdminConversation("conn-a2", "conv_1"))
	outside.drain()
	inside.drain()
	v.drain()

	const perSender = 12
	senders := []string{"visitor_1", "admin_2", "visitor_1", "admin_2"}
	var wg sync.WaitGroup
	for g, sender := range senders {
		wg.Add(1)
		go func(g int, sender string) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				_, err := f.relay.SendMessage(chathub.MessageInput{
					ConversationID: "conv_1",
					SenderID:       sender,
					Body:           fmt.Sprintf("g%d-%d", g, i),
				})
				assert.NoError(t, err)
			}
		}(g, sender)
	}
	wg.Wait()
	f.relay.Wait()

	total := perSender * len(senders)
	stored, err := f.store.ListMessages("conv_1", total, 0)
	require.NoError(t, err)
	require.Len(t, stored, total)
	for i := 1; i < len(stored); i++ {
		assert.Less(t, stored[i-1].ID, stored[i].ID)
	}

	visitorIDs := receivedIDs(v.drain())
	insideIDs := receivedIDs(inside.drain())
	outsideIDs := receivedIDs(outside.drain())

	assert.Len(t, visitorIDs, total)
	assert.Len(t, insideIDs, total)
	// staff replies stay in the room
	assert.Len(t, outsideIDs, total/2)

	assertIncreasing(t, visitorIDs, "visitor")
	assertIncreasing(t, insideIDs, "admin in room")
	assertIncreasing(t, outsideIDs, "admin outside room")
}

func TestSendMessage_AdminReplyStaysInRoom(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	_, err := f.store.CreateUserIfNotExists(&models.User{ID: "admin_1", Name: "Ada", Role: models.RoleAdmin})
	require.NoError(t, err)

	replying := f.admin(t, "conn-a1", "admin_1")
	other := f.admin(t, "conn-a2", "admin_2")
	v := f.visitor(t, "conn-v", "visitor_1", "conv_1")
	require.NoError(t, f.relay.JoinAdminConversation("conn-a1", "conv_1"))
	replying.drain()
	other.drain()
	v.drain()

	payload, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "admin_1", Body: "How can I help?"})
	require.NoError(t, err)
	assert.True(t, payload.IsAdmin)

	assert.Equal(t, []string{chathub.EventNewMessage}, names(v.drain()))
	assert.Equal(t, []string{chathub.EventNewMessage}, names(replying.drain()))
	assert.Empty(t, other.drain())
}

func TestSendMessage_UnknownSenderGetsPlaceholder(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	f.visitor(t, "conn-v", "visitor_1", "conv_1")

	payload, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "ghost", Body: "boo"})
	require.NoError(t, err)
	assert.Equal(t, "Unknown User", payload.SenderName)
}

func TestSendMessage_PersistenceFailureBroadcastsNothing(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	a := f.admin(t, "conn-a", "admin_1")
	a.drain()

	_, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "missing", SenderID: "visitor_1", Body: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, a.drain())
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture(t, chathub.Options{})

	_, err := f.relay.SendMessage(chathub.MessageInput{SenderID: "visitor_1", Body: "hi"})
	assert.ErrorIs(t, err, chathub.ErrInvalidArgument)
	_, err = f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "visitor_1", Body: "   "})
	assert.ErrorIs(t, err, chathub.ErrInvalidArgument)
}

func TestKnowledge_ConfidentAnswer(t *testing.T) {
	kb := new(MockKnowledge)
	kb.On("Answer", mock.Anything, "When are you open?").
		Return(&knowledge.Answer{Text: "We are open 9 to 5.", Confident: true}, nil).Once()

	f := newFixture(t, chathub.Options{Knowledge: kb})
	v := f.visitor(t, "conn-v", "visitor_1", "conv_1")
	v.drain()

	_, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "visitor_1", Body: "When are you open?"})
	require.NoError(t, err)
	f.relay.Wait()

	evs := v.drain()
	assert.Equal(t, []string{chathub.EventNewMessage, chathub.EventAITyping, chathub.EventNewMessage}, names(evs))
	reply := evs[2].Data.(chathub.MessagePayload)
	assert.Equal(t, "We are open 9 to 5.", reply.Message)
	assert.Equal(t, config.AgentUserID, reply.SenderID)
	assert.Equal(t, "AI Assistant", reply.SenderName)
	assert.True(t, reply.IsAI)
	assert.True(t, reply.IsAdmin)

	conv, err := f.store.GetConversation("conv_1")
	require.NoError(t, err)
	assert.Equal(t, models.ModeAutomated, conv.Mode)
	kb.AssertExpectations(t)
}

func TestKnowledge_NoMatchHandsOff(t *testing.T) {
	kb := new(MockKnowledge)
	kb.On("Answer", mock.Anything, "Do you sell boats?").
		Return(&knowledge.Answer{Text: "Sorry, let me connect you.", Confident: false}, nil).Once()

	notifier := &recordingNotifier{}
	f := newFixture(t, chathub.Options{Knowledge: kb, Notifier: notifier})
	a := f.admin(t, "conn-a", "admin_1")
	v := f.visitor(t, "conn-v", "visitor_1", "conv_1")
	a.drain()
	v.drain()

	_, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "visitor_1", Body: "Do you sell boats?"})
	require.NoError(t, err)
	f.relay.Wait()

	evs := v.drain()
	msgs := only(evs, chathub.EventNewMessage)
	require.Len(t, msgs, 3)
	assert.Equal(t, "Sorry, let me connect you.", msgs[1].Data.(chathub.MessagePayload).Message)
	system := msgs[2].Data.(chathub.MessagePayload)
	assert.Equal(t, models.KindSystem, system.MessageType)
	assert.Equal(t, config.SystemUserID, system.SenderID)

	sysIdx := indexOf(evs, func(ev chathub.Event) bool {
		p, ok := ev.Data.(chathub.MessagePayload)
		return ok && p.MessageType == models.KindSystem
	})
	modeIdx := indexOf(evs, func(ev chathub.Event) bool { return ev.Name == chathub.EventModeChanged })
	require.NotEqual(t, -1, modeIdx)
	assert.Less(t, sysIdx, modeIdx, "system notice precedes mode_changed")
	assert.Equal(t, chathub.ModeChangedPayload{
		ConversationID: "conv_1",
		Mode:           models.ModeHuman,
		Reason:         chathub.ReasonNoKnowledgeMatch,
	}, evs[modeIdx].Data)

	adminEvs := a.drain()
	needed := only(adminEvs, chathub.EventHumanAgentNeeded)
	require.Len(t, needed, 1)
	assert.Equal(t, chathub.HumanAgentNeededPayload{
		ConversationID: "conv_1",
		Reason:         chathub.ReasonNoKnowledgeMatch,
		Priority:       "high",
	}, needed[0].Data)
	assert.Len(t, only(adminEvs, chathub.EventModeChanged), 1)

	conv, err := f.store.GetConversation("conv_1")
	require.NoError(t, err)
	assert.Equal(t, models.ModeHuman, conv.Mode)
	assert.Equal(t, []string{"conv_1|" + chathub.ReasonNoKnowledgeMatch}, notifier.snapshot())
}

func TestKnowledge_ErrorFallsBackAndHandsOff(t *testing.T) {
	kb := new(MockKnowledge)
	kb.On("Answer", mock.Anything, mock.Anything).Return(nil, errors.New("embedding endpoint down")).Once()
	kb.On("Fallback").Return("We will get back to you.")

	f := newFixture(t, chathub.Options{Knowledge: kb})
	v := f.visitor(t, "conn-v", "visitor_1", "conv_1")
	v.drain()

	_, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "visitor_1", Body: "anything"})
	require.NoError(t, err)
	f.relay.Wait()

	evs := v.drain()
	msgs := only(evs, chathub.EventNewMessage)
	require.Len(t, msgs, 3)
	assert.Equal(t, "We will get back to you.", msgs[1].Data.(chathub.MessagePayload).Message)
	modes := only(evs, chathub.EventModeChanged)
	require.Len(t, modes, 1)
	assert.Equal(t, chathub.ReasonKnowledgeError, modes[0].Data.(chathub.ModeChangedPayload).Reason)
}

func TestKnowledge_TakesPrecedenceOverAI(t *testing.T) {
	kb := new(MockKnowledge)
	kb.On("Answer", mock.Anything, mock.Anything).Return(&knowledge.Answer{Text: "from kb", Confident: true}, nil)
	ai := new(MockAI)

	f := newFixture(t, chathub.Options{Knowledge: kb, AI: ai})
	f.visitor(t, "conn-v", "visitor_1", "conv_1")

	_, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "visitor_1", Body: "hi"})
	require.NoError(t, err)
	f.relay.Wait()

	ai.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	ai.AssertNotCalled(t, "ShouldHandoff", mock.Anything)
}

func TestAI_KeywordHandoffSkipsReply(t *testing.T) {
	ai := new(MockAI)
	ai.On("ShouldHandoff", "I want to talk to a human").Return(true)

	f := newFixture(t, chathub.Options{AI: ai})
	a := f.admin(t, "conn-a", "admin_1")
	v := f.visitor(t, "conn-v", "visitor_1", "conv_1")
	a.drain()
	v.drain()

	_, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "visitor_1", Body: "I want to talk to a human"})
	require.NoError(t, err)
	f.relay.Wait()

	msgs, err := f.store.ListMessages("conv_1", 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2, "visitor message and system notice only")
	assert.Equal(t, models.KindSystem, msgs[1].Kind)
	assert.Equal(t, "You've been connected to our support team. A human agent will respond shortly.", msgs[1].Body)

	needed := only(a.drain(), chathub.EventHumanAgentNeeded)
	require.Len(t, needed, 1)
	assert.Equal(t, chathub.ReasonVisitorRequest, needed[0].Data.(chathub.HumanAgentNeededPayload).Reason)
	ai.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAI_FAQShortCircuits(t *testing.T) {
	ai := new(MockAI)
	ai.On("ShouldHandoff", mock.Anything).Return(false)
	ai.On("FAQAnswer", "what are your hours").Return("Mon-Fri 9-17", true)

	f := newFixture(t, chathub.Options{AI: ai})
	v := f.visitor(t, "conn-v", "visitor_1", "conv_1")
	v.drain()

	_, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "visitor_1", Body: "what are your hours"})
	require.NoError(t, err)
	f.relay.Wait()

	evs := v.drain()
	assert.Equal(t, []string{chathub.EventNewMessage, chathub.EventNewMessage}, names(evs))
	assert.Equal(t, "Mon-Fri 9-17", evs[1].Data.(chathub.MessagePayload).Message)
	ai.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAI_GenerateUsesHistory(t *testing.T) {
	ai := new(MockAI)
	ai.On("ShouldHandoff", mock.Anything).Return(false)
	ai.On("FAQAnswer", mock.Anything).Return("", false)
	ai.On("Generate", mock.Anything, "first", mock.Anything).Return("reply one", nil).Once()
	ai.On("Generate", mock.Anything, "second", mock.MatchedBy(func(h []responder.Turn) bool {
		return len(h) == 2 &&
			h[0] == responder.Turn{Role: responder.RoleUser, Content: "first"} &&
			h[1] == responder.Turn{Role: responder.RoleAssistant, Content: "reply one"}
	})).Return("reply two", nil).Once()

	f := newFixture(t, chathub.Options{AI: ai})
	f.visitor(t, "conn-v", "visitor_1", "conv_1")

	_, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "visitor_1", Body: "first"})
	require.NoError(t, err)
	f.relay.Wait()
	_, err = f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "visitor_1", Body: "second"})
	require.NoError(t, err)
	f.relay.Wait()

	msgs, err := f.store.ListMessages("conv_1", 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "reply two", msgs[3].Body)
	ai.AssertExpectations(t)
}

func TestAI_UnavailableFallsBackAndHandsOff(t *testing.T) {
	ai := new(MockAI)
	ai.On("ShouldHandoff", mock.Anything).Return(false)
	ai.On("FAQAnswer", mock.Anything).Return("", false)
	ai.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("", responder.ErrBackendUnavailable)
	ai.On("Fallback").Return("Please hold on.")

	f := newFixture(t, chathub.Options{AI: ai})
	f.visitor(t, "conn-v", "visitor_1", "conv_1")

	_, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "visitor_1", Body: "hello?"})
	require.NoError(t, err)
	f.relay.Wait()

	msgs, err := f.store.ListMessages("conv_1", 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "Please hold on.", msgs[1].Body)
	assert.Equal(t, models.KindSystem, msgs[2].Kind)

	conv, err := f.store.GetConversation("conv_1")
	require.NoError(t, err)
	assert.Equal(t, models.ModeHuman, conv.Mode)
}

func TestAI_BackendErrorKeepsAutomatedMode(t *testing.T) {
	ai := new(MockAI)
	ai.On("ShouldHandoff", mock.Anything).Return(false)
	ai.On("FAQAnswer", mock.Anything).Return("", false)
	ai.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("", responder.ErrBackendError)
	ai.On("Fallback").Return("Please hold on.")

	f := newFixture(t, chathub.Options{AI: ai})
	f.visitor(t, "conn-v", "visitor_1", "conv_1")

	_, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "visitor_1", Body: "hello?"})
	require.NoError(t, err)
	f.relay.Wait()

	msgs, err := f.store.ListMessages("conv_1", 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	conv, err := f.store.GetConversation("conv_1")
	require.NoError(t, err)
	assert.Equal(t, models.ModeAutomated, conv.Mode)
}

func TestHumanMode_NoAutomatedReply(t *testing.T) {
	ai := new(MockAI)
	f := newFixture(t, chathub.Options{AI: ai})
	f.visitor(t, "conn-v", "visitor_1", "conv_1")
	require.NoError(t, f.relay.RequestHuman("conv_1"))

	_, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "visitor_1", Body: "anyone there?"})
	require.NoError(t, err)
	f.relay.Wait()

	ai.AssertNotCalled(t, "ShouldHandoff", mock.Anything)
	ai.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAI_ReplyDroppedAfterHumanTakesOver(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	ai := new(MockAI)
	ai.On("ShouldHandoff", mock.Anything).Return(false)
	ai.On("FAQAnswer", mock.Anything).Return("", false)
	ai.On("Generate", mock.Anything, "where is my order?", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return("automated answer", nil).Once()

	f := newFixture(t, chathub.Options{AI: ai})
	v := f.visitor(t, "conn-v", "visitor_1", "conv_1")

	_, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "visitor_1", Body: "where is my order?"})
	require.NoError(t, err)
	<-started
	require.NoError(t, f.relay.RequestHuman("conv_1"))
	close(release)
	f.relay.Wait()

	msgs, err := f.store.ListMessages("conv_1", 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "where is my order?", msgs[0].Body)
	assert.Equal(t, models.KindSystem, msgs[1].Kind)
	for _, ev := range only(v.drain(), chathub.EventNewMessage) {
		assert.NotEqual(t, "automated answer", ev.Data.(chathub.MessagePayload).Message)
	}
	ai.AssertExpectations(t)
}

func TestRequestHuman_IsNoOpWhenAlreadyHuman(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	a := f.admin(t, "conn-a", "admin_1")
	f.visitor(t, "conn-v", "visitor_1", "conv_1")
	a.drain()

	require.NoError(t, f.relay.RequestHuman("conv_1"))
	first := a.drain()
	assert.Len(t, only(first, chathub.EventHumanAgentNeeded), 1)

	require.NoError(t, f.relay.RequestHuman("conv_1"))
	assert.Empty(t, a.drain())

	msgs, err := f.store.ListMessages("conv_1", 50, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestRequestHuman_UnknownConversation(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	assert.ErrorIs(t, f.relay.RequestHuman("nope"), storage.ErrNotFound)
	assert.ErrorIs(t, f.relay.RequestHuman(""), chathub.ErrInvalidArgument)
}

func TestSetMode_RestoresAutomated(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	v := f.visitor(t, "conn-v", "visitor_1", "conv_1")
	require.NoError(t, f.relay.RequestHuman("conv_1"))
	v.drain()

	require.NoError(t, f.relay.SetMode("conv_1", models.ModeAutomated, ""))

	evs := v.drain()
	require.Equal(t, []string{chathub.EventModeChanged}, names(evs))
	assert.Equal(t, models.ModeAutomated, evs[0].Data.(chathub.ModeChangedPayload).Mode)

	conv, err := f.store.GetConversation("conv_1")
	require.NoError(t, err)
	assert.Equal(t, models.ModeAutomated, conv.Mode)

	assert.ErrorIs(t, f.relay.SetMode("conv_1", "robot", ""), chathub.ErrInvalidArgument)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	a := f.admin(t, "conn-a", "admin_1")
	f.visitor(t, "conn-v", "visitor_1", "conv_1")
	a.drain()

	require.NoError(t, f.relay.UpdateStatus("conv_1", models.StatusClosed))
	conv, err := f.store.GetConversation("conv_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, conv.Status)
	assert.Equal(t, []string{chathub.EventConversationUpdated}, names(a.drain()))

	assert.ErrorIs(t, f.relay.UpdateStatus("conv_1", "archived"), chathub.ErrInvalidArgument)
}

func TestSetTyping_ExcludesSender(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	v := f.visitor(t, "conn-v", "visitor_1", "conv_1")
	a := f.admin(t, "conn-a", "admin_1")
	require.NoError(t, f.relay.JoinAdminConversation("conn-a", "conv_1"))
	v.drain()
	a.drain()

	require.NoError(t, f.relay.SetTyping("conn-v", "conv_1", "Visitor", true))
	assert.Empty(t, v.drain())
	evs := a.drain()
	require.Len(t, evs, 1)
	assert.Equal(t, chathub.EventUserTyping, evs[0].Name)

	require.NoError(t, f.relay.SetTyping("conn-a", "conv_1", "Ada", false))
	assert.Equal(t, []string{chathub.EventUserStopTyping}, names(v.drain()))
}

func TestAdminConversation_RequiresAdmin(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	f.visitor(t, "conn-v", "visitor_1", "conv_1")

	assert.ErrorIs(t, f.relay.JoinAdminConversation("conn-v", "conv_2"), chathub.ErrNotAdmin)
	assert.ErrorIs(t, f.relay.LeaveAdminConversation("conn-v", "conv_1"), chathub.ErrNotAdmin)

	f.admin(t, "conn-a", "admin_1")
	require.NoError(t, f.relay.JoinAdminConversation("conn-a", "conv_1"))
	assert.True(t, f.hub.IsMember("conn-a", config.ConversationRoom("conv_1")))
	require.NoError(t, f.relay.LeaveAdminConversation("conn-a", "conv_1"))
	assert.False(t, f.hub.IsMember("conn-a", config.ConversationRoom("conv_1")))
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	f.visitor(t, "conn-v", "visitor_1", "conv_1")
	p, err := f.relay.SendMessage(chathub.MessageInput{ConversationID: "conv_1", SenderID: "visitor_1", Body: "hi"})
	require.NoError(t, err)

	require.NoError(t, f.relay.MarkRead(p.ID))
	msgs, err := f.store.ListMessages("conv_1", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryRead, msgs[0].Status)

	assert.ErrorIs(t, f.relay.MarkRead(0), chathub.ErrInvalidArgument)
}

func TestDisconnect_NotifiesAdmins(t *testing.T) {
	f := newFixture(t, chathub.Options{})
	a := f.admin(t, "conn-a", "admin_1")
	v := f.visitor(t, "conn-v", "visitor_1", "conv_1")
	a.drain()

	f.relay.Disconnect("conn-v")

	assert.True(t, v.isClosed())
	assert.Empty(t, f.hub.Members(config.ConversationRoom("conv_1")))
	evs := a.drain()
	require.Len(t, evs, 1)
	assert.Equal(t, chathub.EventUserOffline, evs[0].Name)
	assert.Equal(t, chathub.PresencePayload{UserID: "visitor_1", ConversationID: "conv_1"}, evs[0].Data)

	online, err := f.store.ListOnlineUsers()
	require.NoError(t, err)
	for _, u := range online {
		assert.NotEqual(t, "visitor_1", u.UserID)
	}

	// a second disconnect is harmless
	f.relay.Disconnect("conn-v")
	assert.Empty(t, a.drain())
}
