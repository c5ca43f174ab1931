package presence_test

import (
	"sync"
	"testing"
	"time"

	"livechat/backend/internal/presence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AddAndRemoveVisitor(t *testing.T) {
	s := presence.NewStore()
	s.AddVisitor(presence.Visitor{ConnID: "conn1", UserID: "v1", ConversationID: "c1"})

	v, ok := s.Visitor("conn1")
	require.True(t, ok)
	assert.Equal(t, "c1", v.ConversationID)
	assert.False(t, s.IsAdmin("conn1"))

	removed := s.Remove("conn1")
	require.NotNil(t, removed.Visitor)
	assert.Nil(t, removed.Admin)
	assert.Equal(t, "v1", removed.Visitor.UserID)

	_, ok = s.Visitor("conn1")
	assert.False(t, ok)
	assert.Empty(t, s.Remove("conn1").Visitor, "second remove is a no-op")
}

func TestStore_ConnectionHasSingleRole(t *testing.T) {
	s := presence.NewStore()
	s.AddVisitor(presence.Visitor{ConnID: "conn1", UserID: "v1", ConversationID: "c1"})
	s.AddAdmin(presence.Admin{ConnID: "conn1", UserID: "a1"})

	visitors, admins := s.Counts()
	assert.Equal(t, 0, visitors)
	assert.Equal(t, 1, admins)
	assert.True(t, s.IsAdmin("conn1"))
}

func TestStore_VisitorsSnapshotOrdered(t *testing.T) {
	s := presence.NewStore()
	base := time.Now()
	s.AddVisitor(presence.Visitor{ConnID: "b", UserID: "v2", ConversationID: "c2", JoinedAt: base.Add(time.Second)})
	s.AddVisitor(presence.Visitor{ConnID: "a", UserID: "v1", ConversationID: "c1", JoinedAt: base})

	snap := s.Visitors()
	require.Len(t, snap, 2)
	assert.Equal(t, "c1", snap[0].ConversationID)
	assert.Equal(t, "c2", snap[1].ConversationID)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := presence.NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('A' + i))
			s.AddAdmin(presence.Admin{ConnID: id, UserID: id})
			_ = s.AdminConnIDs()
			s.Remove(id)
		}(i)
	}
	wg.Wait()

	_, admins := s.Counts()
	assert.Equal(t, 0, admins)
}
