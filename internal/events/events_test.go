package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gryork/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage(t *testing.T) {
	at := time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC)
	evt := types.CaseEvent{
		Type:       types.CaseEventTransitioned,
		CaseID:     "case-1",
		CaseNumber: "CWCRF-2026-000001",
		Status:     types.CaseStatusBuyerPending,
		ActorID:    "ops-1",
		ActorRole:  types.RoleOps,
		OccurredAt: at,
	}

	msg, err := Message(evt)
	require.NoError(t, err)

	assert.Equal(t, []byte("case-1"), msg.Key)
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, []byte("case.transitioned"), msg.Headers[0].Value)

	var decoded types.CaseEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, evt, decoded)
}

func TestDiscard(t *testing.T) {
	var p Publisher = Discard{}
	assert.NoError(t, p.Publish(context.Background(), types.CaseEvent{}))
}
