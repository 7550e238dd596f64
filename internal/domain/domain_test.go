package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestStatusNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from      RequestStatus
		to        RequestStatus
		ok        bool
		traveling bool
	}{
		{from: StatusOriginToGateway, to: StatusAwaitingDecision, ok: true, traveling: true},
		{from: StatusAwaitingDecision, to: StatusAwaitingDecision, ok: false},
		{from: StatusGatewayToServer, to: StatusAtServer, ok: true, traveling: true},
		{from: StatusAtServer, to: StatusAtServer, ok: false},
		{from: StatusServerToGateway, to: StatusGatewayToOrigin, ok: true, traveling: true},
		{from: StatusGatewayToOrigin, to: StatusDone, ok: true, traveling: true},
		{from: StatusDone, to: StatusDone, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			next, ok := tt.from.Next()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.to, next)
			assert.Equal(t, tt.traveling, tt.from.IsTravelling())
		})
	}
}

func TestRequestStatusJSON(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(Request{ID: "a", Status: StatusAtServer})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"status":"AT_SERVER"`)

	var status RequestStatus
	assert.Error(t, json.Unmarshal([]byte(`"TELEPORTING"`), &status))
	assert.Equal(t, "UNKNOWN", RequestStatus(42).String())
}

func TestAlgorithm(t *testing.T) {
	t.Parallel()

	for _, algorithm := range Algorithms() {
		assert.True(t, algorithm.IsValid(), algorithm)
		assert.NotEqual(t, "?", algorithm.Tag(), algorithm)
	}
	assert.False(t, Algorithm("weighted").IsValid())
	assert.Equal(t, "IP-HASH", IPHash.Tag())
}

func TestHealthyServerFilter(t *testing.T) {
	t.Parallel()

	servers := []Server{
		{ID: 0, Healthy: false},
		{ID: 1, Healthy: true},
		{ID: 2, Healthy: false},
		{ID: 3, Healthy: true},
	}
	filter := &HealthyServerFilter{}

	assert.Equal(t, []int{1, 3}, ServerIDs(filter.Filter(servers)))
	assert.Empty(t, filter.Filter(servers[:1]))
	assert.Equal(t, StatusDown, servers[0].Status())
}
