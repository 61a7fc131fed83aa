package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/faceid/internal/models"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "identities.guest_created", Subject(models.EventGuestCreated))
	assert.Equal(t, "identities.promoted", Subject(models.EventPromoted))
}

func TestDecodeIdentityEvent(t *testing.T) {
	ev := models.IdentityEvent{
		Type:        models.EventPromoted,
		IdentityID:  uuid.New(),
		DisplayName: "alice",
		Score:       0.8,
		Timestamp:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	got, err := DecodeIdentityEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ev, got)

	_, err = DecodeIdentityEvent([]byte("{"))
	assert.Error(t, err)
	_, err = DecodeIdentityEvent([]byte(`{"identity_id":"` + uuid.NewString() + `"}`))
	assert.Error(t, err)
}

func TestConsumerConfig(t *testing.T) {
	tests := []struct {
		name        string
		opts        ConsumerOptions
		wantFilter  string
		wantFilters []string
		wantDeliver jetstream.DeliverPolicy
	}{
		{
			name:        "all events",
			opts:        ConsumerOptions{Name: "api-ws", NewOnly: true},
			wantFilter:  "identities.>",
			wantDeliver: jetstream.DeliverNewPolicy,
		},
		{
			name:        "single type",
			opts:        ConsumerOptions{Name: "reconcile", Types: []models.EventType{models.EventGuestCreated}},
			wantFilter:  "identities.guest_created",
			wantDeliver: jetstream.DeliverAllPolicy,
		},
		{
			name:        "several types",
			opts:        ConsumerOptions{Name: "audit", Types: []models.EventType{models.EventPromoted, models.EventRegistered}},
			wantFilters: []string{"identities.promoted", "identities.registered"},
			wantDeliver: jetstream.DeliverAllPolicy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := consumerConfig(tt.opts)
			assert.Equal(t, tt.opts.Name, cfg.Durable)
			assert.Equal(t, tt.wantFilter, cfg.FilterSubject)
			assert.Equal(t, tt.wantFilters, cfg.FilterSubjects)
			assert.Equal(t, tt.wantDeliver, cfg.DeliverPolicy)
			assert.Equal(t, jetstream.AckExplicitPolicy, cfg.AckPolicy)
		})
	}
}
