//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/payment"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/testutil"
)

func TestPublisher_ReconciliationFailedReachesQueue(t *testing.T) {
	dsn := testutil.StartPostgres(t)
	conn := testutil.StartRabbitMQ(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sqlDB, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	publisher, err := events.NewPublisher(conn, events.NewSequenceRepository(sqlDB), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = publisher.Close() })

	ch, err := conn.Channel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, events.ReconciliationFailedRoutingKey, events.EventsExchange, false, nil))
	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	a := payment.Attempt{
		ID:             uuid.New(),
		OrderID:        7,
		Owner:          "jane@grab.food",
		Amount:         decimal.RequireFromString("50.00"),
		TransactionID:  "txn_1",
		Gateway:        payment.OutcomeSucceeded,
		Reconciliation: payment.ReportFailed,
	}
	require.NoError(t, publisher.PublishReconciliationFailed(ctx, a, errors.New("backend unavailable")))
	require.NoError(t, publisher.PublishReconciliationFailed(ctx, a, errors.New("backend unavailable")))

	var seqs []int64
	for len(seqs) < 2 {
		select {
		case msg := <-msgs:
			var env events.EventEnvelope
			require.NoError(t, json.Unmarshal(msg.Body, &env))
			require.NoError(t, env.Validate(events.EventTypeReconciliationFailed, 1))
			assert.Equal(t, "7", env.PartitionKey)
			assert.Equal(t, a.ID.String(), env.CausationID)
			seqs = append(seqs, env.Sequence)
		case <-ctx.Done():
			t.Fatalf("timed out waiting for events: %v", ctx.Err())
		}
	}
	assert.Equal(t, []int64{1, 2}, seqs)
}
