package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func fakeServer(t *testing.T) []option.ClientOption {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return []option.ClientOption{option.WithGRPCConn(conn)}
}

func TestPublishDeliversJSON(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := fakeServer(t)

	admin, err := pubsub.NewClient(ctx, "nailsmag", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = admin.Close() })
	topic, err := admin.CreateTopic(ctx, "site-builds")
	require.NoError(t, err)
	sub, err := admin.CreateSubscription(ctx, "site-builds-sub", pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	pub, err := Dial(ctx, "nailsmag", "site-builds", opts...)
	require.NoError(t, err)

	msgID, err := pub.Publish(ctx, "build.completed", map[string]string{"build_id": "b-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, msgID)

	received := make(chan *pubsub.Message, 1)
	recvCtx, stop := context.WithCancel(ctx)
	go func() {
		_ = sub.Receive(recvCtx, func(_ context.Context, msg *pubsub.Message) {
			msg.Ack()
			select {
			case received <- msg:
			default:
			}
			stop()
		})
	}()

	select {
	case msg := <-received:
		var body map[string]string
		require.NoError(t, json.Unmarshal(msg.Data, &body))
		assert.Equal(t, "b-1", body["build_id"])
		assert.Equal(t, "build.completed", msg.Attributes["event"])
	case <-ctx.Done():
		t.Fatal("message not received")
	}
	stop()

	assert.NoError(t, pub.Close())
}

func TestDialMissingTopic(t *testing.T) {
	ctx := context.Background()
	_, err := Dial(ctx, "nailsmag", "absent", fakeServer(t)...)
	require.ErrorContains(t, err, "does not exist")
}

func TestPublishWithoutTopic(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), "build.completed", map[string]string{"k": "v"})
	require.Error(t, err)

	var nilPub *Publisher
	_, err = nilPub.Publish(context.Background(), "", nil)
	require.Error(t, err)
	assert.NoError(t, nilPub.Close())
}

func TestDialRequiresNames(t *testing.T) {
	t.Parallel()

	_, err := Dial(context.Background(), "", "topic")
	require.Error(t, err)
	_, err = Dial(context.Background(), "project", "")
	require.Error(t, err)
}
