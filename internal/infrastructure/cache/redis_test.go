package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// flakyClient fails the publish of one path and records the rest.
type flakyClient struct {
	failOn    string
	published []string
}

func (f *flakyClient) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	path, _ := message.(string)
	if path == f.failOn {
		cmd.SetErr(errors.New("connection reset"))
		return cmd
	}
	f.published = append(f.published, path)
	return cmd
}

func TestInvalidate_ContinuesPastFailedPublish(t *testing.T) {
	client := &flakyClient{failOn: "/sales"}
	p := &Publisher{client: client, channel: DefaultChannel}

	p.Invalidate(context.Background(), "/sales", "/inventory", "/financials")

	assert.Equal(t, []string{"/inventory", "/financials"}, client.published)
}

func TestInvalidate_PublishesEveryPath(t *testing.T) {
	client := &flakyClient{}
	p := &Publisher{client: client, channel: DefaultChannel}

	p.Invalidate(context.Background(), "/sales", "/sales/7")

	assert.Equal(t, []string{"/sales", "/sales/7"}, client.published)
}
