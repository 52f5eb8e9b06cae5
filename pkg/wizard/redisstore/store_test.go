package redisstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-formflow/pkg/formstate"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/wizard"
	"github.com/goliatone/go-formflow/pkg/wizard/redisstore"
)

type fakeClient struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	value, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestStore_RoundTrip(t *testing.T) {
	client := newFakeClient()
	store := redisstore.New(client, redisstore.WithTTL(time.Hour), redisstore.WithPrefix("test:"))
	ctx := context.Background()

	st := wizard.State{
		State: formstate.State{
			Values:    model.Record{"fullName": "Grace", "agreeToTerms": true},
			Errors:    map[string]string{"email": "Invalid email address"},
			Validated: map[string]bool{"email": true},
			Focus:     "email",
		},
		Form:  "onboarding",
		Step:  1,
		Token: 4,
	}
	if err := store.Save(ctx, "abc", st); err != nil {
		t.Fatalf("save: %v", err)
	}
	if client.ttls["test:abc"] != time.Hour {
		t.Fatalf("ttl not applied: %v", client.ttls)
	}

	got, err := store.Load(ctx, "abc")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(st, got); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}

	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "abc"); !errors.Is(err, wizard.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
