package scheduler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func TestEnqueueCampaignDispatch(t *testing.T) {
	mr := miniredis.RunT(t)

	client := &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: mr.Addr()}),
		queue:  defaultQueue,
	}
	defer client.Close()

	campaignID := uuid.New()
	if err := client.EnqueueCampaignDispatch(context.Background(), campaignID); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks(defaultQueue)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending tasks, want 1", len(pending))
	}
	if pending[0].Type != TaskCampaignDispatch {
		t.Fatalf("task type = %q", pending[0].Type)
	}

	var payload CampaignDispatchPayload
	if err := json.Unmarshal(pending[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.CampaignID != campaignID.String() {
		t.Fatalf("campaign id = %q", payload.CampaignID)
	}
}

func TestEnqueueSourceRun(t *testing.T) {
	mr := miniredis.RunT(t)

	client := &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: mr.Addr()}),
		queue:  defaultQueue,
	}
	defer client.Close()

	if err := client.EnqueueSourceRun(context.Background(), "maricopa_tax"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks(defaultQueue)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Type != TaskSourceRun {
		t.Fatalf("unexpected pending tasks: %+v", pending)
	}
}

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opt.Addr != "localhost:6380" || opt.Password != "secret" || opt.DB != 2 {
		t.Fatalf("unexpected opts: %+v", opt)
	}

	if _, err := redisClientOpt(""); err == nil {
		t.Fatalf("empty url should error")
	}
}

func TestCampaignDispatchPayloadRoundTrip(t *testing.T) {
	task, err := NewCampaignDispatchTask(CampaignDispatchPayload{CampaignID: "abc"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	payload, err := ParseCampaignDispatchPayload(task)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if payload.CampaignID != "abc" {
		t.Fatalf("campaign id = %q", payload.CampaignID)
	}
}
