package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names handled by the worker.
const (
	TaskSourceRun        = "ingest.source.run"
	TaskCampaignDispatch = "sms.campaign.dispatch"
	TaskRescoreSweep     = "leads.rescore.sweep"
	TaskDailyDigest      = "notification.daily_digest"
)

// SourceRunPayload names the data source to import.
type SourceRunPayload struct {
	SourceKey string `json:"sourceKey"`
}

// CampaignDispatchPayload names the campaign to send.
type CampaignDispatchPayload struct {
	CampaignID string `json:"campaignId"`
}

// NewSourceRunTask builds an ingest run task.
func NewSourceRunTask(payload SourceRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSourceRun, data), nil
}

// ParseSourceRunPayload decodes an ingest run task.
func ParseSourceRunPayload(task *asynq.Task) (SourceRunPayload, error) {
	var payload SourceRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SourceRunPayload{}, err
	}
	return payload, nil
}

// NewCampaignDispatchTask builds a campaign dispatch task.
func NewCampaignDispatchTask(payload CampaignDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCampaignDispatch, data), nil
}

// ParseCampaignDispatchPayload decodes a campaign dispatch task.
func ParseCampaignDispatchPayload(task *asynq.Task) (CampaignDispatchPayload, error) {
	var payload CampaignDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CampaignDispatchPayload{}, err
	}
	return payload, nil
}

// NewRescoreSweepTask builds a rescore sweep task.
func NewRescoreSweepTask() *asynq.Task {
	return asynq.NewTask(TaskRescoreSweep, nil)
}

// NewDailyDigestTask builds a daily digest task.
func NewDailyDigestTask() *asynq.Task {
	return asynq.NewTask(TaskDailyDigest, nil)
}
