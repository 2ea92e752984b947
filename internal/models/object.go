package models

import (
	"errors"
	"fmt"
	"time"
)

// Level identifies a node in the Meta object hierarchy and the granularity
// of a metric row.
type Level string

const (
	LevelCampaign Level = "campaign"
	LevelAdset    Level = "adset"
	LevelAd       Level = "ad"
)

// Levels lists the hierarchy levels from the root down.
var Levels = []Level{LevelCampaign, LevelAdset, LevelAd}

// ParseLevel validates a level string.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelCampaign, LevelAdset, LevelAd:
		return Level(s), nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// Status is the lifecycle marker carried by objects and metric rows.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPaused   Status = "PAUSED"
	StatusArchived Status = "ARCHIVED"
	StatusDeleted  Status = "DELETED"
	StatusUnknown  Status = "UNKNOWN"
)

// ObjectNode is a Meta campaign, ad set or ad as synced into meta_objects.
// Empty strings stand in for NULL columns.
type ObjectNode struct {
	Store           string  `json:"store"`
	ObjectType      Level   `json:"object_type"`
	ObjectID        string  `json:"object_id"`
	ObjectName      string  `json:"object_name"`
	ParentID        string  `json:"parent_id"`
	ParentName      string  `json:"parent_name"`
	GrandparentID   string  `json:"grandparent_id"`
	GrandparentName string  `json:"grandparent_name"`
	Status          string  `json:"status"`
	EffectiveStatus string  `json:"effective_status"`
	DailyBudget     float64 `json:"daily_budget"`
	LifetimeBudget  float64 `json:"lifetime_budget"`

	Objective        string `json:"objective"`
	OptimizationGoal string `json:"optimization_goal"`
	BidStrategy      string `json:"bid_strategy"`

	CreatedTime  *time.Time `json:"created_time"`
	StartTime    *time.Time `json:"start_time"`
	StopTime     *time.Time `json:"stop_time"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
}

// Validate checks the identity fields of an object.
func (o *ObjectNode) Validate() error {
	if o == nil {
		return errors.New("object is nil")
	}
	if o.ObjectID == "" {
		return errors.New("object_id is required")
	}
	if _, err := ParseLevel(string(o.ObjectType)); err != nil {
		return err
	}
	if o.ObjectType == LevelAd && o.ParentID == "" {
		return errors.New("ad requires parent_id")
	}
	return nil
}

// FilterObjects returns the objects of the given type, preserving order.
func FilterObjects(objects []ObjectNode, t Level) []ObjectNode {
	out := make([]ObjectNode, 0)
	for _, o := range objects {
		if o.ObjectType == t {
			out = append(out, o)
		}
	}
	return out
}
