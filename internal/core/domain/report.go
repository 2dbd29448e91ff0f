package domain

import "time"

// ComparisonReport is the assembled, read-only outcome of comparing two datasets.
type ComparisonReport struct {
	DatasetA        string             `json:"dataset_a" yaml:"dataset_a"`
	DatasetB        string             `json:"dataset_b" yaml:"dataset_b"`
	Options         CompareOptions     `json:"options" yaml:"options"`
	LabelMap        *LabelMap          `json:"label_map" yaml:"label_map"`
	ItemMatches     []ItemMatch        `json:"per_item_matches" yaml:"per_item_matches"`
	UnmatchedItemsA []ItemKey          `json:"unmatched_items_a" yaml:"unmatched_items_a"`
	UnmatchedItemsB []ItemKey          `json:"unmatched_items_b" yaml:"unmatched_items_b"`
	Confusion       ConfusionMatrix    `json:"aggregate_confusion" yaml:"aggregate_confusion"`
	Summary         MatchSummary       `json:"match_summary" yaml:"match_summary"`
	StatisticsA     *DatasetStatistics `json:"statistics_a" yaml:"statistics_a"`
	StatisticsB     *DatasetStatistics `json:"statistics_b" yaml:"statistics_b"`
	ValidationA     *ValidationReport  `json:"validation_a" yaml:"validation_a"`
	ValidationB     *ValidationReport  `json:"validation_b" yaml:"validation_b"`
}

type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// ComparisonRun tracks an asynchronous comparison between two stored datasets.
type ComparisonRun struct {
	ID        string            `json:"id"`
	DatasetA  string            `json:"dataset_a"`
	DatasetB  string            `json:"dataset_b"`
	Options   CompareOptions    `json:"options"`
	Status    RunStatus         `json:"status"`
	Error     string            `json:"error,omitempty"`
	Report    *ComparisonReport `json:"report,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
