package models

import (
	"crypto/sha1" //nolint:gosec
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// BlockRecordVersion is the current serialisation version of block records.
const BlockRecordVersion = 1

// BlockRecord snapshots a block at the time it was used in grade calculation.
type BlockRecord struct {
	Locator  UsageKey `json:"locator"`
	MaxScore *float64 `json:"max_score"`
	Weight   *float64 `json:"weight"`
}

// BlockRecordList is an ordered list of block records for a course.
type BlockRecordList struct {
	CourseKey CourseKey
	Version   int
	Blocks    []BlockRecord
}

// field order is alphabetical so the encoding is stable
type blockRecordListJSON struct {
	Blocks    []BlockRecord `json:"blocks"`
	CourseKey CourseKey     `json:"course_key"`
	Version   int           `json:"version"`
}

// NewBlockRecordList builds a list with the current version.
func NewBlockRecordList(blocks []BlockRecord, courseKey CourseKey) BlockRecordList {
	return BlockRecordList{CourseKey: courseKey, Version: BlockRecordVersion, Blocks: blocks}
}

// JSON returns the compact, key-sorted encoding of the list.
func (l BlockRecordList) JSON() (string, error) {
	blocks := l.Blocks
	if blocks == nil {
		blocks = []BlockRecord{}
	}
	version := l.Version
	if version == 0 {
		version = BlockRecordVersion
	}
	raw, err := json.Marshal(blockRecordListJSON{Blocks: blocks, CourseKey: l.CourseKey, Version: version})
	if err != nil {
		return "", fmt.Errorf("encode block records: %w", err)
	}
	return string(raw), nil
}

// Hash returns base64(sha1(JSON())).
func (l BlockRecordList) Hash() (string, error) {
	raw, err := l.JSON()
	if err != nil {
		return "", err
	}
	sum := sha1.Sum([]byte(raw)) //nolint:gosec
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// ParseBlockRecordList decodes a list previously produced by JSON.
func ParseBlockRecordList(raw string) (BlockRecordList, error) {
	var payload blockRecordListJSON
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return BlockRecordList{}, fmt.Errorf("decode block records: %w", err)
	}
	if payload.Version == 0 {
		payload.Version = BlockRecordVersion
	}
	return BlockRecordList{CourseKey: payload.CourseKey, Version: payload.Version, Blocks: payload.Blocks}, nil
}

// VisibleBlocks is the persisted set of blocks visible under a subsection
// when a grade was calculated.
type VisibleBlocks struct {
	Hashed     string    `db:"hashed" json:"hashed"`
	BlocksJSON string    `db:"blocks_json" json:"blocks_json"`
	CourseID   CourseKey `db:"course_id" json:"course_id"`
	Version    int       `db:"version" json:"version"`
}

// Blocks decodes BlocksJSON.
func (v VisibleBlocks) Blocks() (BlockRecordList, error) {
	return ParseBlockRecordList(v.BlocksJSON)
}

// PersistentSubsectionGrade is a stored subsection grade.
type PersistentSubsectionGrade struct {
	ID                     int64     `db:"id" json:"id"`
	UserID                 int64     `db:"user_id" json:"user_id"`
	CourseID               CourseKey `db:"course_id" json:"course_id"`
	UsageKey               UsageKey  `db:"usage_key" json:"usage_key"`
	SubtreeEditedTimestamp time.Time `db:"subtree_edited_timestamp" json:"subtree_edited_timestamp"`
	CourseVersion          string    `db:"course_version" json:"course_version"`
	EarnedAll              float64   `db:"earned_all" json:"earned_all"`
	PossibleAll            float64   `db:"possible_all" json:"possible_all"`
	EarnedGraded           float64   `db:"earned_graded" json:"earned_graded"`
	PossibleGraded         float64   `db:"possible_graded" json:"possible_graded"`
	VisibleBlocksHash      string    `db:"visible_blocks_hash" json:"visible_blocks_hash"`
	BlocksJSON             string    `db:"blocks_json" json:"-"`
	CreatedAt              time.Time `db:"created" json:"created"`
	ModifiedAt             time.Time `db:"modified" json:"modified"`

	VisibleBlocks BlockRecordList `db:"-" json:"-"`
}

// PersistentGradesFlag is the global switch for persisted grades.
type PersistentGradesFlag struct {
	ID                   int64     `db:"id" json:"id"`
	Enabled              bool      `db:"enabled" json:"enabled"`
	EnabledForAllCourses bool      `db:"enabled_for_all_courses" json:"enabled_for_all_courses"`
	ChangeDate           time.Time `db:"change_date" json:"change_date"`
}

// CoursePersistentGradesFlag overrides the global flag for a single course.
type CoursePersistentGradesFlag struct {
	CourseID   CourseKey `db:"course_id" json:"course_id"`
	Enabled    bool      `db:"enabled" json:"enabled"`
	ChangeDate time.Time `db:"change_date" json:"change_date"`
}
