package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	courseKeyPrefix = "course-v1:"
	usageKeyPrefix  = "block-v1:"
)

// CourseKey identifies a course run, e.g. course-v1:OrgX+CS101+2024.
type CourseKey string

// UsageKey identifies a block inside a course, e.g.
// block-v1:OrgX+CS101+2024+type@problem+block@p1.
type UsageKey string

func (k CourseKey) String() string {
	return string(k)
}

// Org returns the organisation segment of the course key.
func (k CourseKey) Org() string {
	parts := strings.Split(strings.TrimPrefix(string(k), courseKeyPrefix), "+")
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// MakeUsageKey builds the usage key of a block of the given type within the course.
func (k CourseKey) MakeUsageKey(blockType, blockID string) UsageKey {
	run := strings.TrimPrefix(string(k), courseKeyPrefix)
	return UsageKey(fmt.Sprintf("%s%s+type@%s+block@%s", usageKeyPrefix, run, blockType, blockID))
}

func (k UsageKey) String() string {
	return string(k)
}

// BlockType returns the block category encoded in the key.
func (k UsageKey) BlockType() string {
	return k.segment("type@")
}

// BlockID returns the block identifier encoded in the key.
func (k UsageKey) BlockID() string {
	return k.segment("block@")
}

// CourseKey returns the course the block belongs to.
func (k UsageKey) CourseKey() CourseKey {
	body := strings.TrimPrefix(string(k), usageKeyPrefix)
	parts := strings.Split(body, "+")
	kept := make([]string, 0, 3)
	for _, part := range parts {
		if strings.Contains(part, "@") {
			break
		}
		kept = append(kept, part)
	}
	return CourseKey(courseKeyPrefix + strings.Join(kept, "+"))
}

func (k UsageKey) segment(prefix string) string {
	for _, part := range strings.Split(string(k), "+") {
		if strings.HasPrefix(part, prefix) {
			return strings.TrimPrefix(part, prefix)
		}
	}
	return ""
}

// UsageKeyList is an ordered list of usage keys persisted as a JSON array.
type UsageKeyList []UsageKey

// Scan implements sql.Scanner.
func (l *UsageKeyList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("usage key list: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}

// Value implements driver.Valuer.
func (l UsageKeyList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]UsageKey(l))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
