package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCourse CourseKey = "course-v1:OrgX+CS101+2024"

func TestUsageKeyParts(t *testing.T) {
	key := testCourse.MakeUsageKey("problem", "p1")

	assert.Equal(t, UsageKey("block-v1:OrgX+CS101+2024+type@problem+block@p1"), key)
	assert.Equal(t, "problem", key.BlockType())
	assert.Equal(t, "p1", key.BlockID())
	assert.Equal(t, testCourse, key.CourseKey())
	assert.Equal(t, "OrgX", testCourse.Org())
}

func TestBlockDisplayNameDefault(t *testing.T) {
	block := BlockData{Location: testCourse.MakeUsageKey("sequential", "week_one")}
	assert.Equal(t, "week one", block.DisplayNameWithDefault())

	name := "<b>Week</b>"
	block.DisplayName = &name
	assert.Equal(t, "&lt;b&gt;Week&lt;/b&gt;", block.DisplayNameWithDefaultEscaped())
}

func newTree() *BlockStructure {
	root := testCourse.MakeUsageKey("course", "course")
	chapter := testCourse.MakeUsageKey("chapter", "c1")
	seq := testCourse.MakeUsageKey("sequential", "s1")
	video := testCourse.MakeUsageKey("video", "v1")
	problem := testCourse.MakeUsageKey("problem", "p1")

	s := NewBlockStructure(root)
	s.Add(BlockData{Location: root, Children: UsageKeyList{chapter}})
	s.Add(BlockData{Location: chapter, Children: UsageKeyList{seq}})
	s.Add(BlockData{Location: seq, Children: UsageKeyList{video, problem}})
	s.Add(BlockData{Location: video})
	s.Add(BlockData{Location: problem})
	return s
}

func TestPostOrderTraversal(t *testing.T) {
	s := newTree()

	all := s.PostOrderTraversal(s.Root(), nil)
	require.Len(t, all, 5)
	assert.Equal(t, s.Root(), all[len(all)-1])
	assert.Equal(t, testCourse.MakeUsageKey("video", "v1"), all[0])

	noVideos := s.PostOrderTraversal(s.Root(), func(key UsageKey) bool { return key.BlockType() != "video" })
	assert.Len(t, noVideos, 4)
	assert.NotContains(t, noVideos, testCourse.MakeUsageKey("video", "v1"))
}

func TestRemoveSubtreePrunesDescendants(t *testing.T) {
	s := newTree()
	s.RemoveSubtree(testCourse.MakeUsageKey("chapter", "c1"))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []UsageKey{s.Root()}, s.Keys())
	assert.Empty(t, s.Children(s.Root()))
}

func TestBlockRecordListHashIsStable(t *testing.T) {
	maxScore := 2.0
	list := NewBlockRecordList([]BlockRecord{{Locator: testCourse.MakeUsageKey("problem", "p1"), MaxScore: &maxScore}}, testCourse)

	raw, err := list.JSON()
	require.NoError(t, err)
	assert.Equal(t, `{"blocks":[{"locator":"block-v1:OrgX+CS101+2024+type@problem+block@p1","max_score":2,"weight":null}],"course_key":"course-v1:OrgX+CS101+2024","version":1}`, raw)

	hash, err := list.Hash()
	require.NoError(t, err)
	assert.Equal(t, "gb7gJZRVJ4WKzQyPEf9Vv7QN1f4=", hash)

	parsed, err := ParseBlockRecordList(raw)
	require.NoError(t, err)
	assert.Equal(t, list, parsed)
}

func TestUsageKeyListValue(t *testing.T) {
	var empty UsageKeyList
	value, err := empty.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)

	var scanned UsageKeyList
	require.NoError(t, scanned.Scan([]byte(`["block-v1:OrgX+CS101+2024+type@problem+block@p1"]`)))
	assert.Equal(t, UsageKeyList{testCourse.MakeUsageKey("problem", "p1")}, scanned)
}
