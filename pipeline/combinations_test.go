package pipeline

import (
	"testing"

	"testribute/model"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCombinations_Count(t *testing.T) {
	assert := assert.New(t)

	tasks := map[string]model.TaskInfo{
		"https://tes1.example.org": {},
		"https://tes2.example.org": {},
	}
	objects := model.ObjectCatalog{
		"a001": {
			"https://drs1.example.org": objectAt(10, "https://s1.example.org/a001", "s3://bucket/a001"),
			"https://drs2.example.org": objectAt(10, "https://s1.example.org/a001", "https://s2.example.org/a001"),
		},
		"a002": {
			"https://drs1.example.org": objectAt(20, "https://s1.example.org/a002", "https://s2.example.org/a002"),
		},
	}

	combinations := GenerateCombinations(tasks, objects, []string{"a001", "a002"})
	// 2 endpoints * 3 distinct urls * 2 distinct urls
	assert.Len(combinations, 12)

	seen := make(map[string]struct{})
	for _, combination := range combinations {
		assert.Len(combination.Objects, 2)
		seen[describe(combination)] = struct{}{}
	}

	assert.Len(seen, 12)
	assert.Equal("https://tes1.example.org", combinations[0].TesURI)
	assert.Equal("https://s1.example.org/a001", combinations[0].Objects["a001"])
	assert.Equal("https://s1.example.org/a002", combinations[0].Objects["a002"])
	assert.Equal("https://s2.example.org/a002", combinations[1].Objects["a002"])
	assert.Equal("https://tes2.example.org", combinations[6].TesURI)
}

func TestGenerateCombinations_NoObjects(t *testing.T) {
	assert := assert.New(t)

	tasks := map[string]model.TaskInfo{
		"https://tes1.example.org": {},
		"https://tes2.example.org": {},
		"https://tes3.example.org": {},
	}

	combinations := GenerateCombinations(tasks, nil, nil)
	assert.Len(combinations, 3)
	for _, combination := range combinations {
		assert.Empty(combination.Objects)
	}
}

func TestGenerateCombinations_ObjectWithoutURLs(t *testing.T) {
	assert := assert.New(t)

	tasks := map[string]model.TaskInfo{"https://tes1.example.org": {}}
	objects := model.ObjectCatalog{
		"a001": {"https://drs1.example.org": objectAt(10, "https://s1.example.org/a001")},
		"a002": {"https://drs1.example.org": {Size: 10, AccessMethods: []model.AccessMethod{{Type: model.S3}}}},
	}

	assert.Empty(GenerateCombinations(tasks, objects, []string{"a001", "a002"}))
	assert.Empty(GenerateCombinations(nil, objects, []string{"a001"}))
}
