package instructionpresets

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/git-iris/gitiris/internal/girerr"
)

const sampleCatalog = `
conventional:
  name: Conventional Commits
  description: enforce conventional commit structure
  instructions: prefix the subject with a conventional commit type
  emoji: "📝"
  type: commit
terse-review:
  name: Terse Review
  description: keep review comments short
  instructions: limit each finding to one sentence
  type: review
detailed:
  name: Detailed
  description: elaborate on rationale
  instructions: explain the reasoning behind each change
  type: both
`

func TestParseAssignsKeyFromMapEntry(t *testing.T) {
	lib, err := parse([]byte(sampleCatalog))
	require.NoError(t, err)

	p, err := lib.Get("conventional")
	require.NoError(t, err)
	require.Equal(t, "conventional", p.Key)
	require.Equal(t, "Conventional Commits", p.Name)
	require.Equal(t, ApplicableCommit, p.Type)
}

func TestGetReturnsConfigurationErrorForUnknownKey(t *testing.T) {
	lib, err := parse([]byte(sampleCatalog))
	require.NoError(t, err)

	_, err = lib.Get("does-not-exist")
	require.Error(t, err)
	require.Equal(t, girerr.KindConfiguration, girerr.KindOf(err))
}

func TestApplicableToFiltersByTypeAndIncludesBoth(t *testing.T) {
	lib, err := parse([]byte(sampleCatalog))
	require.NoError(t, err)

	commitPresets := lib.ApplicableTo(ApplicableCommit)
	require.Len(t, commitPresets, 2)
	require.Equal(t, "conventional", commitPresets[0].Key)
	require.Equal(t, "detailed", commitPresets[1].Key)

	reviewPresets := lib.ApplicableTo(ApplicableReview)
	require.Len(t, reviewPresets, 2)
	require.Equal(t, "detailed", reviewPresets[0].Key)
	require.Equal(t, "terse-review", reviewPresets[1].Key)
}

func TestApplicableToResultIsSortedByKey(t *testing.T) {
	lib, err := parse([]byte(sampleCatalog))
	require.NoError(t, err)

	presets := lib.ApplicableTo(ApplicableBoth)
	for i := 1; i < len(presets); i++ {
		require.LessOrEqual(t, presets[i-1].Key, presets[i].Key)
	}
}

func TestDefaultLoadsEmbeddedCatalog(t *testing.T) {
	lib := Default()
	require.NotNil(t, lib)
	require.NotEmpty(t, lib.presets)
}
