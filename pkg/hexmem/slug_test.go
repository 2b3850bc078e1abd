package hexmem_test

import (
	"testing"

	"github.com/hexmem/hexmem/pkg/hexmem"
	"github.com/stretchr/testify/assert"
)

func TestSlugify_LowercasesAndCollapsesNonAlnum(t *testing.T) {
	assert.Equal(t, "deploy-pipeline-status", hexmem.Slugify("Deploy Pipeline Status"))
}

func TestSlugify_TrimsLeadingAndTrailingHyphens(t *testing.T) {
	assert.Equal(t, "foo-bar", hexmem.Slugify("  --Foo_Bar!!--  "))
}

func TestSlugify_EmptyInput(t *testing.T) {
	assert.Equal(t, "", hexmem.Slugify("   "))
}

func TestValidSlug_AcceptsLowercaseAlnumHyphenUnderscore(t *testing.T) {
	assert.True(t, hexmem.ValidSlug("agent-007"))
	assert.True(t, hexmem.ValidSlug("agent_007"))
	assert.True(t, hexmem.ValidSlug("a"))
}

func TestValidSlug_RejectsUppercaseOrLeadingPunctuation(t *testing.T) {
	assert.False(t, hexmem.ValidSlug("Agent-007"))
	assert.False(t, hexmem.ValidSlug("-agent"))
	assert.False(t, hexmem.ValidSlug(""))
	assert.False(t, hexmem.ValidSlug("agent 007"))
}
