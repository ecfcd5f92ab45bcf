package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/lifereview/internal/ttscache"
)

func TestSummaryCountsOutcomes(t *testing.T) {
	var s summary
	s.add(ttscache.WarmResult{Text: "intro", Voice: "nova", OK: true, Source: ttscache.SourceGenerated, Size: 2048})
	s.add(ttscache.WarmResult{Text: "outro", Voice: "nova", OK: true, Source: ttscache.SourceRemote})
	s.add(ttscache.WarmResult{Text: "q1", Voice: "onyx", OK: true, Source: ttscache.SourceLocal})
	s.add(ttscache.WarmResult{Text: "q2", Voice: "onyx", Error: "quota"})

	assert.Equal(t, 4, s.total)
	assert.Equal(t, 1, s.generated)
	assert.Equal(t, 2, s.cached)
	assert.Equal(t, 1, s.failed)
	assert.EqualValues(t, 2048, s.bytes)
}

func TestRootCmdDefaults(t *testing.T) {
	cmd := newRootCmd()
	voices, err := cmd.Flags().GetStringSlice("voices")
	require.NoError(t, err)
	assert.Equal(t, []string{"nova", "onyx"}, voices)
}
