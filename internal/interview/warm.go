package interview

import "github.com/nikhilbhutani/lifereview/internal/ttscache"

// WarmItems lists the static audio every session plays: intro, outro and
// each question.
func WarmItems() []ttscache.WarmItem {
	items := []ttscache.WarmItem{
		{Text: IntroNarrative, ContentType: ttscache.ContentNarrative},
		{Text: OutroNarrative, ContentType: ttscache.ContentNarrative},
	}
	for _, q := range Questions {
		items = append(items, ttscache.WarmItem{Text: q.Prompt, ContentType: ttscache.ContentQuestion})
	}
	return items
}
