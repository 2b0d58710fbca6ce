package playback

import (
	"github.com/pot-code/coursesync/internal/catalog"
	"github.com/pot-code/coursesync/internal/progress"
)

// SelectInitialLesson pick the lesson to open on first entry: the deep-linked
// lesson when it belongs to the course, else the most recently updated progress
// record, else the first lesson. false only for a course without lessons.
func SelectInitialLesson(c *catalog.Catalog, deepLinked string, lookup progress.Lookup) (string, bool) {
	if c == nil || c.Empty() {
		return "", false
	}
	if deepLinked != "" && c.Contains(deepLinked) {
		return deepLinked, true
	}
	if id, ok := lookup.MostRecent(c.LessonIDs()); ok {
		return id, true
	}
	first, _ := c.First()
	return first.ID, true
}
