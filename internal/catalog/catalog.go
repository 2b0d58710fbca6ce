package catalog

import (
	"sort"
	"strconv"
	"strings"
)

// Catalog ordered modules and lessons of one course.
//
// Lessons are flattened in (module sort index, lesson sort index) order, that
// order is the only definition of previous and next.
type Catalog struct {
	Course  *CourseModel     `json:"course"`
	Modules []*ModuleModel   `json:"modules"`
	Lessons []*LessonModel   `json:"lessons"`
	index   map[string]int   // lesson id -> position in Lessons
	modules map[string]int   // module id -> position in Modules
	byMod   map[string][]int // module id -> positions in Lessons
	sig     string
}

// NewCatalog build the projection, lessons referencing an unknown module are dropped
func NewCatalog(course *CourseModel, modules []*ModuleModel, lessons []*LessonModel) *Catalog {
	mods := make([]*ModuleModel, len(modules))
	copy(mods, modules)
	sort.SliceStable(mods, func(i, j int) bool {
		if mods[i].SortIndex != mods[j].SortIndex {
			return mods[i].SortIndex < mods[j].SortIndex
		}
		return mods[i].ID < mods[j].ID
	})

	modPos := make(map[string]int, len(mods))
	for i, m := range mods {
		modPos[m.ID] = i
	}

	flat := make([]*LessonModel, 0, len(lessons))
	for _, l := range lessons {
		if _, ok := modPos[l.ModuleID]; ok {
			flat = append(flat, l)
		}
	}
	sort.SliceStable(flat, func(i, j int) bool {
		mi, mj := modPos[flat[i].ModuleID], modPos[flat[j].ModuleID]
		if mi != mj {
			return mi < mj
		}
		if flat[i].SortIndex != flat[j].SortIndex {
			return flat[i].SortIndex < flat[j].SortIndex
		}
		return flat[i].ID < flat[j].ID
	})

	c := &Catalog{
		Course:  course,
		Modules: mods,
		Lessons: flat,
		index:   make(map[string]int, len(flat)),
		modules: modPos,
		byMod:   make(map[string][]int, len(mods)),
		sig:     Signature(modules, lessons),
	}
	for i, l := range flat {
		c.index[l.ID] = i
		c.byMod[l.ModuleID] = append(c.byMod[l.ModuleID], i)
	}
	return c
}

// EmptyCatalog catalog without modules or lessons, a valid terminal state
func EmptyCatalog(course *CourseModel) *Catalog {
	return NewCatalog(course, nil, nil)
}

// Signature stable join of module and lesson identifiers, input order does not matter.
//
// sort indexes are part of the signature because reordering changes previous/next
func Signature(modules []*ModuleModel, lessons []*LessonModel) string {
	parts := make([]string, 0, len(modules)+len(lessons))
	for _, m := range modules {
		parts = append(parts, "m:"+m.ID+"@"+strconv.Itoa(m.SortIndex))
	}
	for _, l := range lessons {
		parts = append(parts, "l:"+l.ModuleID+"/"+l.ID+"@"+strconv.Itoa(l.SortIndex))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// Signature identity of the module/lesson sets this catalog was built from
func (c *Catalog) Signature() string {
	return c.sig
}

// Empty true when the course has no playable lesson
func (c *Catalog) Empty() bool {
	return len(c.Lessons) == 0
}

// Lesson look up a lesson by id
func (c *Catalog) Lesson(id string) (*LessonModel, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.Lessons[i], true
}

// Contains reports whether id belongs to this course
func (c *Catalog) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

// First first lesson of the first module
func (c *Catalog) First() (*LessonModel, bool) {
	if c.Empty() {
		return nil, false
	}
	return c.Lessons[0], true
}

// Previous lesson before id, false on the first lesson or an unknown id
func (c *Catalog) Previous(id string) (*LessonModel, bool) {
	i, ok := c.index[id]
	if !ok || i == 0 {
		return nil, false
	}
	return c.Lessons[i-1], true
}

// Next lesson after id, false on the last lesson or an unknown id
func (c *Catalog) Next(id string) (*LessonModel, bool) {
	i, ok := c.index[id]
	if !ok || i == len(c.Lessons)-1 {
		return nil, false
	}
	return c.Lessons[i+1], true
}

// Module look up the module a lesson belongs to
func (c *Catalog) Module(lessonID string) (*ModuleModel, bool) {
	l, ok := c.Lesson(lessonID)
	if !ok {
		return nil, false
	}
	return c.Modules[c.modules[l.ModuleID]], true
}

// ModuleLessons lessons of one module in playback order
func (c *Catalog) ModuleLessons(moduleID string) []*LessonModel {
	pos := c.byMod[moduleID]
	result := make([]*LessonModel, 0, len(pos))
	for _, i := range pos {
		result = append(result, c.Lessons[i])
	}
	return result
}

// LessonIDs lesson identifiers in playback order
func (c *Catalog) LessonIDs() []string {
	ids := make([]string, len(c.Lessons))
	for i, l := range c.Lessons {
		ids[i] = l.ID
	}
	return ids
}
