package services

import "github.com/sahilchouksey/course-review-api/model"

// Auto-generated tags
const (
	TagNoExam       = "no-exam"
	TagProjectBased = "project-based"
	TagChill        = "chill"
	TagIntensive    = "intensive"
	TagHighlyRated  = "highly-rated"
)

// DeriveTags returns the tags implied by a course's current flags and
// statistics
func DeriveTags(course *model.Course) []string {
	tags := []string{}
	if course.Flags.HasNoExam {
		tags = append(tags, TagNoExam)
	}
	if course.Flags.IsProjectBased {
		tags = append(tags, TagProjectBased)
	}
	if course.Statistics.ChillScore >= 8 {
		tags = append(tags, TagChill)
	}
	if course.Statistics.ChillScore <= 3 {
		tags = append(tags, TagIntensive)
	}
	if course.Statistics.AvgRating >= 8.5 {
		tags = append(tags, TagHighlyRated)
	}
	return tags
}

// ApplyAutoTags merges the derived tags into the course's existing tags.
// Existing order is kept, matching is exact (case-sensitive) and duplicates
// are dropped, so running it again changes nothing. Tags that no longer
// apply are left in place since they cannot be told apart from user tags.
func ApplyAutoTags(course *model.Course) {
	seen := make(map[string]struct{}, len(course.Tags))
	merged := make([]string, 0, len(course.Tags)+5)

	add := func(tag string) {
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}

	for _, tag := range course.Tags {
		add(tag)
	}
	for _, tag := range DeriveTags(course) {
		add(tag)
	}

	course.Tags = merged
}
