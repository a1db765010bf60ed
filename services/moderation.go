package services

import "github.com/sahilchouksey/course-review-api/model"

// AutoApproveReviewLimit is the number of prior reviews after which a user's
// new reviews go to manual moderation even when their email is verified
const AutoApproveReviewLimit = 50

// ModerationGate decides whether a new review is trusted enough to count
// towards course statistics without a moderator looking at it
type ModerationGate struct {
	reviewLimit int
}

// NewModerationGate creates a gate with the default review limit
func NewModerationGate() *ModerationGate {
	return &ModerationGate{reviewLimit: AutoApproveReviewLimit}
}

// Decide reports whether a review submitted by user right now is
// auto-approved. It must be called once, before the user's review counter is
// incremented for the review being decided.
func (g *ModerationGate) Decide(user *model.User) bool {
	if user == nil {
		return false
	}
	return user.IsEmailVerified && user.Activity.ReviewsSubmitted < g.reviewLimit
}
