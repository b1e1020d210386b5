// Package workflow implements a document review workflow: drafts are edited,
// submitted for review, approved or rejected, and finally published.
package workflow

import (
	"context"
	"time"

	"github.com/amp-labs/amp-statemachine/logger"
	"github.com/amp-labs/amp-statemachine/statemachine"
)

type State string

type Event string

const (
	StateDraft         State = "draft"
	StatePendingReview State = "pending_review"
	StateApproved      State = "approved"
	StatePublished     State = "published"
	StateRejected      State = "rejected"

	EventEdit    Event = "edit"
	EventSubmit  Event = "submit"
	EventApprove Event = "approve"
	EventReject  Event = "reject"
	EventPublish Event = "publish"
)

const (
	previewLength  = 50
	noReasonGiven  = "no reason given"
	missingContent = "edit requires text content"
)

// Record is the machine context for one document.
type Record struct {
	Author          string
	Content         string
	Revisions       int
	Submissions     int
	RejectionReason string
	PublishedAt     time.Time
}

// Registry returns the guards and actions workflow.yaml refers to.
func Registry() *statemachine.Registry[Record] {
	return statemachine.NewRegistry[Record]().
		RegisterGuard("has_content", hasContent).
		RegisterAction("apply_content", applyContent).
		RegisterAction("submit", submit).
		RegisterAction("approve", approve).
		RegisterAction("record_reason", recordReason).
		RegisterAction("publish", publish)
}

func hasContent(_ context.Context, _ *Record, payload any) (bool, string) {
	if _, ok := payload.(string); !ok {
		return false, missingContent
	}

	return true, ""
}

func applyContent(ctx context.Context, rec *Record, payload any) error {
	rec.Content, _ = payload.(string)
	rec.Revisions++

	logger.Get(ctx).Debug("content updated",
		"author", rec.Author,
		"revision", rec.Revisions,
		"preview", preview(rec.Content))

	return nil
}

func submit(ctx context.Context, rec *Record, _ any) error {
	rec.Submissions++
	rec.RejectionReason = ""

	logger.Get(ctx).Debug("document submitted for review", "author", rec.Author, "submission", rec.Submissions)

	return nil
}

func approve(ctx context.Context, rec *Record, _ any) error {
	logger.Get(ctx).Debug("document approved", "author", rec.Author)

	return nil
}

func recordReason(ctx context.Context, rec *Record, payload any) error {
	reason, _ := payload.(string)
	if reason == "" {
		reason = noReasonGiven
	}

	rec.RejectionReason = reason

	logger.Get(ctx).Debug("document rejected", "author", rec.Author, "reason", reason)

	return nil
}

func publish(ctx context.Context, rec *Record, _ any) error {
	rec.PublishedAt = time.Now().UTC()

	logger.Get(ctx).Debug("document published", "author", rec.Author)

	return nil
}

// preview shortens content to its first runes for log lines.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}

	return string(runes[:previewLength]) + "..."
}
