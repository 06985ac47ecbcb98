package model

import (
	"strings"
	"time"
)

// Resolve statuses of a ban appeal.
const (
	AppealPending  = "pending"
	AppealDenied   = "denied"
	AppealResolved = "resolved"
)

// Privilege labels describe the caller's relation to a ban issue.  They
// are informational; access decisions live in package policy.
const (
	PrivilegeAdmin  = "admin"
	PrivilegeTarget = "target"
	PrivilegeUser   = "user"
)

// BanIssue places User in a restricted state until EndDate.
type BanIssue struct {
	ID          uint64     `json:"_id,string"`
	User        uint64     `json:"user,string"`
	Admin       uint64     `json:"admin,string"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	EndDate     time.Time  `json:"endDate"`
	IsResolved  bool       `json:"isResolved"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

// Active reports whether the ban is unresolved and not yet expired.
func (b BanIssue) Active(now time.Time) bool {
	return !b.IsResolved && b.EndDate.After(now)
}

// BanIssueView inlines the target and the issuing admin.
type BanIssueView struct {
	BanIssue
	User  *User `json:"user"`
	Admin *User `json:"admin"`
}

// BanIssueTarget inlines only the target; the admin stays an id.
type BanIssueTarget struct {
	BanIssue
	User *User `json:"user"`
}

// BanAppeal is a target's contestation of a ban issue.
type BanAppeal struct {
	ID            uint64     `json:"_id,string"`
	BanIssue      uint64     `json:"banIssue,string"`
	Description   string     `json:"description"`
	CreatedAt     time.Time  `json:"createdAt"`
	ResolveStatus string     `json:"resolveStatus"`
	ResolvedAt    *time.Time `json:"resolvedAt,omitempty"`
}

// Comment is an append-only message on an appeal.
type Comment struct {
	ID        uint64    `json:"_id,string"`
	User      uint64    `json:"user,string"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentView inlines the author.
type CommentView struct {
	Comment
	User *User `json:"user"`
}

// BanIssueDetail is the response of GET /banIssues/:id.
type BanIssueDetail struct {
	BanIssue   BanIssueView `json:"banIssue"`
	BanAppeals []BanAppeal  `json:"banAppeals"`
	Privilege  string       `json:"privilege"`
}

// BanAppealDetail is the response of GET /banIssues/:id/:appeal.
type BanAppealDetail struct {
	BanAppeal
	BanIssue BanIssue      `json:"banIssue"`
	Comment  []CommentView `json:"comment"`
}

// BanAppealListItem is one row of GET /banAppeals.
type BanAppealListItem struct {
	BanAppeal
	BanIssue BanIssueTarget `json:"banIssue"`
}

// BanIssueInput is the body of POST /banIssues/user/:id.
type BanIssueInput struct {
	Title       string    `json:"title" validate:"required,max=50"`
	Description string    `json:"description" validate:"required,max=500"`
	EndDate     time.Time `json:"endDate" validate:"required"`
}

func (in *BanIssueInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
}

// CheckEndDate rejects a ban that would already be over at now.
func (in BanIssueInput) CheckEndDate(now time.Time) error {
	if !in.EndDate.After(now) {
		return invalid("endDate", "must be in the future")
	}
	return nil
}

// BanAppealInput is the body of POST /banIssues/:id.
type BanAppealInput struct {
	Description string `json:"description" validate:"required,max=500"`
}

func (in *BanAppealInput) Normalize() { in.Description = strings.TrimSpace(in.Description) }

// CommentInput is the body of POST /banIssues/:id/:appeal.
type CommentInput struct {
	Text string `json:"text" validate:"required,max=500"`
}

func (in *CommentInput) Normalize() { in.Text = strings.TrimSpace(in.Text) }

// AppealDecision is the body of PUT /banIssues/:id/:appeal.
type AppealDecision struct {
	ResolveStatus string `json:"resolveStatus" validate:"required,oneof=resolved denied"`
}
