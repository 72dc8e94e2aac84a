package services

import (
	"strings"
	"testing"

	"github.com/cppla/phishguard/models"
)

func TestCommentLifecycle(t *testing.T) {
	f := newFixture(t)
	ann := f.user(t, "ann@example.com", "Ann")
	bob := f.user(t, "bob@example.com", "Bob")
	c := f.category(t, "Phishing")
	r := f.report(t, ann.ID, c.ID, "http://a.example")

	view, err := f.comments.Create(CommentInput{ReportID: r.ID, UserID: bob.ID, Content: "Got the **same** mail"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(view.ContentHTML, "<strong>same</strong>") {
		t.Errorf("content html = %q", view.ContentHTML)
	}
	if view.User == nil || view.User.Name != "Bob" {
		t.Errorf("author = %+v", view.User)
	}

	// commenting on your own report does not notify you
	if _, err := f.comments.Create(CommentInput{ReportID: r.ID, UserID: ann.ID, Content: "thanks"}); err != nil {
		t.Fatal(err)
	}
	inbox, _ := f.notifications.ListForUser(ann.ID, 10, 0)
	if len(inbox) != 1 || inbox[0].NotificationTypeID != models.NotificationNewComment {
		t.Fatalf("owner inbox = %+v, want one new comment notification", inbox)
	}
	if !strings.Contains(inbox[0].Message, "Bob") {
		t.Errorf("notification message = %q", inbox[0].Message)
	}

	got, _ := f.reports.Get(r.ID)
	if got.CommentCount != 2 {
		t.Fatalf("comment count = %d, want 2", got.CommentCount)
	}

	edited := "edited"
	_, err = f.comments.Update(view.ID, ann.ID, false, UpdateCommentInput{Content: &edited})
	wantCode(t, err, 40330)
	updated, err := f.comments.Update(view.ID, bob.ID, false, UpdateCommentInput{Content: &edited})
	if err != nil || updated.Content != "edited" {
		t.Fatalf("update = %+v, %v", updated, err)
	}

	wantCode(t, f.comments.Delete(view.ID, ann.ID, false), 40330)
	if err := f.comments.Delete(view.ID, ann.ID, true); err != nil {
		t.Fatal(err)
	}
	_, err = f.comments.Get(view.ID)
	wantCode(t, err, 40430)

	list, err := f.comments.ByReport(r.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("remaining comments = %+v, %v", list, err)
	}
	got, _ = f.reports.Get(r.ID)
	if got.CommentCount != 1 {
		t.Fatalf("comment count after delete = %d, want 1", got.CommentCount)
	}
}

func TestCommentCountNeverNegative(t *testing.T) {
	f := newFixture(t)
	ann := f.user(t, "ann@example.com", "Ann")
	c := f.category(t, "Phishing")
	r := f.report(t, ann.ID, c.ID, "http://a.example")

	view, err := f.comments.Create(CommentInput{ReportID: r.ID, UserID: ann.ID, Content: "note"})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.db.Model(&models.Report{}).Where("id = ?", r.ID).UpdateColumn("comment_count", 0).Error; err != nil {
		t.Fatal(err)
	}
	if err := f.comments.Delete(view.ID, ann.ID, false); err != nil {
		t.Fatal(err)
	}
	got, _ := f.reports.Get(r.ID)
	if got.CommentCount != 0 {
		t.Fatalf("comment count = %d, want 0", got.CommentCount)
	}
}

func TestCreateCommentValidation(t *testing.T) {
	f := newFixture(t)
	ann := f.user(t, "ann@example.com", "Ann")

	tests := []struct {
		name string
		in   CommentInput
		code int
	}{
		{"no report", CommentInput{UserID: ann.ID, Content: "x"}, 40030},
		{"no user", CommentInput{ReportID: 1, Content: "x"}, 40110},
		{"empty content", CommentInput{ReportID: 1, UserID: ann.ID, Content: "  "}, 40031},
		{"missing report", CommentInput{ReportID: 99, UserID: ann.ID, Content: "x"}, 40410},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.comments.Create(tt.in)
			wantCode(t, err, tt.code)
		})
	}
}

func TestCommentTextStoredPlain(t *testing.T) {
	f := newFixture(t)
	ann := f.user(t, "ann@example.com", "Ann")
	c := f.category(t, "Phishing")
	r := f.report(t, ann.ID, c.ID, "http://a.example")

	view, err := f.comments.Create(CommentInput{
		ReportID: r.ID,
		UserID:   ann.ID,
		Title:    "Q & A",
		Content:  "  Tom & Jerry's <script>alert(1)</script>shop  ",
	})
	if err != nil {
		t.Fatal(err)
	}
	stored, err := f.comments.Get(view.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Title != "Q & A" || stored.Content != "Tom & Jerry's shop" {
		t.Fatalf("stored = %q / %q", stored.Title, stored.Content)
	}
	if !strings.Contains(stored.ContentHTML, "Tom &amp; Jerry") || strings.Contains(stored.ContentHTML, "&amp;amp;") {
		t.Errorf("content html = %q", stored.ContentHTML)
	}
}
