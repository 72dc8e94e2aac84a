package services

import "testing"

func TestTagColorStable(t *testing.T) {
	if TagColor("Bank") != TagColor("bank") {
		t.Fatal("colour depends on case")
	}
	if TagColor("bank") == TagColor("shop") {
		t.Fatal("different tags share a colour")
	}
}

func TestTagList(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ann@example.com", "Ann")
	c := f.category(t, "Phishing")
	f.report(t, u.ID, c.ID, "http://a.example", "shop", "bank")
	f.report(t, u.ID, c.ID, "http://b.example", "Bank")

	tags, err := NewTagService(f.db).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 || tags[0].Name != "bank" || tags[1].Name != "shop" {
		t.Fatalf("tags = %+v", tags)
	}
}
