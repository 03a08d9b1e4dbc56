package enrich

import "testing"

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Atom01 Heejin":      "atom01-heejin",
		"Atom01 HeeJin 322Z": "atom01-heejin-322z",
		"Divine01 Seöyeon":   "divine01-seoyeon",
		"Binary01  ChoErry!": "binary01-choerry",
		"Ever01 Kim-Lip 1A":  "ever01-kim-lip-1a",
	}
	for input, want := range cases {
		got := Slug(input)
		if got != want {
			t.Fatalf("Slug(%q) = %q, want %q", input, got, want)
		}
		if again := Slug(got); again != got {
			t.Fatalf("Slug is not idempotent: %q -> %q", got, again)
		}
	}
}

func TestOnOffline(t *testing.T) {
	if got := OnOffline("322Z"); got != "online" {
		t.Fatalf("322Z should be online, got %s", got)
	}
	if got := OnOffline("101A"); got != "offline" {
		t.Fatalf("101A should be offline, got %s", got)
	}
}

func TestOverrideColors(t *testing.T) {
	bg, text := OverrideColors("atom01-heejin", "322Z", "#000000", "#000000")
	if bg != "#000000" || text != "#FFFFFF" {
		t.Fatalf("expected text override, got %s %s", bg, text)
	}

	bg, text = OverrideColors("divine01-seoyeon-117z", "117Z", "#111111", "#222222")
	if bg != "#B400FF" || text != "#222222" {
		t.Fatalf("expected accent override, got %s %s", bg, text)
	}

	bg, text = OverrideColors("atom01-heejin-101z", "101Z", "#111111", "#222222")
	if bg != "#111111" || text != "#222222" {
		t.Fatalf("colors should pass through, got %s %s", bg, text)
	}
}
