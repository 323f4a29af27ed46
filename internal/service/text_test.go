package service

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"标签与末尾价格", "  Cool <b>Gadget</b> 19.99USD ", "Cool Gadget"},
		{"货币符号在前", "Phone Case - $4.99", "Phone Case"},
		{"币种代码在前", "Wall Clock USD 12", "Wall Clock"},
		{"多段价格噪声", "Lamp 5.00USD $6", "Lamp"},
		{"无货币的数字保留", "iPhone 15 Case", "iPhone 15 Case"},
		{"实体解码", "Salt &amp; Pepper   Mill", "Salt & Pepper Mill"},
		{"空白", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanName(tt.in); got != tt.want {
				t.Errorf("CleanName(%q) = %q, 期望 %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanName_Truncates(t *testing.T) {
	long := strings.Repeat("é", MaxNameLength+20)
	got := CleanName(long)
	if utf8.RuneCountInString(got) != MaxNameLength {
		t.Errorf("期望截断到 %d 个字符, 实际 %d", MaxNameLength, utf8.RuneCountInString(got))
	}
}

func TestProductName_Fallback(t *testing.T) {
	if got := ProductName("<i></i>", "P1"); got != "CJ Product P1" {
		t.Errorf("期望回退名称, 实际 %q", got)
	}
	if got := ProductName("Mug", "P1"); got != "Mug" {
		t.Errorf("期望 Mug, 实际 %q", got)
	}
}

func TestCleanDescription(t *testing.T) {
	in := `<div>Line  one</div><script>alert(1)</script><p>Line<br>two</p><style>p{}</style>`
	want := "Line one\nLine\ntwo"
	if got := CleanDescription(in); got != want {
		t.Errorf("CleanDescription = %q, 期望 %q", got, want)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name, id, want string
	}{
		{"Cool Gadget", "P100", "cool-gadget-p100"},
		{"  Hello, World!! ", "ABC_1", "hello-world-abc-1"},
		{"", "P2", "p2"},
		{"Only Name", "", "only-name"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.name, tt.id); got != tt.want {
			t.Errorf("Slugify(%q, %q) = %q, 期望 %q", tt.name, tt.id, got, tt.want)
		}
	}
}
