package dom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const fixture = `<!DOCTYPE html>
<html>
<head><title>Study 42</title><script>var x = "<td>no</td>";</script></head>
<body>
<div id="studytabs"><ul class="yui-nav">
  <li><a href="#r">Report</a></li>
  <li class="selected"><a href="#w"><em>Worksheet</em></a></li>
</ul></div>
<div id="studyinfo">
  <h1> DOE, JANE </h1>
  <table><tr><td class="lab">DOB:</td><td>01/02/1950</td><td class="lab">Study Date:</td><td>3/4/2024</td></tr></table>
</div>
<div id="worksheet2content">
<table>
  <tr><td class="k">CCA PSV:</td><td class="val"><input type="text" value=" 85 "><span class="units">cm/s</span></td></tr>
  <tr><td class="k">ICA PSV:</td><td class="val"><input type="text" value=""><span class="units">cm/s</span></td></tr>
  <tr><td class="k">Note:</td><td class="val"><input type="checkbox" value="on"></td></tr>
</table>
</div>
<fieldset><legend>Conclusions</legend><textarea class="findingta">Line one.
Line two.</textarea></fieldset>
<a href="/study/1?x=y">one</a>
<select name="s"><option value="a">A</option><option value="b" selected>B</option></select>
</body>
</html>`

func TestQueryAll_DocumentOrder(t *testing.T) {
	doc := MustParseString(fixture, "https://app.example/study/42")

	var got []string
	for _, el := range doc.QueryAll("#worksheet2content td.k") {
		got = append(got, el.Text())
	}
	want := []string{"CCA PSV:", "ICA PSV:", "Note:"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
}

func TestQuery_SelectorForms(t *testing.T) {
	doc := MustParseString(fixture, "")

	cases := []struct {
		sel  string
		want string
	}{
		{"#studytabs .yui-nav .selected", "Worksheet"},
		{"#studyinfo h1", "DOE, JANE"},
		{"ul > li.selected em", "Worksheet"},
		{"td.val input[type='text']", "85"},
		{`a[href*="/study/"]`, "one"},
		{"a[href^='/study']", "one"},
		{"fieldset legend", "Conclusions"},
		{"#missing, #studyinfo h1", "DOE, JANE"},
		{"select[name=s]", "b"},
	}
	for _, tc := range cases {
		el := doc.Query(tc.sel)
		if el == nil {
			t.Errorf("%s: no match", tc.sel)
			continue
		}
		if got := el.Value(); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.sel, got, tc.want)
		}
	}
}

func TestQuery_ChildCombinatorIsStrict(t *testing.T) {
	doc := MustParseString(fixture, "")
	if el := doc.Query("#studytabs > li"); el != nil {
		t.Errorf("child combinator matched a grandchild: %v", el.Tag())
	}
}

func TestTextarea_KeepsLineBreaks(t *testing.T) {
	doc := MustParseString(fixture, "")
	ta := doc.Query("textarea.findingta")
	if ta == nil {
		t.Fatal("textarea not found")
	}
	if got, want := ta.Value(), "Line one.\nLine two."; got != want {
		t.Errorf("Value: got %q, want %q", got, want)
	}
}

func TestNextElementAndClosest(t *testing.T) {
	doc := MustParseString(fixture, "")
	in := doc.Query("td.val input")
	next := in.NextElement()
	if next == nil || !next.HasClass("units") {
		t.Fatalf("next sibling: got %v", next)
	}
	if row := in.Closest("tr"); row == nil || row.Query("td.k").Text() != "CCA PSV:" {
		t.Error("closest tr should be the CCA row")
	}
	lab := doc.Query("#studyinfo td.lab")
	if got := lab.NextElement().Text(); got != "01/02/1950" {
		t.Errorf("label sibling: got %q", got)
	}
}

func TestScriptTextIgnored(t *testing.T) {
	doc := MustParseString(fixture, "")
	if got := doc.Query("head").Text(); got != "Study 42" {
		t.Errorf("head text: got %q", got)
	}
	if doc.Title() != "Study 42" {
		t.Errorf("title: got %q", doc.Title())
	}
}

func TestCompile_Errors(t *testing.T) {
	for _, sel := range []string{"", "a,", "> a", "a >", "a[href", "a.", "#"} {
		if _, err := Compile(sel); err == nil {
			t.Errorf("Compile(%q): expected error", sel)
		}
	}
	if doc := MustParseString(fixture, ""); doc.Query("a[") != nil {
		t.Error("invalid selector should match nothing")
	}
}
