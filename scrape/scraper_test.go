package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/sonodraft/dom"
	"github.com/hazyhaar/sonodraft/study"
)

// fakePage serves a fixed document. The clip collection stays empty for the
// first emptyReads reads.
type fakePage struct {
	doc        *dom.Document
	clips      []study.Clip
	emptyReads int
	resources  map[string]study.Resource

	mu      sync.Mutex
	reads   int
	fetched []string
}

func (p *fakePage) Snapshot(context.Context) (*dom.Document, error) { return p.doc, nil }

func (p *fakePage) Clips(context.Context) ([]study.Clip, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads++
	if p.reads <= p.emptyReads {
		return nil, nil
	}
	return p.clips, nil
}

func (p *fakePage) Fetch(_ context.Context, url string) (study.Resource, error) {
	p.mu.Lock()
	p.fetched = append(p.fetched, url)
	p.mu.Unlock()
	res, ok := p.resources[url]
	if !ok {
		return study.Resource{}, fmt.Errorf("fetch %s: 404", url)
	}
	return res, nil
}

const carotidWorksheet = `<html><body>
<div id="studytabs"><ul class="yui-nav"><li class="selected"><a href="#ws">Worksheet</a></li><li><a href="#r">Report</a></li></ul></div>
<div id="studyinfo"><h1>DOE, JANE</h1>
<table><tr><td class="lab">DOB:</td><td>01/02/1950</td><td class="lab">Study Date:</td><td>03/04/2024</td></tr></table>
</div>
<a id="studyTypeLink">Carotid Duplex</a>
<div id="worksheet2content"><table>
<tr><td class="k">CCA PSV:</td><td class="val"><input type="text" value="85"><span class="units">cm/s</span></td></tr>
<tr><td class="k">ICA EDV:</td><td class="val"><input type="text" value="  "><span class="units">cm/s</span></td></tr>
</table>
<textarea class="findingta">Mild plaque.</textarea>
</div>
</body></html>`

const aortaReport = `<html><body>
<div id="studytabs"><ul class="yui-nav"><li class="selected"><em>Report</em></li></ul></div>
<div id="report2"><div class="h0">Aorta Ultrasound</div>
<table id="report2table">
<tr><td class="k">Patient Name:</td><td>SMITH, JOHN</td></tr>
<tr><td class="k">DOB:</td><td>5/6/1945</td></tr>
<tr><td class="k">Date of Service:</td><td>7/8/2023</td></tr>
<tr><td><table class="includeauto">
  <tr><td class="k">Prox Aorta</td><td>2.1</td><td>cm</td></tr>
  <tr><td>Section</td></tr>
</table></td></tr>
<tr><td class="conclusionsv"><p class="rp">No aneurysm.</p><p class="rp">Normal flow.</p></td></tr>
</table></div>
</body></html>`

func newTestScraper() *Scraper {
	return New(Config{PollInterval: time.Millisecond})
}

func TestScrape_CarotidWorksheet(t *testing.T) {
	page := &fakePage{doc: dom.MustParseString(carotidWorksheet, "https://app.ultralinq.net/study/1")}

	rec, err := newTestScraper().Scrape(context.Background(), page, Options{})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}

	want := &study.StudyRecord{
		StudyType:    study.Carotid,
		PatientInfo:  study.PatientInfo{Name: "DOE, JANE", DateOfBirth: "01/02/1950", StudyDate: "03/04/2024"},
		Measurements: []string{"CCA PSV: 85 cm/s"},
		Conclusion:   "Mild plaque.",
		Images:       []study.Image{},
		SourceURL:    "https://app.ultralinq.net/study/1",
		View:         "worksheet",
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if page.reads != 0 {
		t.Errorf("clip collection read %d times without IncludeImages", page.reads)
	}
}

func TestScrape_ReportView(t *testing.T) {
	page := &fakePage{doc: dom.MustParseString(aortaReport, "https://app.ultralinq.net/study/2")}

	rec, err := newTestScraper().Scrape(context.Background(), page, Options{})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if rec.StudyType != study.Aorta || rec.View != "report" {
		t.Errorf("type/view: %s/%s", rec.StudyType, rec.View)
	}
	wantInfo := study.PatientInfo{Name: "SMITH, JOHN", DateOfBirth: "5/6/1945", StudyDate: "7/8/2023"}
	if diff := cmp.Diff(wantInfo, rec.PatientInfo); diff != "" {
		t.Errorf("patient (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Prox Aorta\t2.1\tcm"}, rec.Measurements); diff != "" {
		t.Errorf("measurements (-want +got):\n%s", diff)
	}
	if rec.Conclusion != "No aneurysm.\nNormal flow." {
		t.Errorf("conclusion: %q", rec.Conclusion)
	}
}

func TestScrape_NotAStudyPage(t *testing.T) {
	page := &fakePage{doc: dom.MustParseString(`<html><body><h1>Inbox</h1></body></html>`, "https://app.ultralinq.net/inbox")}

	_, err := newTestScraper().Scrape(context.Background(), page, SingleOptions())
	if !errors.Is(err, ErrNotAStudyPage) {
		t.Fatalf("expected ErrNotAStudyPage, got %v", err)
	}
	var nsp *NotAStudyPageError
	if !errors.As(err, &nsp) || nsp.URL != "https://app.ultralinq.net/inbox" {
		t.Errorf("error detail: %v", err)
	}
}

func TestExtract_UnrecognizedViewUsesGenericScopes(t *testing.T) {
	src := `<div id="studyinfo"><h1>ROE, RICHARD</h1></div>
<fieldset><legend>Notes</legend><textarea>ignored</textarea></fieldset>
<fieldset><legend> Conclusions </legend><textarea>Line one
Line two</textarea></fieldset>
<fieldset><legend>Summary</legend><textarea>Stable.</textarea></fieldset>`
	rec, err := newTestScraper().Extract(dom.MustParseString(src, ""))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.View != "unrecognized" || rec.StudyType != study.UnknownType {
		t.Errorf("view/type: %s/%s", rec.View, rec.StudyType)
	}
	want := study.PatientInfo{Name: "ROE, RICHARD", DateOfBirth: study.NotAvailable, StudyDate: study.NotAvailable}
	if rec.PatientInfo != want {
		t.Errorf("patient: %+v", rec.PatientInfo)
	}
	if rec.Conclusion != "Line one\nLine two"+study.ConclusionSeparator+"Stable." {
		t.Errorf("conclusion: %q", rec.Conclusion)
	}
	if len(rec.Measurements) != 0 || rec.Measurements == nil {
		t.Errorf("measurements: %#v", rec.Measurements)
	}
}

func TestMeasurements_NeverEmitEmptyValues(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<div id="worksheet2content"><table>`)
	for i := 0; i < 20; i++ {
		v := ""
		if i%3 == 0 {
			v = fmt.Sprint(i)
		}
		fmt.Fprintf(&sb, `<tr><td class="k">M%d:</td><td class="val"><input type="text" value="%s"></td></tr>`, i, v)
	}
	sb.WriteString(`</table></div>`)

	rec, err := newTestScraper().Extract(dom.MustParseString(sb.String(), ""))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(rec.Measurements) != 7 {
		t.Fatalf("got %d measurements: %v", len(rec.Measurements), rec.Measurements)
	}
	for _, m := range rec.Measurements {
		_, value, ok := strings.Cut(m, ": ")
		if !ok || strings.TrimSpace(value) == "" {
			t.Errorf("empty value segment in %q", m)
		}
	}
}

func TestScrape_ImagesDedupeAndDropFailures(t *testing.T) {
	page := &fakePage{
		doc:        dom.MustParseString(carotidWorksheet, ""),
		emptyReads: 3,
		clips: []study.Clip{
			{ID: "1", URL: "https://cdn/a.jpg"},
			{ID: "2", URL: "https://cdn/broken.jpg"},
			{ID: "3", URL: "https://cdn/a.jpg"},
			{ID: "4", Data: "data:image/png;base64,iVBORw0KGgo="},
			{ID: "5", URL: "https://cdn/c"},
		},
		resources: map[string]study.Resource{
			"https://cdn/a.jpg": {Body: []byte{0xff, 0xd8, 0xff}, MediaType: "image/jpeg; charset=binary"},
			"https://cdn/c":     {Body: []byte("GIF89a....")},
		},
	}

	rec, err := newTestScraper().Scrape(context.Background(), page, Options{IncludeImages: true, ImageCap: 60, PollTimeout: time.Second})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	want := []study.Image{
		{Data: "/9j/", MediaType: "image/jpeg"},
		{Data: "iVBORw0KGgo=", MediaType: "image/png"},
		{Data: "R0lGODlhLi4uLg==", MediaType: "image/gif"},
	}
	if diff := cmp.Diff(want, rec.Images); diff != "" {
		t.Errorf("images (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"https://cdn/a.jpg", "https://cdn/broken.jpg", "https://cdn/c"}, page.fetched); diff != "" {
		t.Errorf("fetch order (-want +got):\n%s", diff)
	}
}

func TestScrape_ImageCap(t *testing.T) {
	var clips []study.Clip
	resources := map[string]study.Resource{}
	for i := 0; i < 80; i++ {
		u := fmt.Sprintf("https://cdn/%d.jpg", i)
		clips = append(clips, study.Clip{ID: fmt.Sprint(i), URL: u})
		resources[u] = study.Resource{Body: []byte{byte(i)}, MediaType: "image/jpeg"}
	}

	for _, opt := range []Options{SingleOptions(), LongitudinalOptions(true)} {
		page := &fakePage{doc: dom.MustParseString(carotidWorksheet, ""), clips: clips, resources: resources}
		rec, err := newTestScraper().Scrape(context.Background(), page, opt)
		if err != nil {
			t.Fatalf("Scrape: %v", err)
		}
		if len(rec.Images) != opt.ImageCap {
			t.Errorf("cap %d: got %d images", opt.ImageCap, len(rec.Images))
		}
		if rec.Images[0].Data != "AA==" {
			t.Errorf("discovery order lost: first image %q", rec.Images[0].Data)
		}
	}
}

func TestScrape_SoftDeadline(t *testing.T) {
	page := &fakePage{doc: dom.MustParseString(carotidWorksheet, ""), emptyReads: 1 << 30}

	start := time.Now()
	rec, err := newTestScraper().Scrape(context.Background(), page, Options{IncludeImages: true, ImageCap: 60, PollTimeout: 40 * time.Millisecond})
	if err != nil {
		t.Fatalf("timeout must not fail the scrape: %v", err)
	}
	if len(rec.Images) != 0 {
		t.Errorf("got %d images", len(rec.Images))
	}
	if rec.Conclusion != "Mild plaque." {
		t.Errorf("record incomplete after timeout: %+v", rec)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("poll ignored its deadline: %v", elapsed)
	}
}

func TestMediaType(t *testing.T) {
	cases := []struct {
		declared string
		body     []byte
		want     string
	}{
		{"image/png", nil, "image/png"},
		{"", []byte("\x89PNG\r\n\x1a\n0000"), "image/png"},
		{"", []byte("plain words"), "image/jpeg"},
		{"", []byte{0x00, 0x01}, "image/jpeg"},
	}
	for _, tc := range cases {
		if got := mediaType(tc.declared, tc.body); got != tc.want {
			t.Errorf("mediaType(%q): got %q, want %q", tc.declared, got, tc.want)
		}
	}
}
