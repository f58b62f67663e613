// Package sessiontest provides an in-memory browser tab and report service
// for tests of the surfaces built on a session.
package sessiontest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hazyhaar/sonodraft/dom"
	"github.com/hazyhaar/sonodraft/report"
	"github.com/hazyhaar/sonodraft/study"
)

// Origin is the origin of every page served by a Tab.
const Origin = "https://app.ultralinq.net"

// PatientList lists two carotid studies of the same patient.
const PatientList = `<html><body><table>
<tr><td>03/04/2024</td><td>Carotid Duplex</td><td><a href="/study/A">open</a></td></tr>
<tr><td>06/07/2022</td><td>Carotid Duplex</td><td><a href="/study/B">open</a></td></tr>
</table></body></html>`

// CarotidStudy is a worksheet view with one measurement and a finding.
const CarotidStudy = `<html><body>
<div id="studytabs"><ul class="yui-nav"><li class="selected"><a href="#ws">Worksheet</a></li></ul></div>
<div id="studyinfo"><h1>DOE, JANE</h1>
<table><tr><td class="lab">DOB:</td><td>01/02/1950</td><td class="lab">Study Date:</td><td>03/04/2024</td></tr></table>
</div>
<a id="studyTypeLink">Carotid Duplex</a>
<div id="worksheet2content"><table>
<tr><td class="k">CCA PSV:</td><td class="val"><input type="text" value="85"><span class="units">cm/s</span></td></tr>
</table>
<textarea class="findingta">Mild plaque.</textarea>
</div>
</body></html>`

// Tab serves fixed pages by URL. It implements orchestrate.Tab.
type Tab struct {
	mu        sync.Mutex
	pages     map[string]string
	clips     map[string][]study.Clip
	current   string
	navigated []string
}

// NewTab returns a tab showing start, with the patient list at
// Origin+"/patients/1" and CarotidStudy at both listed study URLs.
func NewTab(start string) *Tab {
	return &Tab{
		current: start,
		pages: map[string]string{
			Origin + "/patients/1": PatientList,
			Origin + "/study/A":    CarotidStudy,
			Origin + "/study/B":    CarotidStudy,
		},
		clips: map[string][]study.Clip{
			Origin + "/study/A": {{ID: "1", Data: "data:image/png;base64,iVBORw0KGgo="}},
		},
	}
}

// SetPage serves html at url.
func (t *Tab) SetPage(url, html string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pages[url] = html
}

// Navigated returns the URLs visited so far.
func (t *Tab) Navigated() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.navigated...)
}

func (t *Tab) Navigate(_ context.Context, url string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = url
	t.navigated = append(t.navigated, url)
	return nil
}

func (t *Tab) Snapshot(context.Context) (*dom.Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	html, ok := t.pages[t.current]
	if !ok {
		html = "<html><body><p>Not found</p></body></html>"
	}
	return dom.ParseBytes([]byte(html), t.current)
}

func (t *Tab) Clips(context.Context) ([]study.Clip, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clips[t.current], nil
}

func (t *Tab) Fetch(_ context.Context, url string) (study.Resource, error) {
	return study.Resource{}, fmt.Errorf("sessiontest: no resource at %s", url)
}

// Reports is a report service double. Set Err to fail every call.
type Reports struct {
	Err       error
	HealthErr error

	mu        sync.Mutex
	generated []study.StudyRecord
	histories []study.PatientHistory
}

func (r *Reports) Generate(_ context.Context, rec study.StudyRecord) (string, error) {
	r.mu.Lock()
	r.generated = append(r.generated, rec)
	r.mu.Unlock()
	if r.Err != nil {
		return "", r.Err
	}
	return "Draft for " + rec.PatientInfo.Name, nil
}

func (r *Reports) AnalyzeHistory(_ context.Context, h study.PatientHistory) (*report.HistoryReport, error) {
	r.mu.Lock()
	r.histories = append(r.histories, h)
	r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return &report.HistoryReport{
		Success:         true,
		Report:          fmt.Sprintf("%d studies, stable.", len(h.Studies)),
		StudiesAnalyzed: len(h.Studies),
		DateRange:       h.DateRange(),
	}, nil
}

func (r *Reports) Health(context.Context) error { return r.HealthErr }

// Generated returns the records submitted for single drafts.
func (r *Reports) Generated() []study.StudyRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]study.StudyRecord(nil), r.generated...)
}

// Histories returns the submitted histories.
func (r *Reports) Histories() []study.PatientHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]study.PatientHistory(nil), r.histories...)
}

// Rejected is a service error with the given message.
func Rejected(msg string) error {
	return &report.RejectedError{Status: 429, Message: msg}
}

// Unreachable is a transport-level service error.
func Unreachable() error {
	return &report.UnreachableError{URL: "http://localhost:3000", Cause: errors.New("connection refused")}
}
