package scraper

import (
	"fmt"
	"sync"
	"time"

	"github.com/threadscan/threadscan/internal/browser"
)

// fakeElement is one matched node in a fake page.
type fakeElement struct {
	text     string
	attrs    map[string]string
	disabled bool
}

func link(href string) fakeElement {
	return fakeElement{attrs: map[string]string{"href": href}}
}

func text(value string) fakeElement {
	return fakeElement{text: value}
}

// fakePageData is the DOM a fake navigation lands on, keyed by selector.
type fakePageData struct {
	selectors map[string][]fakeElement
	html      string
	gotoErr   error
}

// fakeSession serves canned pages by URL. Unknown URLs fail navigation.
type fakeSession struct {
	mu         sync.Mutex
	pages      map[string]*fakePageData
	newPageErr error
	visits     []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{pages: make(map[string]*fakePageData)}
}

func (s *fakeSession) addPage(url string, data *fakePageData) {
	if data.selectors == nil {
		data.selectors = make(map[string][]fakeElement)
	}
	s.pages[url] = data
}

func (s *fakeSession) visited() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.visits...)
}

func (s *fakeSession) NewPage() (browser.Page, error) {
	if s.newPageErr != nil {
		return nil, s.newPageErr
	}
	return &fakePage{session: s}, nil
}

type fakePage struct {
	session *fakeSession
	current *fakePageData
}

func (p *fakePage) Goto(url string, _ time.Duration) error {
	p.session.mu.Lock()
	p.session.visits = append(p.session.visits, url)
	data, ok := p.session.pages[url]
	p.session.mu.Unlock()

	if !ok {
		return fmt.Errorf("navigation failed: %s", url)
	}
	if data.gotoErr != nil {
		return data.gotoErr
	}
	p.current = data
	return nil
}

func (p *fakePage) Locator(selector string) browser.Locator {
	if p.current == nil {
		return fakeLocator{}
	}
	return fakeLocator{elements: p.current.selectors[selector]}
}

func (p *fakePage) Evaluate(string) (interface{}, error) { return nil, nil }

func (p *fakePage) Content() (string, error) {
	if p.current == nil {
		return "", nil
	}
	return p.current.html, nil
}

func (p *fakePage) Close() error { return nil }

type fakeLocator struct {
	elements []fakeElement
}

func (l fakeLocator) Count() (int, error) { return len(l.elements), nil }

func (l fakeLocator) First() browser.Locator { return l.Nth(0) }

func (l fakeLocator) Nth(index int) browser.Locator {
	if index < 0 || index >= len(l.elements) {
		return fakeLocator{}
	}
	return fakeLocator{elements: l.elements[index : index+1]}
}

func (l fakeLocator) InnerText() (string, error) {
	if len(l.elements) == 0 {
		return "", fmt.Errorf("no elements")
	}
	return l.elements[0].text, nil
}

func (l fakeLocator) AllInnerTexts() ([]string, error) {
	texts := make([]string, 0, len(l.elements))
	for _, element := range l.elements {
		texts = append(texts, element.text)
	}
	return texts, nil
}

func (l fakeLocator) GetAttribute(name string) (string, error) {
	if len(l.elements) == 0 {
		return "", fmt.Errorf("no elements")
	}
	return l.elements[0].attrs[name], nil
}

func (l fakeLocator) IsDisabled() (bool, error) {
	if len(l.elements) == 0 {
		return false, fmt.Errorf("no elements")
	}
	return l.elements[0].disabled, nil
}
