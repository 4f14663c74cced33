package fakebrowser

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"appointment-agent/internal/entity"
	"appointment-agent/internal/ports"
)

// Page is a fake session. Navigate swaps the document for the one routed to the URL.
type Page struct {
	mu sync.Mutex

	root        *Node
	routes      map[string]func() *Node
	bodies      map[string][]byte
	navErrors   map[string]error
	navigations []string
	keys        []string
	expected    int
	closed      int
}

var _ ports.Session = (*Page)(nil)

func NewPage() *Page {
	return &Page{
		root:      Document(),
		routes:    make(map[string]func() *Node),
		bodies:    make(map[string][]byte),
		navErrors: make(map[string]error),
	}
}

func (p *Page) Route(url string, build func() *Node) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.routes[url] = build

	return p
}

func (p *Page) RouteBody(url string, body []byte) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bodies[url] = body

	return p
}

func (p *Page) FailNavigation(url string, err error) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.navErrors[url] = err

	return p
}

func (p *Page) SetRoot(root *Node) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.root = root
}

func (p *Page) Root() *Node {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.root
}

func (p *Page) Query(ctx context.Context, selector string) (ports.Element, error) {
	return p.Root().Query(ctx, selector)
}

func (p *Page) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.navigations = append(p.navigations, url)

	if err, ok := p.navErrors[url]; ok {
		return err
	}

	if build, ok := p.routes[url]; ok {
		p.root = build()
	}

	return nil
}

func (p *Page) ExpectNavigation(_ context.Context, action func() error) error {
	p.mu.Lock()
	p.expected++
	p.mu.Unlock()

	return action()
}

func (p *Page) FetchBody(_ context.Context, url string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.navigations = append(p.navigations, url)

	body, ok := p.bodies[url]
	if !ok {
		return nil, fmt.Errorf("no body routed for %s", url)
	}

	return body, nil
}

func (p *Page) KeyDown(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.keys = append(p.keys, "down:"+key)

	return nil
}

func (p *Page) KeyUp(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.keys = append(p.keys, "up:"+key)

	return nil
}

func (p *Page) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed++

	return nil
}

func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.navigations)
}

func (p *Page) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.keys)
}

func (p *Page) ExpectedNavigations() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.expected
}

func (p *Page) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.closed
}

// Driver hands out pages built by NewPage, one per session.
type Driver struct {
	NewPage func() *Page

	mu       sync.Mutex
	pages    []*Page
	options  []entity.SessionOptions
	launched bool
	closed   bool
	failNext error
}

var _ ports.Driver = (*Driver)(nil)

func (d *Driver) Launch(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.launched = true

	return nil
}

func (d *Driver) FailNextSession(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.failNext = err
}

func (d *Driver) NewSession(_ context.Context, opts entity.SessionOptions) (ports.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failNext != nil {
		err := d.failNext
		d.failNext = nil

		return nil, err
	}

	page := d.NewPage()
	d.pages = append(d.pages, page)
	d.options = append(d.options, opts)

	return page, nil
}

func (d *Driver) Close(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true

	return nil
}

func (d *Driver) IsReady() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.launched && !d.closed
}

func (d *Driver) Pages() []*Page {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Clone(d.pages)
}

func (d *Driver) Options() []entity.SessionOptions {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Clone(d.options)
}
