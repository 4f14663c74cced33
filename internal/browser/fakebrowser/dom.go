// Package fakebrowser is an in-memory stand-in for a browser page. Nodes answer to a fixed
// set of selectors, may host a shadow root, and record every interaction for assertions.
package fakebrowser

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"appointment-agent/internal/ports"
)

// mu guards every node. Predicates run on their own goroutine while tests mutate the tree.
var mu sync.Mutex

type Node struct {
	Tag string

	controlType  string
	selectors    []string
	children     []*Node
	parent       *Node
	shadow       *Node
	visible      bool
	intersecting bool
	scrollable   bool
	detached     bool
	value        string
	options      []string

	focuses int
	clicks  int
	scrolls int
	typed   []string
	events  []string
	onClick func(n *Node)
}

var _ ports.Element = (*Node)(nil)

func NewNode(tag string, selectors ...string) *Node {
	return &Node{
		Tag:          tag,
		selectors:    selectors,
		visible:      true,
		intersecting: true,
		scrollable:   true,
	}
}

// Document returns an empty document root.
func Document(children ...*Node) *Node {
	return NewNode("#document").Append(children...)
}

func (n *Node) Append(children ...*Node) *Node {
	mu.Lock()
	defer mu.Unlock()

	for _, c := range children {
		c.parent = n
		n.children = append(n.children, c)
	}

	return n
}

// AttachShadow gives n a shadow root holding children.
func (n *Node) AttachShadow(children ...*Node) *Node {
	root := NewNode("#shadow-root").Append(children...)

	mu.Lock()
	defer mu.Unlock()

	root.parent = n
	n.shadow = root

	return n
}

func (n *Node) WithType(controlType string) *Node {
	mu.Lock()
	defer mu.Unlock()

	n.controlType = controlType

	return n
}

func (n *Node) WithValue(value string) *Node {
	mu.Lock()
	defer mu.Unlock()

	n.value = value

	return n
}

func (n *Node) WithOptions(values ...string) *Node {
	mu.Lock()
	defer mu.Unlock()

	n.options = values

	return n
}

// OffScreen marks n as outside the viewport. With scrollable false, scrolling does not help.
func (n *Node) OffScreen(scrollable bool) *Node {
	mu.Lock()
	defer mu.Unlock()

	n.intersecting = false
	n.scrollable = scrollable

	return n
}

func (n *Node) SetVisible(visible bool) *Node {
	mu.Lock()
	defer mu.Unlock()

	n.visible = visible

	return n
}

func (n *Node) Detach() {
	mu.Lock()
	defer mu.Unlock()

	n.detached = true
}

func (n *Node) OnClick(fn func(n *Node)) *Node {
	mu.Lock()
	defer mu.Unlock()

	n.onClick = fn

	return n
}

func (n *Node) Clicks() int {
	mu.Lock()
	defer mu.Unlock()

	return n.clicks
}

func (n *Node) Focuses() int {
	mu.Lock()
	defer mu.Unlock()

	return n.focuses
}

func (n *Node) Scrolls() int {
	mu.Lock()
	defer mu.Unlock()

	return n.scrolls
}

func (n *Node) Typed() []string {
	mu.Lock()
	defer mu.Unlock()

	return slices.Clone(n.typed)
}

func (n *Node) Events() []string {
	mu.Lock()
	defer mu.Unlock()

	return slices.Clone(n.events)
}

func (n *Node) CurrentValue() string {
	mu.Lock()
	defer mu.Unlock()

	return n.value
}

func (n *Node) Query(_ context.Context, selector string) (ports.Element, error) {
	mu.Lock()
	defer mu.Unlock()

	if found := n.find(selector); found != nil {
		return found, nil
	}

	return nil, nil
}

// find walks the light tree depth first. Shadow content is only reachable through ShadowRootOrSelf.
func (n *Node) find(selector string) *Node {
	for _, c := range n.children {
		if c.detached {
			continue
		}

		if slices.Contains(c.selectors, selector) {
			return c
		}

		if found := c.find(selector); found != nil {
			return found
		}
	}

	return nil
}

func (n *Node) ShadowRootOrSelf(context.Context) (ports.Element, error) {
	mu.Lock()
	defer mu.Unlock()

	if n.shadow != nil {
		return n.shadow, nil
	}

	return n, nil
}

func (n *Node) IsConnected(context.Context) (bool, error) {
	mu.Lock()
	defer mu.Unlock()

	for cur := n; cur != nil; cur = cur.parent {
		if cur.detached {
			return false, nil
		}
	}

	return true, nil
}

func (n *Node) IsVisible(context.Context) (bool, error) {
	mu.Lock()
	defer mu.Unlock()

	return n.visible && !n.detached, nil
}

func (n *Node) IsIntersectingViewport(context.Context) (bool, error) {
	mu.Lock()
	defer mu.Unlock()

	return n.intersecting, nil
}

func (n *Node) ScrollIntoCenter(context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	n.scrolls++
	if n.scrollable {
		n.intersecting = true
	}

	return nil
}

func (n *Node) ControlType(context.Context) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	return n.controlType, nil
}

func (n *Node) Focus(context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	n.focuses++

	return nil
}

// Type appends text to the value and reports one input and one change event per call.
func (n *Node) Type(_ context.Context, text string) error {
	mu.Lock()
	defer mu.Unlock()

	n.typed = append(n.typed, text)
	n.value += text
	n.events = append(n.events, "input", "change")

	return nil
}

func (n *Node) AssignValue(_ context.Context, value string) error {
	mu.Lock()
	defer mu.Unlock()

	n.value = value
	n.events = append(n.events, "input", "change")

	return nil
}

func (n *Node) Click(context.Context) error {
	mu.Lock()
	if n.detached {
		mu.Unlock()

		return fmt.Errorf("click on detached %s", n.Tag)
	}

	n.clicks++
	hook := n.onClick
	mu.Unlock()

	if hook != nil {
		hook(n)
	}

	return nil
}

func (n *Node) Value(context.Context) (string, error) {
	return n.CurrentValue(), nil
}

func (n *Node) SelectOption(_ context.Context, value string) error {
	mu.Lock()
	defer mu.Unlock()

	if !slices.Contains(n.options, value) {
		return fmt.Errorf("option %q not offered", value)
	}

	n.value = value
	n.events = append(n.events, "input", "change")

	return nil
}

func (n *Node) OptionValues(context.Context) ([]string, error) {
	mu.Lock()
	defer mu.Unlock()

	return slices.Clone(n.options), nil
}
