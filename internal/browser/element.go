package browser

import (
	"appointment-agent/internal/ports"
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

type element struct {
	handle playwright.ElementHandle
}

var _ ports.Element = (*element)(nil)

// wrapHandle keeps a missing match as an untyped nil.
func wrapHandle(handle playwright.ElementHandle) ports.Element {
	if handle == nil {
		return nil
	}

	return &element{handle: handle}
}

func (e *element) Query(ctx context.Context, selector string) (ports.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	handle, err := e.handle.QuerySelector(selector)
	if err != nil {
		return nil, err
	}

	return wrapHandle(handle), nil
}

func (e *element) ShadowRootOrSelf(ctx context.Context) (ports.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	js, err := e.handle.EvaluateHandle(shadowRootOrSelfScript)
	if err != nil {
		return nil, err
	}

	handle := js.AsElement()
	if handle == nil {
		return nil, fmt.Errorf("shadow root is not a node")
	}

	return &element{handle: handle}, nil
}

func (e *element) IsConnected(ctx context.Context) (bool, error) {
	return e.evalBool(ctx, isConnectedScript)
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	return e.handle.IsVisible()
}

func (e *element) IsIntersectingViewport(ctx context.Context) (bool, error) {
	return e.evalBool(ctx, intersectsViewportScript)
}

func (e *element) ScrollIntoCenter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := e.handle.Evaluate(scrollIntoCenterScript)

	return err
}

func (e *element) ControlType(ctx context.Context) (string, error) {
	return e.evalString(ctx, controlTypeScript)
}

func (e *element) Focus(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.handle.Focus()
}

func (e *element) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.handle.Type(text)
}

func (e *element) AssignValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := e.handle.Evaluate(assignValueScript, value)

	return err
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.handle.Click()
}

func (e *element) Value(ctx context.Context) (string, error) {
	return e.evalString(ctx, valueScript)
}

func (e *element) SelectOption(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	selected, err := e.handle.SelectOption(playwright.SelectOptionValues{
		Values: &[]string{value},
	})
	if err != nil {
		return err
	}

	if len(selected) == 0 {
		return fmt.Errorf("option %q not offered", value)
	}

	return nil
}

func (e *element) OptionValues(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := e.handle.Evaluate(optionValuesScript)
	if err != nil {
		return nil, err
	}

	items, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected option list type %T", result)
	}

	values := make([]string, 0, len(items))

	for _, item := range items {
		if v, ok := item.(string); ok {
			values = append(values, v)
		}
	}

	return values, nil
}

func (e *element) evalBool(ctx context.Context, script string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	result, err := e.handle.Evaluate(script)
	if err != nil {
		return false, err
	}

	v, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected result type %T", result)
	}

	return v, nil
}

func (e *element) evalString(ctx context.Context, script string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	result, err := e.handle.Evaluate(script)
	if err != nil {
		return "", err
	}

	if result == nil {
		return "", nil
	}

	v, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result type %T", result)
	}

	return v, nil
}
