package workflow

import "errors"

var (
	// ErrUnknownStatus is returned when a value does not name a workflow stage.
	ErrUnknownStatus = errors.New("unknown workflow status")
	// ErrUnknownShop is returned when a value does not name a shop.
	ErrUnknownShop = errors.New("unknown shop")
)
